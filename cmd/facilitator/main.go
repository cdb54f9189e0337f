package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	// Registers the postgres driver used by the API key database.
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	handler "github.com/sergiuosvat/x402-facilitator/api"
	"github.com/sergiuosvat/x402-facilitator/auth"
	"github.com/sergiuosvat/x402-facilitator/config"
	"github.com/sergiuosvat/x402-facilitator/core"
	"github.com/sergiuosvat/x402-facilitator/internal/logging"
	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/metrics"
	"github.com/sergiuosvat/x402-facilitator/store"
	"github.com/sergiuosvat/x402-facilitator/types"
)

func main() {
	configPath := flag.String("config", "facilitator.toml", "path to the configuration file")
	flag.Parse()

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("x402-facilitator", "").Error("config error", "err", err)
		os.Exit(1)
	}

	logger := logging.Setup("x402-facilitator", cfg.Environment)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("store error", "err", err)
		os.Exit(1)
	}

	gateway, err := ledger.NewGateway(cfg.ProxyURL)
	if err != nil {
		logger.Error("gateway error", "err", err)
		os.Exit(1)
	}

	relayers, err := core.LoadRelayerSelector(cfg.RelayerKeysDir, cfg.RelayerPEMPath)
	if err != nil {
		logger.Error("relayer keys error", "err", err)
		os.Exit(1)
	}
	if !relayers.Configured() {
		logger.Info("no relayer keys configured, fee-delegated settlement disabled")
	}

	authenticator, err := auth.New(cfg.StaticAPIKey, cfg.DatabaseURL)
	if err != nil {
		logger.Error("auth error", "err", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	verifier := core.NewVerifier(gateway, relayers, cfg.ChainID, logger)
	coordinator := core.NewCoordinator(st, gateway, relayers, cfg.SkipSimulation, logger)

	h := handler.New(authenticator, verifier, coordinator, st, m, logger, types.Network(cfg.NetworkName))

	go sweepExpired(context.Background(), st, time.Duration(cfg.SweepSeconds)*time.Second, logger)

	logger.Info("starting facilitator", "addr", cfg.ListenAddress, "network", cfg.NetworkName)
	if err := http.ListenAndServe(cfg.ListenAddress, h.Router()); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// sweepExpired periodically purges settlement records whose validity window
// has elapsed.
func sweepExpired(ctx context.Context, st *store.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := st.DeleteExpired(ctx, time.Now().Unix())
			if err != nil {
				logger.Error("settlement sweep failed", "err", err)
				continue
			}
			if purged > 0 {
				logger.Info("purged expired settlements", "count", purged)
			}
		}
	}
}
