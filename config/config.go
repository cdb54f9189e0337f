package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the facilitator's runtime configuration. Values come from a
// TOML file and may be overridden through the environment.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	Environment    string `toml:"Environment"`
	ProxyURL       string `toml:"ProxyURL"`
	ChainID        string `toml:"ChainID"`
	NetworkName    string `toml:"NetworkName"`
	DatabasePath   string `toml:"DatabasePath"`
	RelayerKeysDir string `toml:"RelayerKeysDir"`
	RelayerPEMPath string `toml:"RelayerPEMPath"`
	SkipSimulation bool   `toml:"SkipSimulation"`
	SweepSeconds   int64  `toml:"SweepSeconds"`
	StaticAPIKey   string `toml:"StaticAPIKey"`
	DatabaseURL    string `toml:"DatabaseURL"`
}

// Load reads the configuration file when it exists, applies environment
// overrides and fills in defaults. A missing file is not an error; the
// environment alone can configure the process.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddress, "LISTEN_ADDRESS")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.ProxyURL, "PROXY_URL")
	setString(&c.ChainID, "CHAIN_ID")
	setString(&c.NetworkName, "NETWORK_NAME")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.RelayerKeysDir, "RELAYER_KEYS_DIR")
	setString(&c.RelayerPEMPath, "RELAYER_PEM_PATH")
	setString(&c.StaticAPIKey, "STATIC_API_KEY")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setBool(&c.SkipSimulation, "SKIP_SIMULATION")
	setInt64(&c.SweepSeconds, "SWEEP_SECONDS")
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8080"
	}
	if c.NetworkName == "" {
		c.NetworkName = "multiversx"
	}
	if c.ChainID == "" {
		c.ChainID = "1"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "settlements.db"
	}
	if c.SweepSeconds <= 0 {
		c.SweepSeconds = 300
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ProxyURL) == "" {
		return fmt.Errorf("ProxyURL is not set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err == nil {
			*dst = parsed
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			*dst = parsed
		}
	}
}
