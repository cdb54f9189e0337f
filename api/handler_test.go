package handler

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sergiuosvat/x402-facilitator/auth"
	"github.com/sergiuosvat/x402-facilitator/core"
	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/store"
	"github.com/sergiuosvat/x402-facilitator/types"
)

// fakeGateway is a scripted ledger gateway for handler tests.
type fakeGateway struct {
	sendHash  string
	sendCalls int
}

func (g *fakeGateway) SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error) {
	g.sendCalls++
	return g.sendHash, nil
}

func (g *fakeGateway) SimulateTransaction(ctx context.Context, tx *ledger.Transaction) (json.RawMessage, error) {
	return json.RawMessage(`{"status":{"status":"success"}}`), nil
}

// testEnv bundles a handler wired with fakes and a real on-disk store.
type testEnv struct {
	handler *Handler
	gateway *fakeGateway
	store   *store.Store
	signer  ledger.Signer
	key     ed25519.PrivateKey
}

func newTestEnv(t *testing.T, a *auth.Authenticator) *testEnv {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ledger.NewSigner(key)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "settlements.db"))
	require.NoError(t, err)

	gateway := &fakeGateway{sendHash: "deadbeef"}
	relayers := core.NewEmptyRelayerSelector()
	verifier := core.NewVerifier(gateway, relayers, "1", nil)
	coordinator := core.NewCoordinator(st, gateway, relayers, false, nil)

	return &testEnv{
		handler: New(a, verifier, coordinator, st, nil, nil, types.NetworkMultiversX),
		gateway: gateway,
		store:   st,
		signer:  signer,
		key:     key,
	}
}

func newReceiver(t *testing.T) ledger.Address {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	addr, err := ledger.NewAddress(pub)
	require.NoError(t, err)
	return addr
}

// signedIntent builds an intent from the environment's payer key and signs
// its canonical bytes.
func (e *testEnv) signedIntent(t *testing.T, receiver string, value string) types.Intent {
	t.Helper()
	intent := types.Intent{
		Nonce:    7,
		Value:    value,
		Receiver: receiver,
		Sender:   e.signer.Address().String(),
		GasPrice: 1000000000,
		GasLimit: 50000,
		ChainID:  "1",
		Version:  1,
	}
	tx := core.BuildTransaction(intent)
	unsigned, err := tx.SigningBytes()
	require.NoError(t, err)
	intent.Signature = hex.EncodeToString(ed25519.Sign(e.key, unsigned))
	return intent
}

func requirementsFor(payTo, amount string) types.PaymentRequirements {
	return types.PaymentRequirements{
		Scheme:            types.SchemeExact,
		Network:           types.NetworkMultiversX,
		PayTo:             payTo,
		Amount:            amount,
		Asset:             types.AssetNative,
		MaxTimeoutSeconds: 30,
	}
}

func envelope(t *testing.T, version types.X402Version, payload types.PaymentPayload, reqs types.PaymentRequirements) []byte {
	t.Helper()
	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)
	reqBytes, err := json.Marshal(reqs)
	require.NoError(t, err)
	body, err := json.Marshal(types.RequestBody{
		X402Version:         version,
		PaymentPayload:      payloadBytes,
		PaymentRequirements: reqBytes,
	})
	require.NoError(t, err)
	return body
}

func postJSON(t *testing.T, router http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestVerifyEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.handler.Router()
	receiver := newReceiver(t)

	t.Run("valid intent", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "5000")
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, requirementsFor(receiver.String(), "5000"))

		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var response types.VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.True(t, response.IsValid)
		require.Equal(t, env.signer.Address().String(), response.Payer)
	})

	t.Run("insufficient amount is reported in the body", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "10")
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, requirementsFor(receiver.String(), "5000"))

		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var response types.VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.False(t, response.IsValid)
		require.Equal(t, types.InvalidReasonInsufficientAmount, response.InvalidReason)
	})

	t.Run("unsupported version", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "5000")
		body := envelope(t, 2, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, requirementsFor(receiver.String(), "5000"))

		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("scheme mismatch between payload and requirements", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "5000")
		reqs := requirementsFor(receiver.String(), "5000")
		reqs.Scheme = "upto"
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, reqs)

		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported network", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "5000")
		reqs := requirementsFor(receiver.String(), "5000")
		reqs.Network = "base"
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: "base",
			Payload: intent,
		}, reqs)

		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postJSON(t, router, "/verify", []byte("{not json"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSettleEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.handler.Router()
	receiver := newReceiver(t)

	t.Run("settles a valid intent and records it", func(t *testing.T) {
		intent := env.signedIntent(t, receiver.String(), "5000")
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, requirementsFor(receiver.String(), "5000"))

		rec := postJSON(t, router, "/settle", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var response types.SettleResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.True(t, response.Success)
		require.Equal(t, "deadbeef", response.Transaction)
		require.Equal(t, env.signer.Address().String(), response.Payer)

		sig, err := hex.DecodeString(intent.Signature)
		require.NoError(t, err)
		stored, err := env.store.Get(context.Background(), store.SettlementID(sig))
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.Equal(t, store.StatusCompleted, stored.Status)

		// The same request again replays the stored result without a
		// second broadcast.
		rec = postJSON(t, router, "/settle", body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.True(t, response.Success)
		require.Equal(t, "deadbeef", response.Transaction)
		require.Equal(t, 1, env.gateway.sendCalls)
	})

	t.Run("invalid intent is rejected before broadcast", func(t *testing.T) {
		sends := env.gateway.sendCalls
		intent := env.signedIntent(t, receiver.String(), "10")
		body := envelope(t, types.X402Version1, types.PaymentPayload{
			Scheme:  types.SchemeExact,
			Network: types.NetworkMultiversX,
			Payload: intent,
		}, requirementsFor(receiver.String(), "5000"))

		rec := postJSON(t, router, "/settle", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var response types.SettleResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		require.False(t, response.Success)
		require.Equal(t, types.SettleReason(types.InvalidReasonInsufficientAmount), response.ErrorReason)
		require.Equal(t, sends, env.gateway.sendCalls)
	})
}

func TestSupportedEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.handler.Router()

	req := httptest.NewRequest(http.MethodGet, "/supported", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response types.SupportedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Kinds, 1)
	require.Equal(t, types.X402Version1, response.Kinds[0].X402Version)
	require.Equal(t, types.SchemeExact, response.Kinds[0].Scheme)
	require.Equal(t, types.NetworkMultiversX, response.Kinds[0].Network)
}

func TestSettlementEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.handler.Router()
	ctx := context.Background()

	require.NoError(t, env.store.Save(ctx, &store.Settlement{
		ID:     "done-1",
		Status: store.StatusCompleted,
		TxHash: "cafe",
	}))
	require.NoError(t, env.store.Save(ctx, &store.Settlement{
		ID:     "pending-1",
		Status: store.StatusPending,
	}))

	req := httptest.NewRequest(http.MethodGet, "/settlements/unread", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var unread []store.Settlement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unread))
	require.Len(t, unread, 1)
	require.Equal(t, "done-1", unread[0].ID)

	rec = postJSON(t, router, "/settlements/read", []byte(`{"ids":["done-1"]}`))
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/settlements/unread", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unread))
	require.Empty(t, unread)
}

func TestStaticKeyAuthentication(t *testing.T) {
	authenticator, err := auth.New("secret-key", "")
	require.NoError(t, err)
	env := newTestEnv(t, authenticator)
	router := env.handler.Router()
	receiver := newReceiver(t)

	intent := env.signedIntent(t, receiver.String(), "5000")
	body := envelope(t, types.X402Version1, types.PaymentPayload{
		Scheme:  types.SchemeExact,
		Network: types.NetworkMultiversX,
		Payload: intent,
	}, requirementsFor(receiver.String(), "5000"))

	t.Run("missing key", func(t *testing.T) {
		rec := postJSON(t, router, "/verify", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body))
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body))
		req.Header.Set("X-API-Key", "secret-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
