package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Gateway is the broadcast and simulate capability of the ledger. Both calls
// honor the deadline carried by the context; a deadline hit is an ordinary
// error, not a special case.
type Gateway interface {
	SendTransaction(ctx context.Context, tx *Transaction) (string, error)
	SimulateTransaction(ctx context.Context, tx *Transaction) (json.RawMessage, error)
}

// NewGateway creates a gateway for the given proxy URL. This function can be
// overridden in tests.
var NewGateway = func(proxyURL string) (Gateway, error) {
	if proxyURL == "" {
		return nil, fmt.Errorf("proxy URL is not set")
	}
	return &ProxyClient{baseURL: proxyURL, httpClient: http.DefaultClient}, nil
}

// ProxyClient talks to a ledger proxy over HTTP.
type ProxyClient struct {
	baseURL    string
	httpClient *http.Client
}

// proxyEnvelope is the wrapper every proxy response uses.
type proxyEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

// SendTransaction broadcasts the signed transaction and returns its hash.
func (c *ProxyClient) SendTransaction(ctx context.Context, tx *Transaction) (string, error) {
	data, err := c.post(ctx, "/transaction/send", tx)
	if err != nil {
		return "", err
	}
	var result struct {
		TxHash string `json:"txHash"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("failed to decode send response: %w", err)
	}
	if result.TxHash == "" {
		return "", fmt.Errorf("proxy returned no transaction hash")
	}
	return result.TxHash, nil
}

// SimulateTransaction dry-runs the signed transaction without broadcasting
// it. The response shape varies across proxy versions, so it is returned raw
// for the caller to interpret.
func (c *ProxyClient) SimulateTransaction(ctx context.Context, tx *Transaction) (json.RawMessage, error) {
	return c.post(ctx, "/transaction/simulate", tx)
}

func (c *ProxyClient) post(ctx context.Context, path string, tx *Transaction) (json.RawMessage, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response: %w", err)
	}

	var envelope proxyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode proxy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || envelope.Error != "" {
		msg := envelope.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("proxy returned error: %s", msg)
	}
	return envelope.Data, nil
}
