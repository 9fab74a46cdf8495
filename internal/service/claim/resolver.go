// Package claim resolves channel claims through an external JSON-RPC oracle.
package claim

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"claim-comments/internal/domain"
	"claim-comments/internal/metrics"
)

const maxResponseBytes = 4 << 20

// Resolver looks up the claim of a channel. A nil claim with a nil error
// means the oracle does not know the channel.
type Resolver interface {
	Resolve(ctx context.Context, channelID, channelName, claimID string) (*domain.Claim, error)
}

type Config struct {
	URL     string
	Timeout time.Duration
}

// Client issues exactly one resolve request per call. It neither caches nor
// retries.
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		http:    httpClient,
		log:     log.Named("claim"),
		metrics: m,
	}
}

// Locator builds the canonical claim URL for a channel.
func Locator(channelName, channelID string) string {
	return fmt.Sprintf("lbry://%s#%s", channelName, channelID)
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	URLs []string `json:"urls"`
}

type rpcResponse struct {
	Result map[string]json.RawMessage `json:"result"`
	Error  json.RawMessage            `json:"error"`
}

type resolvedClaim struct {
	ClaimID string          `json:"claim_id"`
	Name    string          `json:"name"`
	Error   json.RawMessage `json:"error"`
	Value   struct {
		PublicKey string `json:"public_key"`
	} `json:"value"`
}

// Resolve fetches the claim for channelName#channelID. claimID names the
// commented claim and is only used for logging.
func (c *Client) Resolve(ctx context.Context, channelID, channelName, claimID string) (*domain.Claim, error) {
	locator := Locator(channelName, channelID)
	log := c.log.With(zap.String("locator", locator), zap.String("claim_id", claimID))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.call(ctx, locator)
	if err != nil {
		c.metrics.RecordResolution("error")
		log.Warn("claim resolution failed", zap.Error(err))
		return nil, err
	}

	raw, ok := resp.Result[locator]
	if !ok || isNull(raw) {
		c.metrics.RecordResolution("not_found")
		log.Debug("claim not found")
		return nil, nil
	}

	var rc resolvedClaim
	if err := json.Unmarshal(raw, &rc); err != nil {
		c.metrics.RecordResolution("error")
		return nil, domain.NewResolutionError("malformed claim in resolve response", nil, err)
	}
	if len(rc.Error) > 0 && !isNull(rc.Error) {
		c.metrics.RecordResolution("not_found")
		log.Debug("claim resolved with error", zap.ByteString("error", rc.Error))
		return nil, nil
	}

	publicKey, err := hex.DecodeString(rc.Value.PublicKey)
	if err != nil || len(publicKey) == 0 {
		c.metrics.RecordResolution("error")
		return nil, domain.NewResolutionError("claim has no usable public key", nil, err)
	}

	c.metrics.RecordResolution("found")
	return &domain.Claim{
		ClaimID:   rc.ClaimID,
		Name:      rc.Name,
		PublicKey: publicKey,
	}, nil
}

func (c *Client) call(ctx context.Context, locator string) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "resolve",
		Params:  rpcParams{URLs: []string{locator}},
	})
	if err != nil {
		return nil, domain.NewResolutionError("encode resolve request", nil, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewResolutionError("build resolve request", nil, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewResolutionError("resolve request failed", nil, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewResolutionError("read resolve response", nil, err)
	}

	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, domain.NewResolutionError("JSON decode error in claim resolution", nil, err)
	}
	if len(out.Error) > 0 && string(out.Error) != "null" {
		var payload any
		_ = json.Unmarshal(out.Error, &payload)
		return nil, domain.NewResolutionError("claim resolution yields error", map[string]any{"error": payload}, nil)
	}
	if out.Result == nil {
		return nil, domain.NewResolutionError("resolve response has neither result nor error", nil, nil)
	}
	return &out, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
