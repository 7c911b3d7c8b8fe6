// internal/dex/remote/client.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/migration"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 3
	defaultRetryDelay     = 200 * time.Millisecond
	idempotencyHeader     = "Idempotency-Key"
)

// Config for the AMM service client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client talks to an external AMM service over HTTP. Every request carries
// an idempotency key so transport-level retries cannot open two pools.
type Client struct {
	client     *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

var _ migration.Market = (*Client)(nil)

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("amm service returned %d: %s", e.Code, e.Body)
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger.Named("amm-client"),
	}
}

type burnRequest struct {
	Pool solana.PublicKey `json:"pool"`
	To   solana.PublicKey `json:"to"`
}

type withdrawRequest struct {
	Pool solana.PublicKey `json:"pool"`
}

// CreatePool calls POST /pools.
func (c *Client) CreatePool(ctx context.Context, req migration.PoolRequest) (migration.PoolToken, error) {
	var token migration.PoolToken
	err := c.do(ctx, "/pools", req.IdempotencyKey, req, &token)
	if err != nil {
		return migration.PoolToken{}, fmt.Errorf("create pool for asset %d: %w", req.AssetID, err)
	}
	return token, nil
}

// BurnLPTokens calls POST /pools/{id}/burn.
func (c *Client) BurnLPTokens(ctx context.Context, token migration.PoolToken, to solana.PublicKey) error {
	path := fmt.Sprintf("/pools/%s/burn", token.ID)
	if err := c.do(ctx, path, token.ID+":burn", burnRequest{Pool: token.Pool, To: to}, nil); err != nil {
		return fmt.Errorf("burn lp %s: %w", token.ID, err)
	}
	return nil
}

// WithdrawPool calls POST /pools/{id}/withdraw.
func (c *Client) WithdrawPool(ctx context.Context, token migration.PoolToken) error {
	path := fmt.Sprintf("/pools/%s/withdraw", token.ID)
	if err := c.do(ctx, path, token.ID+":withdraw", withdrawRequest{Pool: token.Pool}, nil); err != nil {
		return fmt.Errorf("withdraw pool %s: %w", token.ID, err)
	}
	return nil
}

// do posts body as JSON and decodes the answer into out. Transport errors,
// 429 and 5xx are retried with exponential backoff; other statuses are final.
func (c *Client) do(ctx context.Context, path, key string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.MaxInterval = c.retryDelay * 10

	notify := func(err error, d time.Duration) {
		c.logger.Warn("Retrying AMM request", zap.String("path", path), zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set(idempotencyHeader, key)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return raw, nil
		}
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries)),
		backoff.WithNotify(notify))
	if err != nil {
		return err
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
