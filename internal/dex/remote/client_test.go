package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/migration"
)

func newTestClient(t *testing.T, url string) *Client {
	return NewClient(Config{BaseURL: url, Timeout: time.Second, MaxRetries: 3, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
}

func TestCreatePoolRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	pool := solana.PublicKey{4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pools", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get(idempotencyHeader))

		var req migration.PoolRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "150000", req.TokenAmount.String())

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(migration.PoolToken{ID: "lp-1", Pool: pool, LPAmount: fixedpoint.FromUint64(42)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	token, err := c.CreatePool(context.Background(), migration.PoolRequest{
		AssetID:        1,
		Pool:           pool,
		TokenAmount:    fixedpoint.FromUint64(150_000),
		FundsAmount:    fixedpoint.FromUint64(90_000),
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "lp-1", token.ID)
	assert.Equal(t, pool, token.Pool)
	assert.Equal(t, "42", token.LPAmount.String())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "pool exists", http.StatusConflict)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.CreatePool(context.Background(), migration.PoolRequest{IdempotencyKey: "key-1"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.Equal(t, "pool exists", statusErr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.WithdrawPool(context.Background(), migration.PoolToken{ID: "lp-1"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBurnAndWithdrawPaths(t *testing.T) {
	seen := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.Path + " " + r.Header.Get(idempotencyHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/")
	token := migration.PoolToken{ID: "lp-7", Pool: solana.PublicKey{1}}
	require.NoError(t, c.BurnLPTokens(context.Background(), token, solana.PublicKey{}))
	require.NoError(t, c.WithdrawPool(context.Background(), token))

	assert.Equal(t, "/pools/lp-7/burn lp-7:burn", <-seen)
	assert.Equal(t, "/pools/lp-7/withdraw lp-7:withdraw", <-seen)
}
