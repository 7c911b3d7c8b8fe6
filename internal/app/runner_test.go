package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad/internal/dex/remote"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/migration"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LAUNCHPAD_STORE_DRIVER", config.StoreMemory)
	t.Setenv("LAUNCHPAD_SERVER_ADDR", "127.0.0.1:0")
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestOpenStore(t *testing.T) {
	log := zaptest.NewLogger(t)

	_, err := OpenStore(config.StoreConfig{Driver: "etcd"}, log)
	assert.ErrorContains(t, err, "unknown store driver")

	s, err := OpenStore(config.StoreConfig{Driver: config.StoreSQLite, Path: filepath.Join(t.TempDir(), "db", "launchpad.db")}, log)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(config.StoreConfig{Driver: config.StoreBadger, Path: filepath.Join(t.TempDir(), "badger")}, log)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNewMarket(t *testing.T) {
	cfg := testConfig(t)
	params := registry.Params{ProgramID: solana.PublicKey{5}}
	ctx := context.Background()

	market, pools, err := NewMarket(ctx, cfg, params, memory.New(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &pumpswap.DEX{}, market)
	assert.NotNil(t, pools)

	cfg.AMM.Driver = config.AMMRemote
	cfg.AMM.URL = "http://127.0.0.1:9"
	market, pools, err = NewMarket(ctx, cfg, params, memory.New(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &remote.Client{}, market)
	assert.Nil(t, pools)
}

func TestNewMarketRestoresMigratedPools(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	store := memory.New()

	pool := solana.PublicKey{0xee}
	graduated := &domain.Asset{
		ID:        1,
		Mint:      solana.PublicKey{7},
		Graduated: true,
		Migration: &domain.Migration{
			Pool:        pool,
			PoolTokenID: "lp-1",
			TokenAmount: fixedpoint.FromUint64(153_668),
			FundsAmount: fixedpoint.FromUint64(90_000),
			LPBurned:    fixedpoint.FromUint64(117_600),
			BurnAddress: domain.BurnAddress,
			MigratedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
	active := &domain.Asset{ID: 2, Mint: solana.PublicKey{8}}
	require.NoError(t, store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.PutAsset(graduated); err != nil {
			return err
		}
		return tx.PutAsset(active)
	}))

	market, pools, err := NewMarket(ctx, cfg, registry.Params{ProgramID: solana.PublicKey{5}}, store, zaptest.NewLogger(t))
	require.NoError(t, err)

	info, err := pools.Pool(pool)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID(1), info.AssetID)
	assert.True(t, info.LPBurned)
	assert.Equal(t, domain.BurnAddress, info.LPHolder)
	assert.Equal(t, "153668", info.BaseReserves.String())
	assert.Len(t, market.(*pumpswap.DEX).Pools(), 1)

	// a replay of the original request finds the burned stake
	token, err := market.CreatePool(ctx, migration.PoolRequest{
		AssetID:        1,
		Pool:           pool,
		TokenAmount:    fixedpoint.FromUint64(153_668),
		FundsAmount:    fixedpoint.FromUint64(90_000),
		IdempotencyKey: migration.IdempotencyKey(graduated),
	})
	require.NoError(t, err)
	assert.Equal(t, "lp-1", token.ID)
	assert.True(t, token.Burned)
}

func TestRunnerLifecycle(t *testing.T) {
	cfg := testConfig(t)
	log, err := logger.New(&logger.Config{})
	require.NoError(t, err)

	r, err := NewRunner(cfg, log)
	require.NoError(t, err)

	receipt, err := r.Engine().Create(context.Background(), registry.CreateRequest{
		Creator:  solana.PublicKey{1},
		Metadata: domain.Metadata{Name: "Moon", Symbol: "MOON"},
		Attached: r.Engine().Params().CreationFee,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID(1), receipt.AssetID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	// second shutdown is a no-op
	require.NoError(t, r.Shutdown())
}

func TestRunnerWritesTradeJournal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.JournalFile = filepath.Join(t.TempDir(), "trades.csv")
	log, err := logger.New(&logger.Config{})
	require.NoError(t, err)

	r, err := NewRunner(cfg, log)
	require.NoError(t, err)
	require.NoError(t, r.Shutdown())

	assert.FileExists(t, cfg.Events.JournalFile)
}

func TestNewRunnerRejectsBadStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "etcd"
	log, err := logger.New(&logger.Config{})
	require.NoError(t, err)

	_, err = NewRunner(cfg, log)
	assert.ErrorContains(t, err, "open store")
}
