package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(filepath.Join(t.TempDir(), "launchpad.db"), zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "launchpad.db")
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	s, err := Open(path, logger)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := storagetest.NewAsset(t, tx, "durable")
		a.Graduated = true
		a.Migration = &domain.Migration{PoolTokenID: "lp-7", LPBurned: fixedpoint.FromUint64(99)}
		require.NoError(t, tx.PutAsset(a))
		return tx.AppendTrade(&domain.Receipt{ID: "r1", AssetID: a.ID, Side: domain.SideBuy})
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path, logger)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.View(ctx, func(tx storage.Tx) error {
		a, err := tx.GetAsset(1)
		require.NoError(t, err)
		assert.True(t, a.Graduated)
		require.NotNil(t, a.Migration)
		assert.Equal(t, "lp-7", a.Migration.PoolTokenID)
		assert.Equal(t, "99", a.Migration.LPBurned.String())

		trades, err := tx.ListTrades(1)
		require.NoError(t, err)
		assert.Len(t, trades, 1)
		return nil
	}))
}
