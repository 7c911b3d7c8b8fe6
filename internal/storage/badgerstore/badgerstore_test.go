package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/storagetest"
)

func TestStoreConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(Config{InMemory: true}, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	s, err := Open(Config{Path: dir, SyncWrites: true}, logger)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := storagetest.NewAsset(t, tx, "durable")
		a.FundingRaised = fixedpoint.MustParse("12345678901234567890123")
		require.NoError(t, tx.PutAsset(a))
		return tx.SetBalance(a.ID, storagetest.Holder, fixedpoint.FromUint64(200_000))
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: dir}, logger)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.View(ctx, func(tx storage.Tx) error {
		a, err := tx.GetAsset(1)
		require.NoError(t, err)
		assert.Equal(t, "durable", a.Metadata.Name)
		assert.Equal(t, "12345678901234567890123", a.FundingRaised.String())

		bal, err := tx.Balance(1, storagetest.Holder)
		require.NoError(t, err)
		assert.Equal(t, "200000", bal.String())
		return nil
	}))

	require.NoError(t, reopened.Update(ctx, func(tx storage.Tx) error {
		id, err := tx.NextAssetID()
		require.NoError(t, err)
		assert.EqualValues(t, 2, id)
		return nil
	}))
}

func TestCancelledContext(t *testing.T) {
	s, err := Open(Config{InMemory: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Update(ctx, func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
