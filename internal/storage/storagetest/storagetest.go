// Package storagetest holds the behaviour every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

var errAbort = errors.New("abort")

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("assets keep creation order", func(t *testing.T) { testCreationOrder(t, open(t)) })
	t.Run("failed update leaves no trace", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("reads see own writes", func(t *testing.T) { testReadYourWrites(t, open(t)) })
	t.Run("view is read only", func(t *testing.T) { testViewReadOnly(t, open(t)) })
	t.Run("balances and treasury", func(t *testing.T) { testBalancesAndTreasury(t, open(t)) })
	t.Run("trade journal", func(t *testing.T) { testTradeJournal(t, open(t)) })
	t.Run("returned records are copies", func(t *testing.T) { testCopies(t, open(t)) })
}

// Holder is a fixed non-zero key for tests.
var Holder = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")

// NewAsset stages a minimal asset with the next id.
func NewAsset(t *testing.T, tx storage.Tx, name string) *domain.Asset {
	t.Helper()
	id, err := tx.NextAssetID()
	require.NoError(t, err)
	a := &domain.Asset{
		ID:          id,
		Creator:     Holder,
		Metadata:    domain.Metadata{Name: name, Symbol: "TST"},
		FundingGoal: fixedpoint.FromUint64(90_000),
		CreatedAt:   time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, tx.PutAsset(a))
	return a
}

func testCreationOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			NewAsset(t, tx, name)
			return nil
		}))
	}

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		list, err := tx.ListAssets()
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, want := range []string{"first", "second", "third"} {
			assert.Equal(t, domain.AssetID(i+1), list[i].ID)
			assert.Equal(t, want, list[i].Metadata.Name)
		}
		return nil
	}))
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	err := s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "doomed")
		require.NoError(t, tx.SetBalance(a.ID, Holder, fixedpoint.FromUint64(5)))
		require.NoError(t, tx.PutTreasury(domain.Treasury{CreationFees: fixedpoint.FromUint64(1)}))
		require.NoError(t, tx.AppendTrade(&domain.Receipt{AssetID: a.ID, Side: domain.SideBuy}))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetAsset(1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		list, err := tx.ListAssets()
		require.NoError(t, err)
		assert.Empty(t, list)
		bal, err := tx.Balance(1, Holder)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())
		tr, err := tx.Treasury()
		require.NoError(t, err)
		assert.True(t, tr.CreationFees.IsZero())
		trades, err := tx.ListTrades(1)
		require.NoError(t, err)
		assert.Empty(t, trades)
		return nil
	}))

	// the id reserved by the failed update is handed out again
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "kept")
		assert.Equal(t, domain.AssetID(1), a.ID)
		return nil
	}))
}

func testReadYourWrites(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "staged")
		a.CirculatingSold = fixedpoint.FromUint64(10)
		require.NoError(t, tx.PutAsset(a))

		got, err := tx.GetAsset(a.ID)
		require.NoError(t, err)
		assert.Equal(t, "10", got.CirculatingSold.String())

		list, err := tx.ListAssets()
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, tx.SetBalance(a.ID, Holder, fixedpoint.FromUint64(7)))
		bal, err := tx.Balance(a.ID, Holder)
		require.NoError(t, err)
		assert.Equal(t, "7", bal.String())
		return nil
	}))
}

func testViewReadOnly(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.NextAssetID()
		assert.ErrorIs(t, err, domain.ErrReadOnly)
		assert.ErrorIs(t, tx.PutAsset(&domain.Asset{ID: 1}), domain.ErrReadOnly)
		assert.ErrorIs(t, tx.SetBalance(1, Holder, fixedpoint.FromUint64(1)), domain.ErrReadOnly)
		assert.ErrorIs(t, tx.PutTreasury(domain.Treasury{}), domain.ErrReadOnly)
		assert.ErrorIs(t, tx.AppendTrade(&domain.Receipt{AssetID: 1}), domain.ErrReadOnly)
		return nil
	}))
}

func testBalancesAndTreasury(t *testing.T, s storage.Store) {
	ctx := context.Background()
	other := solana.PublicKey{1}
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "bal")
		require.NoError(t, tx.SetBalance(a.ID, Holder, fixedpoint.MustParse("200000")))
		require.NoError(t, tx.SetBalance(a.ID, other, fixedpoint.FromUint64(3)))
		return tx.PutTreasury(domain.Treasury{
			CreationFees: fixedpoint.MustParse("500000000000000000"),
			TradeFees:    fixedpoint.FromUint64(3),
		})
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		bal, err := tx.Balance(1, Holder)
		require.NoError(t, err)
		assert.Equal(t, "200000", bal.String())
		bal, err = tx.Balance(1, other)
		require.NoError(t, err)
		assert.Equal(t, "3", bal.String())
		bal, err = tx.Balance(2, Holder)
		require.NoError(t, err)
		assert.True(t, bal.IsZero())

		tr, err := tx.Treasury()
		require.NoError(t, err)
		assert.Equal(t, "500000000000000000", tr.CreationFees.String())
		assert.Equal(t, "3", tr.TradeFees.String())
		return nil
	}))
}

func testTradeJournal(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "journal")
		first := &domain.Receipt{ID: "r1", AssetID: a.ID, Side: domain.SideBuy, Amount: fixedpoint.FromUint64(10)}
		require.NoError(t, tx.AppendTrade(first))
		assert.Equal(t, uint64(1), first.Seq)
		return nil
	}))
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		second := &domain.Receipt{ID: "r2", AssetID: 1, Side: domain.SideSell, Amount: fixedpoint.FromUint64(4)}
		require.NoError(t, tx.AppendTrade(second))
		assert.Equal(t, uint64(2), second.Seq)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		trades, err := tx.ListTrades(1)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, "r1", trades[0].ID)
		assert.Equal(t, "r2", trades[1].ID)
		assert.Equal(t, domain.SideSell, trades[1].Side)
		assert.Equal(t, "4", trades[1].Amount.String())

		none, err := tx.ListTrades(2)
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	}))
}

func testCopies(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		a := NewAsset(t, tx, "original")
		a.Metadata.Name = "mutated after put"
		return nil
	}))
	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		a, err := tx.GetAsset(1)
		require.NoError(t, err)
		assert.Equal(t, "original", a.Metadata.Name)
		a.Metadata.Name = "mutated after get"

		again, err := tx.GetAsset(1)
		require.NoError(t, err)
		assert.Equal(t, "original", again.Metadata.Name)
		return nil
	}))
}
