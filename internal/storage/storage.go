// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// Store is the transactional catalog of assets, holder balances, the
// treasury and the trade journal. Update applies everything fn wrote or
// nothing at all: if fn returns an error the staged writes are discarded.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is a unit of work. Records returned by Tx are copies; changes reach the
// store only through the Put/Set/Append methods. Writes inside a View fail
// with domain.ErrReadOnly.
type Tx interface {
	// NextAssetID reserves the next sequential id.
	NextAssetID() (domain.AssetID, error)
	// GetAsset fails with domain.ErrNotFound.
	GetAsset(id domain.AssetID) (*domain.Asset, error)
	PutAsset(asset *domain.Asset) error
	// ListAssets returns assets in creation order.
	ListAssets() ([]*domain.Asset, error)

	// Balance of a missing holder is zero.
	Balance(id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error)
	SetBalance(id domain.AssetID, holder solana.PublicKey, amount fixedpoint.Amount) error

	Treasury() (domain.Treasury, error)
	PutTreasury(t domain.Treasury) error

	// AppendTrade assigns the next per-asset sequence number to r.Seq.
	AppendTrade(r *domain.Receipt) error
	// ListTrades returns the journal of one asset in sequence order.
	ListTrades(id domain.AssetID) ([]*domain.Receipt, error)
}

// ErrClosed is returned by a Store after Close.
var ErrClosed = errors.New("store closed")
