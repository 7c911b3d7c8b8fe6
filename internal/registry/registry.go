// =============================
// File: internal/registry/registry.go
// =============================
package registry

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// Params are the launch terms applied to every new asset.
type Params struct {
	CreationFee       fixedpoint.Amount
	InitialAllocation fixedpoint.Amount
	FundingGoal       fixedpoint.Amount
	Curve             curve.Params
	ProgramID         solana.PublicKey
}

// Validate checks the curve and that it can reach the goal.
func (p Params) Validate() error {
	if err := p.Curve.Validate(); err != nil {
		return err
	}
	return p.Curve.CheckGoal(p.FundingGoal)
}

// CreateRequest carries a creation call.
type CreateRequest struct {
	Creator  solana.PublicKey
	Metadata domain.Metadata
	// Attached is the value sent with the call; it must cover the creation fee.
	Attached fixedpoint.Amount
}

// Registry creates assets and reads the catalog. It owns no state of its
// own; every call works inside the caller's storage transaction.
type Registry struct {
	params Params
	logger *zap.Logger
	now    func() time.Time
}

// New validates params and returns a registry.
func New(params Params, logger *zap.Logger) (*Registry, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launch params: %w", err)
	}
	return &Registry{
		params: params,
		logger: logger.Named("registry"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Params returns the launch terms.
func (r *Registry) Params() Params { return r.params }

// Create appends a new asset to the catalog, mints the initial allocation
// to the creator and moves the creation fee into the treasury. Any value
// attached above the fee is reported as a refund.
func (r *Registry) Create(tx storage.Tx, req CreateRequest) (*domain.Asset, domain.CreateReceipt, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, domain.CreateReceipt{}, err
	}
	refund, err := fixedpoint.Sub(req.Attached, r.params.CreationFee)
	if err != nil {
		return nil, domain.CreateReceipt{}, fmt.Errorf("%w: attached %s, fee %s",
			domain.ErrInsufficientFee, req.Attached, r.params.CreationFee)
	}

	treasury, err := tx.Treasury()
	if err != nil {
		return nil, domain.CreateReceipt{}, err
	}
	treasury.CreationFees, err = fixedpoint.Add(treasury.CreationFees, r.params.CreationFee)
	if err != nil {
		return nil, domain.CreateReceipt{}, err
	}

	id, err := tx.NextAssetID()
	if err != nil {
		return nil, domain.CreateReceipt{}, err
	}
	mint, err := domain.DeriveAddress(r.params.ProgramID, domain.SeedMint, id)
	if err != nil {
		return nil, domain.CreateReceipt{}, err
	}

	asset := &domain.Asset{
		ID:                id,
		Creator:           req.Creator,
		Mint:              mint,
		Metadata:          req.Metadata,
		Curve:             r.params.Curve,
		FundingGoal:       r.params.FundingGoal,
		InitialAllocation: r.params.InitialAllocation,
		CreatedAt:         r.now(),
	}

	if err := tx.PutAsset(asset); err != nil {
		return nil, domain.CreateReceipt{}, err
	}
	if !r.params.InitialAllocation.IsZero() {
		if err := tx.SetBalance(id, req.Creator, r.params.InitialAllocation); err != nil {
			return nil, domain.CreateReceipt{}, err
		}
	}
	if err := tx.PutTreasury(treasury); err != nil {
		return nil, domain.CreateReceipt{}, err
	}

	r.logger.Debug("Asset staged",
		zap.Uint64("asset_id", uint64(id)),
		zap.String("symbol", req.Metadata.Symbol),
		zap.String("creator", req.Creator.String()),
		zap.String("mint", mint.String()),
		zap.Stringer("fee", r.params.CreationFee),
		zap.Stringer("refund", refund))

	return asset, domain.CreateReceipt{
		AssetID:    id,
		Mint:       mint,
		FeePaid:    r.params.CreationFee,
		Refund:     refund,
		Allocation: r.params.InitialAllocation,
	}, nil
}

// Get returns a copy of one asset.
func (r *Registry) Get(tx storage.Tx, id domain.AssetID) (*domain.Asset, error) {
	a, err := tx.GetAsset(id)
	if err != nil {
		return nil, fmt.Errorf("asset %d: %w", id, err)
	}
	return a, nil
}

// List returns all assets in creation order.
func (r *Registry) List(tx storage.Tx) ([]*domain.Asset, error) {
	return tx.ListAssets()
}
