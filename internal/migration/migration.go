// =============================
// File: internal/migration/migration.go
// =============================
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// PoolRequest asks the market to open a pool seeded with the asset's
// remaining curve supply and its raised funds.
type PoolRequest struct {
	AssetID     domain.AssetID    `json:"asset_id"`
	Mint        solana.PublicKey  `json:"mint"`
	Pool        solana.PublicKey  `json:"pool"`
	TokenAmount fixedpoint.Amount `json:"token_amount"`
	FundsAmount fixedpoint.Amount `json:"funds_amount"`
	// IdempotencyKey lets the market recognise a retried request.
	IdempotencyKey string `json:"idempotency_key"`
}

// PoolToken is the ownership stake minted by CreatePool.
type PoolToken struct {
	ID       string            `json:"id"`
	Pool     solana.PublicKey  `json:"pool"`
	LPAmount fixedpoint.Amount `json:"lp_amount"`
	// Burned is set when a replayed request finds the stake already burned.
	Burned bool `json:"burned,omitempty"`
}

// IdempotencyKey is the key under which an asset's pool is requested. It is
// stable across retries so a replay after a lost commit finds the same pool.
func IdempotencyKey(asset *domain.Asset) string {
	return fmt.Sprintf("graduate-%d-%s", asset.ID, asset.Mint)
}

// Market is the external automated market.
type Market interface {
	// CreatePool deposits both reserves and returns the minted LP stake.
	CreatePool(ctx context.Context, req PoolRequest) (PoolToken, error)
	// BurnLPTokens sends the LP stake to an unspendable address.
	BurnLPTokens(ctx context.Context, token PoolToken, to solana.PublicKey) error
	// WithdrawPool unwinds a pool whose LP stake was never burned.
	WithdrawPool(ctx context.Context, token PoolToken) error
}

// Coordinator performs the one-time graduation of an asset.
type Coordinator struct {
	market    Market
	programID solana.PublicKey
	burnTo    solana.PublicKey
	logger    *zap.Logger
	now       func() time.Time
}

// NewCoordinator wires a coordinator to a market. LP stakes are burned to burnTo.
func NewCoordinator(market Market, programID, burnTo solana.PublicKey, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		market:    market,
		programID: programID,
		burnTo:    burnTo,
		logger:    logger.Named("migration"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Migrate moves the asset's remaining curve supply and raised funds into a
// new pool, burns the LP stake and marks the asset graduated. Internal
// writes are staged on tx before the market is called and graduated is set
// last. Any market failure returns a *DepositError; the caller must then
// discard tx so the triggering trade is undone with it.
func (c *Coordinator) Migrate(ctx context.Context, tx storage.Tx, asset *domain.Asset, key string) (*domain.Migration, error) {
	if asset.Graduated {
		return nil, fmt.Errorf("asset %d: %w", asset.ID, domain.ErrAlreadyGraduated)
	}

	// stage
	reserve, err := fixedpoint.Sub(asset.Curve.Cap, asset.CirculatingSold)
	if err != nil {
		return nil, fmt.Errorf("asset %d reserve: %w", asset.ID, err)
	}
	pool, err := domain.DeriveAddress(c.programID, domain.SeedPool, asset.ID)
	if err != nil {
		return nil, err
	}
	held, err := tx.Balance(asset.ID, pool)
	if err != nil {
		return nil, err
	}
	poolBalance, err := fixedpoint.Add(held, reserve)
	if err != nil {
		return nil, err
	}
	if err := tx.SetBalance(asset.ID, pool, poolBalance); err != nil {
		return nil, err
	}

	req := PoolRequest{
		AssetID:        asset.ID,
		Mint:           asset.Mint,
		Pool:           pool,
		TokenAmount:    reserve,
		FundsAmount:    asset.FundingRaised,
		IdempotencyKey: key,
	}
	log := c.logger.With(
		zap.Uint64("asset_id", uint64(asset.ID)),
		zap.String("pool", pool.String()),
		zap.Stringer("token_amount", reserve),
		zap.Stringer("funds_amount", asset.FundingRaised))

	// external
	token, err := c.market.CreatePool(ctx, req)
	if err != nil {
		log.Error("Pool creation failed", zap.Error(err))
		return nil, &DepositError{AssetID: asset.ID, Stage: StageCreatePool, Err: err}
	}
	if token.Burned {
		// an earlier attempt burned the stake but never committed
		log.Warn("LP stake already burned, resuming graduation", zap.String("pool_token", token.ID))
	} else if err := c.market.BurnLPTokens(ctx, token, c.burnTo); err != nil {
		log.Error("LP burn failed, withdrawing pool", zap.String("pool_token", token.ID), zap.Error(err))
		c.withdraw(ctx, token, log)
		return nil, &DepositError{AssetID: asset.ID, Stage: StageBurnLP, Err: err}
	}

	// finalize
	m := &domain.Migration{
		Pool:        token.Pool,
		PoolTokenID: token.ID,
		TokenAmount: reserve,
		FundsAmount: asset.FundingRaised,
		LPBurned:    token.LPAmount,
		BurnAddress: c.burnTo,
		MigratedAt:  c.now(),
	}
	asset.Migration = m
	asset.Graduated = true
	if err := tx.PutAsset(asset); err != nil {
		// LP stake is burned; a retry with the same key resumes from here
		log.Error("Failed to record graduation", zap.Error(err))
		return nil, err
	}

	log.Info("Asset graduated",
		zap.String("pool_token", token.ID),
		zap.Stringer("lp_burned", token.LPAmount))
	return m, nil
}

func (c *Coordinator) withdraw(ctx context.Context, token PoolToken, log *zap.Logger) {
	if err := c.market.WithdrawPool(context.WithoutCancel(ctx), token); err != nil {
		log.Error("Pool withdrawal failed, manual recovery required",
			zap.String("pool_token", token.ID), zap.Error(err))
	}
}
