// =============================
// File: internal/engine/engine.go
// =============================
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/migration"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// Engine is the single entry point for every state change. Mutating calls
// are serialized by one mutex and each runs inside exactly one storage
// transaction, so a buy and the migration it triggers commit or roll back
// together. Reads go straight to the store.
type Engine struct {
	store    storage.Store
	registry *registry.Registry
	migrator *migration.Coordinator
	bus      *events.Bus
	metrics  *metrics.Collector
	logger   *zap.Logger
	decimals uint8
	now      func() time.Time

	mu sync.Mutex
}

// migratingKey marks the context handed to the market during a migration.
type migratingKey struct{}

// Option configures optional collaborators.
type Option func(*Engine)

// WithEvents publishes launch events to bus after each commit.
func WithEvents(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics records trade, fee and graduation metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithCurrencyDecimals sets the scale used when fees are reported as metrics.
func WithCurrencyDecimals(d uint8) Option {
	return func(e *Engine) { e.decimals = d }
}

// New wires an engine.
func New(store storage.Store, reg *registry.Registry, migrator *migration.Coordinator, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: reg,
		migrator: migrator,
		logger:   logger.Named("engine"),
		decimals: 18,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the launch terms applied to new assets.
func (e *Engine) Params() registry.Params {
	return e.registry.Params()
}

// guard rejects calls made from inside a migration's market calls. The
// caller that started the migration holds mu, so such a call could never
// proceed. Calls from other goroutines wait on mu instead.
func guard(ctx context.Context, id domain.AssetID) error {
	busy, ok := migrating(ctx)
	if !ok {
		return nil
	}
	if busy == id {
		return fmt.Errorf("asset %d: %w", id, domain.ErrMigrationInProgress)
	}
	return fmt.Errorf("asset %d: engine is migrating asset %d: %w", id, busy, domain.ErrMigrationInProgress)
}

func migrating(ctx context.Context) (domain.AssetID, bool) {
	id, ok := ctx.Value(migratingKey{}).(domain.AssetID)
	return id, ok
}

// Create registers a new asset.
func (e *Engine) Create(ctx context.Context, req registry.CreateRequest) (domain.CreateReceipt, error) {
	asset, receipt, err := e.create(context.WithoutCancel(ctx), req)
	if err != nil {
		e.logger.Warn("Asset creation rejected",
			zap.String("creator", req.Creator.String()),
			zap.String("symbol", req.Metadata.Symbol),
			zap.Error(err))
		return domain.CreateReceipt{}, err
	}

	e.logger.Info("Asset created",
		zap.Uint64("asset_id", uint64(receipt.AssetID)),
		zap.String("mint", receipt.Mint.String()),
		zap.String("symbol", asset.Metadata.Symbol))
	e.afterCreate(asset, receipt)
	return receipt, nil
}

func (e *Engine) create(ctx context.Context, req registry.CreateRequest) (*domain.Asset, domain.CreateReceipt, error) {
	if busy, ok := migrating(ctx); ok {
		return nil, domain.CreateReceipt{}, fmt.Errorf("engine is migrating asset %d: %w", busy, domain.ErrMigrationInProgress)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		asset   *domain.Asset
		receipt domain.CreateReceipt
	)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		asset, receipt, err = e.registry.Create(tx, req)
		return err
	})
	return asset, receipt, err
}

// Migrate graduates an asset explicitly. The asset must have met its
// funding condition; a second call fails with ErrAlreadyGraduated and
// never reaches the market. Cancelling ctx does not interrupt a started
// migration.
func (e *Engine) Migrate(ctx context.Context, id domain.AssetID) (*domain.Migration, error) {
	asset, m, err := e.migrateExplicit(context.WithoutCancel(ctx), id)
	if err != nil {
		e.afterMigrationFailure(id, err)
		return nil, err
	}
	e.afterGraduation(asset)
	return m, nil
}

func (e *Engine) migrateExplicit(ctx context.Context, id domain.AssetID) (*domain.Asset, *domain.Migration, error) {
	if err := guard(ctx, id); err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		asset *domain.Asset
		m     *domain.Migration
	)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		asset, err = e.registry.Get(tx, id)
		if err != nil {
			return err
		}
		if asset.Graduated {
			return fmt.Errorf("asset %d: %w", id, domain.ErrAlreadyGraduated)
		}
		ready, err := saturated(asset)
		if err != nil {
			return err
		}
		if !ready {
			return fmt.Errorf("asset %d raised %s of %s: %w", id, asset.FundingRaised, asset.FundingGoal, domain.ErrGoalNotReached)
		}
		m, err = e.migrate(ctx, tx, asset)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return asset, m, nil
}

// migrate runs the coordinator with ctx marked so that calls back into the
// engine from the market fail fast.
func (e *Engine) migrate(ctx context.Context, tx storage.Tx, asset *domain.Asset) (*domain.Migration, error) {
	ctx = context.WithValue(ctx, migratingKey{}, asset.ID)
	return e.migrator.Migrate(ctx, tx, asset, migration.IdempotencyKey(asset))
}

// Get returns the view of one asset.
func (e *Engine) Get(ctx context.Context, id domain.AssetID) (domain.AssetView, error) {
	var view domain.AssetView
	err := e.store.View(ctx, func(tx storage.Tx) error {
		a, err := e.registry.Get(tx, id)
		if err != nil {
			return err
		}
		view, err = newView(a)
		return err
	})
	return view, err
}

// List returns views of all assets in creation order.
func (e *Engine) List(ctx context.Context) ([]domain.AssetView, error) {
	var views []domain.AssetView
	err := e.store.View(ctx, func(tx storage.Tx) error {
		assets, err := e.registry.List(tx)
		if err != nil {
			return err
		}
		views = make([]domain.AssetView, 0, len(assets))
		for _, a := range assets {
			v, err := newView(a)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// BalanceOf returns holder's balance of an asset.
func (e *Engine) BalanceOf(ctx context.Context, id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error) {
	var bal fixedpoint.Amount
	err := e.store.View(ctx, func(tx storage.Tx) error {
		if _, err := e.registry.Get(tx, id); err != nil {
			return err
		}
		var err error
		bal, err = tx.Balance(id, holder)
		return err
	})
	return bal, err
}

// Trades returns the trade journal of an asset.
func (e *Engine) Trades(ctx context.Context, id domain.AssetID) ([]*domain.Receipt, error) {
	var trades []*domain.Receipt
	err := e.store.View(ctx, func(tx storage.Tx) error {
		if _, err := e.registry.Get(tx, id); err != nil {
			return err
		}
		var err error
		trades, err = tx.ListTrades(id)
		return err
	})
	return trades, err
}

// Treasury returns protocol revenue.
func (e *Engine) Treasury(ctx context.Context) (domain.Treasury, error) {
	var t domain.Treasury
	err := e.store.View(ctx, func(tx storage.Tx) error {
		var err error
		t, err = tx.Treasury()
		return err
	})
	return t, err
}

func isDepositFailure(err error) bool {
	return errors.Is(err, domain.ErrExternalDepositFailed)
}
