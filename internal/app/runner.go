// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/api"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad/internal/dex/remote"
	"github.com/rovshanmuradov/launchpad/internal/engine"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/lifecycle"
	"github.com/rovshanmuradov/launchpad/internal/migration"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/badgerstore"
	"github.com/rovshanmuradov/launchpad/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad/internal/storage/sqlite"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// Runner owns every long-lived component of the launchpad server.
type Runner struct {
	config    *config.Config
	logger    *logger.Logger
	store     storage.Store
	engine    *engine.Engine
	bus       *events.Bus
	hub       *api.Hub
	collector *metrics.Collector
	server    *http.Server
	shutdown  *lifecycle.ShutdownHandler
}

// OpenStore opens the storage backend named by cfg.Driver.
func OpenStore(cfg config.StoreConfig, log *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreBadger:
		return badgerstore.Open(badgerstore.Config{Path: cfg.Path, SyncWrites: cfg.SyncWrites}, log)
	case config.StoreSQLite:
		return sqlite.Open(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewMarket returns the market graduated assets migrate into. The local
// market is also returned as a pool reader; the remote one has none. The
// local market keeps pools in memory, so it is reloaded from the migration
// records in store.
func NewMarket(ctx context.Context, cfg *config.Config, params registry.Params, store storage.Store, log *zap.Logger) (migration.Market, api.PoolReader, error) {
	if cfg.AMM.Driver == config.AMMRemote {
		return remote.NewClient(remote.Config{
			BaseURL:    cfg.AMM.URL,
			Timeout:    cfg.AMM.Timeout,
			MaxRetries: cfg.AMM.MaxRetries,
		}, log), nil, nil
	}
	dex := pumpswap.NewDEX(pumpswap.Config{
		FeeBasisPoints: cfg.AMM.FeeBps,
		Depositor:      params.ProgramID,
	}, log)
	err := store.View(ctx, func(tx storage.Tx) error {
		assets, err := tx.ListAssets()
		if err != nil {
			return err
		}
		dex.Restore(assets)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("restore pools: %w", err)
	}
	return dex, dex, nil
}

// NewRunner builds the component graph. Components opened before a failure
// are closed again.
func NewRunner(cfg *config.Config, log *logger.Logger) (r *Runner, err error) {
	r = &Runner{
		config:   cfg,
		logger:   log,
		shutdown: lifecycle.NewShutdownHandler(log.Logger, cfg.Server.ShutdownTimeout),
	}
	r.shutdown.Add("logger", log)
	defer func() {
		if err != nil {
			_ = r.shutdown.Shutdown(context.Background())
		}
	}()

	params, err := cfg.LaunchParams()
	if err != nil {
		return nil, err
	}
	burnTo, err := cfg.BurnAddress()
	if err != nil {
		return nil, fmt.Errorf("launch.burn_address: %w", err)
	}

	r.store, err = OpenStore(cfg.Store, log.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	r.shutdown.Add("store", r.store)

	reg, err := registry.New(params, log.Logger)
	if err != nil {
		return nil, err
	}
	market, pools, err := NewMarket(context.Background(), cfg, params, r.store, log.Logger)
	if err != nil {
		return nil, err
	}
	coordinator := migration.NewCoordinator(market, params.ProgramID, burnTo, log.Logger)

	var journal *export.Journal
	if cfg.Events.JournalFile != "" {
		journal, err = export.NewJournal(cfg.Events.JournalFile, cfg.Events.JournalFlush, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("open trade journal: %w", err)
		}
		r.shutdown.Add("trade journal", journal)
	}

	r.bus = events.NewBus(log.Logger, cfg.Events.BufferSize)
	r.shutdown.AddFunc("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.shutdown.Timeout())
		defer cancel()
		return r.bus.Shutdown(ctx)
	})
	if journal != nil {
		journal.Subscribe(r.bus)
	}

	r.collector = metrics.NewCollector()
	r.engine = engine.New(r.store, reg, coordinator, log.Logger,
		engine.WithEvents(r.bus),
		engine.WithMetrics(r.collector),
		engine.WithCurrencyDecimals(cfg.Launch.CurrencyDecimals))

	r.hub = api.NewHub(r.bus, r.collector, log.Logger)
	r.shutdown.Add("websocket hub", r.hub)

	r.server = &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.RouterConfig{
			Service:     r.engine,
			Pools:       pools,
			Hub:         r.hub,
			Metrics:     r.collector,
			CORSOrigins: cfg.Server.CORSOrigins,
			Decimals:    cfg.Launch.CurrencyDecimals,
			Logger:      log.Logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.shutdown.AddFunc("http server", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), r.shutdown.Timeout())
		defer cancel()
		return r.server.Shutdown(ctx)
	})

	return r, nil
}

// Engine exposes the launch engine.
func (r *Runner) Engine() *engine.Engine { return r.engine }

// Run serves HTTP until ctx is cancelled, a signal arrives or the listener
// fails, then shuts every component down in reverse start order.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("HTTP server listening", zap.String("addr", r.server.Addr))
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sig, err := lifecycle.WaitForSignal(gctx)
		if sig != nil {
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
		} else {
			r.logger.Info("Stopping", zap.NamedError("reason", err))
		}
		return r.Shutdown()
	})

	return g.Wait()
}

// Shutdown closes every component once.
func (r *Runner) Shutdown() error {
	return r.shutdown.Shutdown(context.Background())
}
