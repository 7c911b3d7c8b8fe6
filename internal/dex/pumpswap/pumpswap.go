// =============================
// File: internal/dex/pumpswap/pumpswap.go
// =============================
package pumpswap

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/migration"
)

// DEX is an in-process constant-product market that graduated assets are
// migrated into. It keeps pools in memory only.
type DEX struct {
	mu     sync.RWMutex
	config Config
	pools  map[solana.PublicKey]*PoolInfo
	// byKey maps an idempotency key to the pool it created.
	byKey  map[string]solana.PublicKey
	logger *zap.Logger
}

var _ migration.Market = (*DEX)(nil)

// NewDEX creates an empty market.
func NewDEX(config Config, logger *zap.Logger) *DEX {
	return &DEX{
		config: config,
		pools:  make(map[solana.PublicKey]*PoolInfo),
		byKey:  make(map[string]solana.PublicKey),
		logger: logger.Named("pumpswap"),
	}
}

func (d *DEX) disabled(flag uint8) bool {
	return d.config.DisableFlags&flag != 0
}

// CreatePool opens a pool at req.Pool and mints sqrt(base*quote) LP tokens
// to the depositor. Repeating a request with the same idempotency key
// returns the original stake.
func (d *DEX) CreatePool(_ context.Context, req migration.PoolRequest) (migration.PoolToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disabled(DisableCreatePool) {
		return migration.PoolToken{}, fmt.Errorf("create pool: %w", ErrOperationDisabled)
	}
	if req.IdempotencyKey != "" {
		if addr, ok := d.byKey[req.IdempotencyKey]; ok {
			if p := d.pools[addr]; p != nil && !p.Withdrawn {
				return migration.PoolToken{ID: p.TokenID, Pool: p.Address, LPAmount: p.LPSupply, Burned: p.LPBurned}, nil
			}
		}
	}
	if p, ok := d.pools[req.Pool]; ok && !p.Withdrawn {
		return migration.PoolToken{}, fmt.Errorf("%w: %s", ErrPoolExists, req.Pool)
	}
	if req.TokenAmount.IsZero() || req.FundsAmount.IsZero() {
		return migration.PoolToken{}, fmt.Errorf("%w: base %s, quote %s", ErrEmptyReserve, req.TokenAmount, req.FundsAmount)
	}

	lp, err := calculateLPSupply(req.TokenAmount, req.FundsAmount)
	if err != nil {
		return migration.PoolToken{}, fmt.Errorf("lp supply: %w", err)
	}

	pool := &PoolInfo{
		Address:       req.Pool,
		AssetID:       req.AssetID,
		Mint:          req.Mint,
		TokenID:       uuid.New().String(),
		BaseReserves:  req.TokenAmount,
		QuoteReserves: req.FundsAmount,
		LPSupply:      lp,
		LPHolder:      d.config.Depositor,
		FeeBps:        d.config.FeeBasisPoints,
		CreatedAt:     time.Now().UTC(),
	}
	d.pools[req.Pool] = pool
	if req.IdempotencyKey != "" {
		d.byKey[req.IdempotencyKey] = req.Pool
	}

	d.logger.Info("Pool created",
		zap.String("pool", req.Pool.String()),
		zap.Uint64("asset_id", uint64(req.AssetID)),
		zap.Stringer("base_reserves", req.TokenAmount),
		zap.Stringer("quote_reserves", req.FundsAmount),
		zap.Stringer("lp_supply", lp))

	return migration.PoolToken{ID: pool.TokenID, Pool: pool.Address, LPAmount: lp}, nil
}

func (d *DEX) lookup(token migration.PoolToken) (*PoolInfo, error) {
	p, ok := d.pools[token.Pool]
	if !ok || p.TokenID != token.ID {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, token.Pool)
	}
	return p, nil
}

// BurnLPTokens moves the whole LP supply to an unspendable holder.
func (d *DEX) BurnLPTokens(_ context.Context, token migration.PoolToken, to solana.PublicKey) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disabled(DisableBurn) {
		return fmt.Errorf("burn lp: %w", ErrOperationDisabled)
	}
	p, err := d.lookup(token)
	if err != nil {
		return err
	}
	if p.Withdrawn {
		return ErrPoolWithdrawn
	}
	if p.LPBurned {
		return ErrLPAlreadyBurned
	}
	p.LPHolder = to
	p.LPBurned = true

	d.logger.Info("LP tokens burned",
		zap.String("pool", p.Address.String()),
		zap.String("to", to.String()),
		zap.Stringer("lp_supply", p.LPSupply))
	return nil
}

// WithdrawPool returns both reserves to the depositor. Pools whose LP
// tokens are burned can never be withdrawn.
func (d *DEX) WithdrawPool(_ context.Context, token migration.PoolToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disabled(DisableWithdraw) {
		return fmt.Errorf("withdraw: %w", ErrOperationDisabled)
	}
	p, err := d.lookup(token)
	if err != nil {
		return err
	}
	if p.LPBurned {
		return ErrLPAlreadyBurned
	}
	if p.Withdrawn {
		return nil
	}
	p.Withdrawn = true
	p.BaseReserves = fixedpoint.Zero()
	p.QuoteReserves = fixedpoint.Zero()
	p.LPSupply = fixedpoint.Zero()

	d.logger.Warn("Pool withdrawn", zap.String("pool", p.Address.String()))
	return nil
}

// Restore reloads pools recorded by completed migrations, so a restarted
// process serves the same snapshots and recognises replayed requests.
// Assets without a migration record are skipped.
func (d *DEX) Restore(assets []*domain.Asset) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	restored := 0
	for _, a := range assets {
		m := a.Migration
		if m == nil {
			continue
		}
		if _, ok := d.pools[m.Pool]; ok {
			continue
		}
		d.pools[m.Pool] = &PoolInfo{
			Address:       m.Pool,
			AssetID:       a.ID,
			Mint:          a.Mint,
			TokenID:       m.PoolTokenID,
			BaseReserves:  m.TokenAmount,
			QuoteReserves: m.FundsAmount,
			LPSupply:      m.LPBurned,
			LPHolder:      m.BurnAddress,
			LPBurned:      true,
			FeeBps:        d.config.FeeBasisPoints,
			CreatedAt:     m.MigratedAt,
		}
		d.byKey[migration.IdempotencyKey(a)] = m.Pool
		restored++
	}
	if restored > 0 {
		d.logger.Info("Pools restored from migration records", zap.Int("count", restored))
	}
	return restored
}

// Pool returns a snapshot of one pool.
func (d *DEX) Pool(addr solana.PublicKey) (PoolInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.pools[addr]
	if !ok {
		return PoolInfo{}, fmt.Errorf("%w: %s", ErrPoolNotFound, addr)
	}
	return *p, nil
}

// Pools returns snapshots of all pools ordered by asset id.
func (d *DEX) Pools() []PoolInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]PoolInfo, 0, len(d.pools))
	for _, p := range d.pools {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out
}

// Quote prices a swap against current reserves. baseIn selects selling the
// launched token for currency; otherwise currency is sold for tokens.
func (d *DEX) Quote(addr solana.PublicKey, amountIn fixedpoint.Amount, baseIn bool) (SwapQuote, error) {
	p, err := d.Pool(addr)
	if err != nil {
		return SwapQuote{}, err
	}
	if p.Withdrawn {
		return SwapQuote{}, ErrPoolWithdrawn
	}

	in, out := p.QuoteReserves, p.BaseReserves
	if baseIn {
		in, out = p.BaseReserves, p.QuoteReserves
	}
	amountOut, err := calculateOutput(in, out, amountIn, p.FeeBps)
	if err != nil {
		return SwapQuote{}, err
	}

	d.logger.Debug("Swap quote",
		zap.String("pool", addr.String()),
		zap.Bool("base_in", baseIn),
		zap.Stringer("amount_in", amountIn),
		zap.Stringer("amount_out", amountOut))

	return SwapQuote{Pool: addr, BaseIn: baseIn, AmountIn: amountIn, AmountOut: amountOut}, nil
}
