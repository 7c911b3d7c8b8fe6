// =============================
// File: internal/engine/trade.go
// =============================
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

// BuyRequest buys Amount units, paying with Attached.
type BuyRequest struct {
	AssetID  domain.AssetID
	Buyer    solana.PublicKey
	Amount   fixedpoint.Amount
	Attached fixedpoint.Amount
}

// SellRequest sells Amount units back to the curve.
type SellRequest struct {
	AssetID domain.AssetID
	Seller  solana.PublicKey
	Amount  fixedpoint.Amount
}

// Quote prices a trade without executing it.
type Quote struct {
	AssetID   domain.AssetID    `json:"asset_id"`
	Side      domain.Side       `json:"side"`
	Requested fixedpoint.Amount `json:"requested"`
	// Amount is what would be filled; buys stop at the funding goal.
	Amount fixedpoint.Amount `json:"amount"`
	Gross  fixedpoint.Amount `json:"gross"`
	Fee    fixedpoint.Amount `json:"fee"`
	// Total is the buy charge or the sell payout.
	Total       fixedpoint.Amount `json:"total"`
	PriceBefore fixedpoint.Amount `json:"price_before"`
	PriceAfter  fixedpoint.Amount `json:"price_after"`
	Graduates   bool              `json:"graduates"`
}

// fill is a priced buy: the filled amount and its cost.
type fill struct {
	amount fixedpoint.Amount
	cost   curve.Cost
}

// priceBuy prices a buy of amount units, shrinking it to the largest fill
// that keeps FundingRaised within FundingGoal.
func priceBuy(a *domain.Asset, amount fixedpoint.Amount) (fill, error) {
	full, err := a.Curve.Cost(a.CirculatingSold, amount, curve.Buy)
	if err != nil {
		return fill{}, err
	}
	budget, err := fixedpoint.Sub(a.FundingGoal, a.FundingRaised)
	if err != nil {
		return fill{}, fmt.Errorf("asset %d over its goal: %w", a.ID, err)
	}
	if !full.Gross.GreaterThan(budget) {
		return fill{amount: amount, cost: full}, nil
	}

	capped, err := a.Curve.MaxBuyWithin(a.CirculatingSold, amount, budget)
	if err != nil {
		return fill{}, err
	}
	if capped.IsZero() {
		return fill{}, fmt.Errorf("%w: asset %d has no room under its funding goal", domain.ErrOutOfRange, a.ID)
	}
	cost, err := a.Curve.Cost(a.CirculatingSold, capped, curve.Buy)
	if err != nil {
		return fill{}, err
	}
	return fill{amount: capped, cost: cost}, nil
}

// applyBuy mutates a and returns the buyer's charge.
func applyBuy(a *domain.Asset, f fill) (fixedpoint.Amount, error) {
	charge, err := f.cost.Charge()
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	sold, err := fixedpoint.Add(a.CirculatingSold, f.amount)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	raised, err := fixedpoint.Add(a.FundingRaised, f.cost.Gross)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	fees, err := fixedpoint.Add(a.ProtocolFeeAccrued, f.cost.Fee)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	a.CirculatingSold, a.FundingRaised, a.ProtocolFeeAccrued = sold, raised, fees
	return charge, nil
}

// applySell mutates a and returns the seller's payout.
func applySell(a *domain.Asset, amount fixedpoint.Amount, cost curve.Cost) (fixedpoint.Amount, error) {
	payout, err := cost.Payout()
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	raised, err := fixedpoint.Sub(a.FundingRaised, cost.Gross)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: asset %d raised %s, sell needs %s",
			domain.ErrUnderfunded, a.ID, a.FundingRaised, cost.Gross)
	}
	sold, err := fixedpoint.Sub(a.CirculatingSold, amount)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	fees, err := fixedpoint.Add(a.ProtocolFeeAccrued, cost.Fee)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	a.CirculatingSold, a.FundingRaised, a.ProtocolFeeAccrued = sold, raised, fees
	return payout, nil
}

func validateTrade(a *domain.Asset, amount fixedpoint.Amount) error {
	if a.Graduated {
		return fmt.Errorf("asset %d: %w", a.ID, domain.ErrAlreadyGraduated)
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: %w: amount must be positive", domain.ErrOutOfRange, domain.ErrInvalidAmount)
	}
	return nil
}

func credit(tx storage.Tx, id domain.AssetID, holder solana.PublicKey, amount fixedpoint.Amount) error {
	bal, err := tx.Balance(id, holder)
	if err != nil {
		return err
	}
	bal, err = fixedpoint.Add(bal, amount)
	if err != nil {
		return err
	}
	return tx.SetBalance(id, holder, bal)
}

func addTradeFee(tx storage.Tx, fee fixedpoint.Amount) error {
	t, err := tx.Treasury()
	if err != nil {
		return err
	}
	t.TradeFees, err = fixedpoint.Add(t.TradeFees, fee)
	if err != nil {
		return err
	}
	return tx.PutTreasury(t)
}

// Buy fills up to req.Amount units. If the fill saturates the funding goal
// the asset is migrated inside the same transaction; a market failure rolls
// the buy back and returns an error matching domain.ErrExternalDepositFailed.
// Cancelling ctx does not interrupt a started buy.
func (e *Engine) Buy(ctx context.Context, req BuyRequest) (*domain.Receipt, error) {
	start := time.Now()
	receipt, graduated, err := e.buy(context.WithoutCancel(ctx), req)
	if e.metrics != nil {
		e.metrics.RecordTrade(ctx, string(domain.SideBuy), time.Since(start), err)
	}
	if err != nil {
		e.logger.Debug("Buy rejected",
			zap.Uint64("asset_id", uint64(req.AssetID)),
			zap.Stringer("amount", req.Amount),
			zap.Error(err))
		if isDepositFailure(err) {
			e.afterMigrationFailure(req.AssetID, err)
		}
		return nil, err
	}

	e.afterTrade(receipt)
	if graduated != nil {
		e.afterGraduation(graduated)
	}
	return receipt, nil
}

func (e *Engine) buy(ctx context.Context, req BuyRequest) (*domain.Receipt, *domain.Asset, error) {
	if err := guard(ctx, req.AssetID); err != nil {
		return nil, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		receipt   *domain.Receipt
		graduated *domain.Asset
	)
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		a, err := e.registry.Get(tx, req.AssetID)
		if err != nil {
			return err
		}
		if err := validateTrade(a, req.Amount); err != nil {
			return err
		}

		f, err := priceBuy(a, req.Amount)
		if err != nil {
			return err
		}
		charge, err := f.cost.Charge()
		if err != nil {
			return err
		}
		if req.Attached.LessThan(charge) {
			return fmt.Errorf("%w: attached %s, cost %s", domain.ErrInsufficientPayment, req.Attached, charge)
		}
		refund, err := fixedpoint.Sub(req.Attached, charge)
		if err != nil {
			return err
		}

		if _, err := applyBuy(a, f); err != nil {
			return err
		}
		if err := credit(tx, a.ID, req.Buyer, f.amount); err != nil {
			return err
		}
		if err := addTradeFee(tx, f.cost.Fee); err != nil {
			return err
		}
		if err := tx.PutAsset(a); err != nil {
			return err
		}

		e.logger.Debug("Buy staged",
			zap.Uint64("asset_id", uint64(a.ID)),
			zap.Stringer("requested", req.Amount),
			zap.Stringer("filled", f.amount),
			zap.Stringer("integral", f.cost.Gross),
			zap.Stringer("fee", f.cost.Fee),
			zap.Stringer("funding_raised", a.FundingRaised))

		done, err := saturated(a)
		if err != nil {
			return err
		}

		receipt = &domain.Receipt{
			ID:           uuid.New().String(),
			AssetID:      a.ID,
			Side:         domain.SideBuy,
			Trader:       req.Buyer,
			Requested:    req.Amount,
			Amount:       f.amount,
			Gross:        f.cost.Gross,
			Fee:          f.cost.Fee,
			Total:        charge,
			Refund:       refund,
			SupplyAfter:  a.CirculatingSold,
			FundingAfter: a.FundingRaised,
			Graduated:    done,
			Timestamp:    e.now(),
		}
		if err := tx.AppendTrade(receipt); err != nil {
			return err
		}

		// market calls come last; only the graduation record follows them
		if done {
			if _, err := e.migrate(ctx, tx, a); err != nil {
				return err
			}
			graduated = a
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return receipt, graduated, nil
}

// Sell burns req.Amount units from the seller and pays out the curve
// integral minus the fee.
func (e *Engine) Sell(ctx context.Context, req SellRequest) (*domain.Receipt, error) {
	start := time.Now()
	receipt, err := e.sell(context.WithoutCancel(ctx), req)
	if e.metrics != nil {
		e.metrics.RecordTrade(ctx, string(domain.SideSell), time.Since(start), err)
	}
	if err != nil {
		e.logger.Debug("Sell rejected",
			zap.Uint64("asset_id", uint64(req.AssetID)),
			zap.Stringer("amount", req.Amount),
			zap.Error(err))
		return nil, err
	}
	e.afterTrade(receipt)
	return receipt, nil
}

func (e *Engine) sell(ctx context.Context, req SellRequest) (*domain.Receipt, error) {
	if err := guard(ctx, req.AssetID); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var receipt *domain.Receipt
	err := e.store.Update(ctx, func(tx storage.Tx) error {
		a, err := e.registry.Get(tx, req.AssetID)
		if err != nil {
			return err
		}
		if err := validateTrade(a, req.Amount); err != nil {
			return err
		}

		held, err := tx.Balance(a.ID, req.Seller)
		if err != nil {
			return err
		}
		if held.LessThan(req.Amount) {
			return fmt.Errorf("%w: holds %s, selling %s", domain.ErrInsufficientBalance, held, req.Amount)
		}

		cost, err := a.Curve.Cost(a.CirculatingSold, req.Amount, curve.Sell)
		if err != nil {
			return err
		}
		payout, err := applySell(a, req.Amount, cost)
		if err != nil {
			return err
		}

		left, err := fixedpoint.Sub(held, req.Amount)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(a.ID, req.Seller, left); err != nil {
			return err
		}
		if err := addTradeFee(tx, cost.Fee); err != nil {
			return err
		}
		if err := tx.PutAsset(a); err != nil {
			return err
		}

		e.logger.Debug("Sell staged",
			zap.Uint64("asset_id", uint64(a.ID)),
			zap.Stringer("amount", req.Amount),
			zap.Stringer("integral", cost.Gross),
			zap.Stringer("fee", cost.Fee),
			zap.Stringer("funding_raised", a.FundingRaised))

		receipt = &domain.Receipt{
			ID:           uuid.New().String(),
			AssetID:      a.ID,
			Side:         domain.SideSell,
			Trader:       req.Seller,
			Requested:    req.Amount,
			Amount:       req.Amount,
			Gross:        cost.Gross,
			Fee:          cost.Fee,
			Total:        payout,
			SupplyAfter:  a.CirculatingSold,
			FundingAfter: a.FundingRaised,
			Timestamp:    e.now(),
		}
		return tx.AppendTrade(receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Quote prices a trade against the current state without changing it.
func (e *Engine) Quote(ctx context.Context, id domain.AssetID, amount fixedpoint.Amount, dir curve.Direction) (Quote, error) {
	var q Quote
	err := e.store.View(ctx, func(tx storage.Tx) error {
		a, err := e.registry.Get(tx, id)
		if err != nil {
			return err
		}
		if err := validateTrade(a, amount); err != nil {
			return err
		}
		before, err := a.Curve.PriceAt(a.CirculatingSold)
		if err != nil {
			return err
		}
		q = Quote{AssetID: id, Requested: amount, PriceBefore: before}

		switch dir {
		case curve.Buy:
			f, err := priceBuy(a, amount)
			if err != nil {
				return err
			}
			if q.Total, err = applyBuy(a, f); err != nil {
				return err
			}
			if q.Graduates, err = saturated(a); err != nil {
				return err
			}
			q.Side, q.Amount, q.Gross, q.Fee = domain.SideBuy, f.amount, f.cost.Gross, f.cost.Fee
		case curve.Sell:
			cost, err := a.Curve.Cost(a.CirculatingSold, amount, curve.Sell)
			if err != nil {
				return err
			}
			if q.Total, err = applySell(a, amount, cost); err != nil {
				return err
			}
			q.Side, q.Amount, q.Gross, q.Fee = domain.SideSell, amount, cost.Gross, cost.Fee
		default:
			return fmt.Errorf("unknown direction %d", int(dir))
		}

		q.PriceAfter, err = a.Curve.PriceAt(a.CirculatingSold)
		return err
	})
	return q, err
}
