package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/utils/units"
)

// Everything below runs after commit; nothing here can fail an operation.

// publish waits for room on the bus so no committed event is dropped.
func (e *Engine) publish(ev events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.PublishWait(context.Background(), ev); err != nil {
		e.logger.Warn("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}

func (e *Engine) afterCreate(a *domain.Asset, r domain.CreateReceipt) {
	if e.metrics != nil {
		e.metrics.RecordAssetCreated()
		e.metrics.RecordFee("creation", units.Float64(r.FeePaid, e.decimals))
	}
	e.publish(events.AssetCreatedEvent{
		BaseEvent: events.NewBase(events.AssetCreated),
		AssetID:   a.ID,
		Mint:      a.Mint.String(),
		Creator:   a.Creator.String(),
		Name:      a.Metadata.Name,
		Symbol:    a.Metadata.Symbol,
		FeePaid:   r.FeePaid,
		Supply:    r.Allocation,
	})
}

func (e *Engine) afterTrade(r *domain.Receipt) {
	if e.metrics != nil {
		e.metrics.RecordFee("trade", units.Float64(r.Fee, e.decimals))
	}
	typ := events.TokensBought
	if r.Side == domain.SideSell {
		typ = events.TokensSold
	}

	ev := events.TradeEvent{BaseEvent: events.NewBase(typ), Receipt: *r}
	// average fill price
	if price, err := fixedpoint.MulDiv(r.Gross, fixedpoint.FromUint64(1), r.Amount); err == nil {
		ev.Price = price
	}
	e.publish(ev)
}

func (e *Engine) afterGraduation(a *domain.Asset) {
	if a.Migration == nil {
		return
	}
	m := *a.Migration
	e.logger.Info("Asset graduated",
		zap.Uint64("asset_id", uint64(a.ID)),
		zap.String("pool", m.Pool.String()),
		zap.Stringer("token_amount", m.TokenAmount),
		zap.Stringer("funds_amount", m.FundsAmount))

	if e.metrics != nil {
		e.metrics.RecordGraduation(true)
		e.metrics.UpdatePoolLiquidity(uint64(a.ID), units.Float64(m.TokenAmount, 0), units.Float64(m.FundsAmount, e.decimals))
	}
	e.publish(events.AssetGraduatedEvent{
		BaseEvent: events.NewBase(events.AssetGraduated),
		AssetID:   a.ID,
		Migration: m,
	})
}

func (e *Engine) afterMigrationFailure(id domain.AssetID, err error) {
	if !isDepositFailure(err) {
		return
	}
	e.logger.Error("Migration rolled back", zap.Uint64("asset_id", uint64(id)), zap.Error(err))
	if e.metrics != nil {
		e.metrics.RecordGraduation(false)
	}
	e.publish(events.MigrationFailedEvent{
		BaseEvent: events.NewBase(events.MigrationFailed),
		AssetID:   id,
		Reason:    err.Error(),
	})
}
