// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// EventType represents the type of event.
type EventType string

const (
	// Registry events
	AssetCreated EventType = "asset.created"

	// Trade events
	TokensBought EventType = "trade.bought"
	TokensSold   EventType = "trade.sold"

	// Lifecycle events
	AssetGraduated  EventType = "asset.graduated"
	MigrationFailed EventType = "migration.failed"

	// All matches every event type when subscribing.
	All EventType = "*"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// AssetCreatedEvent is emitted after a new asset is registered.
type AssetCreatedEvent struct {
	BaseEvent
	AssetID domain.AssetID    `json:"asset_id"`
	Mint    string            `json:"mint"`
	Creator string            `json:"creator"`
	Name    string            `json:"name"`
	Symbol  string            `json:"symbol"`
	FeePaid fixedpoint.Amount `json:"fee_paid"`
	Supply  fixedpoint.Amount `json:"supply"`
}

// TradeEvent is emitted for every committed buy or sell.
type TradeEvent struct {
	BaseEvent
	Receipt domain.Receipt    `json:"receipt"`
	Price   fixedpoint.Amount `json:"price"`
}

// AssetGraduatedEvent is emitted once an asset's liquidity has moved to the market.
type AssetGraduatedEvent struct {
	BaseEvent
	AssetID   domain.AssetID   `json:"asset_id"`
	Migration domain.Migration `json:"migration"`
}

// MigrationFailedEvent is emitted when the market rejected a deposit and the
// triggering operation was rolled back.
type MigrationFailedEvent struct {
	BaseEvent
	AssetID domain.AssetID `json:"asset_id"`
	Reason  string         `json:"reason"`
}
