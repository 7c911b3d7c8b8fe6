package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// Side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Receipt describes one settled trade. Receipts are also the entries of the
// per-asset trade journal.
type Receipt struct {
	ID      string           `json:"id"`
	Seq     uint64           `json:"seq"`
	AssetID AssetID          `json:"asset_id"`
	Side    Side             `json:"side"`
	Trader  solana.PublicKey `json:"trader"`

	// Requested may exceed Amount when a buy was capped at the funding goal.
	Requested fixedpoint.Amount `json:"requested"`
	Amount    fixedpoint.Amount `json:"amount"`
	Gross     fixedpoint.Amount `json:"gross"`
	Fee       fixedpoint.Amount `json:"fee"`
	// Total is the buyer's charge or the seller's payout.
	Total  fixedpoint.Amount `json:"total"`
	Refund fixedpoint.Amount `json:"refund"`

	SupplyAfter  fixedpoint.Amount `json:"supply_after"`
	FundingAfter fixedpoint.Amount `json:"funding_after"`
	Graduated    bool              `json:"graduated"`
	Timestamp    time.Time         `json:"timestamp"`
}

// CreateReceipt is returned by asset creation.
type CreateReceipt struct {
	AssetID    AssetID           `json:"asset_id"`
	Mint       solana.PublicKey  `json:"mint"`
	FeePaid    fixedpoint.Amount `json:"fee_paid"`
	Refund     fixedpoint.Amount `json:"refund"`
	Allocation fixedpoint.Amount `json:"allocation"`
}
