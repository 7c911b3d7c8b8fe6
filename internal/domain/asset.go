// =============================
// File: internal/domain/asset.go
// =============================
package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// AssetID is the sequential catalog index. IDs start at 1.
type AssetID uint64

// Metadata limits.
const (
	MaxNameLength        = 64
	MaxSymbolLength      = 16
	MaxDescriptionLength = 1024
	MaxImageLength       = 512
)

// Metadata is display data; the engine never interprets it.
type Metadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Validate requires a name and a symbol and bounds every field.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMetadata)
	}
	if strings.TrimSpace(m.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidMetadata)
	}
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"name", m.Name, MaxNameLength},
		{"symbol", m.Symbol, MaxSymbolLength},
		{"description", m.Description, MaxDescriptionLength},
		{"image", m.Image, MaxImageLength},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return fmt.Errorf("%w: %s longer than %d characters", ErrInvalidMetadata, l.field, l.max)
		}
	}
	return nil
}

// Asset is the stored record of one launched token.
type Asset struct {
	ID       AssetID          `json:"id"`
	Creator  solana.PublicKey `json:"creator"`
	Mint     solana.PublicKey `json:"mint"`
	Metadata Metadata         `json:"metadata"`

	// Curve and FundingGoal are the launch parameters in force at creation.
	Curve             curve.Params      `json:"curve"`
	FundingGoal       fixedpoint.Amount `json:"funding_goal"`
	InitialAllocation fixedpoint.Amount `json:"initial_allocation"`

	CirculatingSold    fixedpoint.Amount `json:"circulating_sold"`
	FundingRaised      fixedpoint.Amount `json:"funding_raised"`
	ProtocolFeeAccrued fixedpoint.Amount `json:"protocol_fee_accrued"`
	Graduated          bool              `json:"graduated"`
	Migration          *Migration        `json:"migration,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	c := *a
	if a.Migration != nil {
		m := *a.Migration
		c.Migration = &m
	}
	return &c
}

// GoalReached reports whether the funding goal has been hit.
func (a *Asset) GoalReached() bool {
	return !a.FundingRaised.LessThan(a.FundingGoal)
}

// Migration records where an asset's liquidity went at graduation.
type Migration struct {
	Pool        solana.PublicKey  `json:"pool"`
	PoolTokenID string            `json:"pool_token_id"`
	TokenAmount fixedpoint.Amount `json:"token_amount"`
	FundsAmount fixedpoint.Amount `json:"funds_amount"`
	LPBurned    fixedpoint.Amount `json:"lp_burned"`
	BurnAddress solana.PublicKey  `json:"burn_address"`
	MigratedAt  time.Time         `json:"migrated_at"`
}

// AssetView is the read model handed to callers.
type AssetView struct {
	*Asset
	CurrentPrice fixedpoint.Amount `json:"current_price"`
	TotalSupply  fixedpoint.Amount `json:"total_supply"`
	// ProgressBps is fundingRaised/fundingGoal in basis points.
	ProgressBps uint64 `json:"progress_bps"`
}

// Treasury accumulates protocol revenue across all assets.
type Treasury struct {
	CreationFees fixedpoint.Amount `json:"creation_fees"`
	TradeFees    fixedpoint.Amount `json:"trade_fees"`
}
