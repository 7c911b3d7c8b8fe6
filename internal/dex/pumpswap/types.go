// =============================
// File: internal/dex/pumpswap/types.go
// =============================
package pumpswap

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
)

// DisableFlags switch off individual pool operations.
const (
	DisableCreatePool = 1 << iota
	DisableBurn
	DisableWithdraw
)

// Config of the in-process market.
type Config struct {
	// FeeBasisPoints is the swap fee charged on the input side.
	FeeBasisPoints uint32
	// Depositor receives freshly minted LP tokens.
	Depositor    solana.PublicKey
	DisableFlags uint8
}

// DefaultConfig returns a 0.25% swap fee with everything enabled.
func DefaultConfig() Config {
	return Config{FeeBasisPoints: 25}
}

// PoolInfo is a snapshot of one pool.
type PoolInfo struct {
	Address       solana.PublicKey  `json:"address"`
	AssetID       domain.AssetID    `json:"asset_id"`
	Mint          solana.PublicKey  `json:"mint"`
	TokenID       string            `json:"lp_token_id"`
	BaseReserves  fixedpoint.Amount `json:"base_reserves"`
	QuoteReserves fixedpoint.Amount `json:"quote_reserves"`
	LPSupply      fixedpoint.Amount `json:"lp_supply"`
	LPHolder      solana.PublicKey  `json:"lp_holder"`
	LPBurned      bool              `json:"lp_burned"`
	Withdrawn     bool              `json:"withdrawn"`
	FeeBps        uint32            `json:"fee_bps"`
	CreatedAt     time.Time         `json:"created_at"`
}

// SwapQuote is the expected result of a swap. Base is the launched token,
// quote is the settlement currency.
type SwapQuote struct {
	Pool      solana.PublicKey  `json:"pool"`
	BaseIn    bool              `json:"base_in"`
	AmountIn  fixedpoint.Amount `json:"amount_in"`
	AmountOut fixedpoint.Amount `json:"amount_out"`
}
