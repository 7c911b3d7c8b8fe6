package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/utils/units"
)

var quoteFlags struct {
	supply string
	amount string
	side   string
}

// quoteCmd prices a trade against the configured curve without touching a store.
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a trade on the configured curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := cfg.LaunchParams()
		if err != nil {
			return err
		}
		dir, err := curve.ParseDirection(quoteFlags.side)
		if err != nil {
			return err
		}
		supply, err := fixedpoint.Parse(quoteFlags.supply)
		if err != nil {
			return fmt.Errorf("--supply: %w", err)
		}
		amount, err := fixedpoint.Parse(quoteFlags.amount)
		if err != nil {
			return fmt.Errorf("--amount: %w", err)
		}

		result, err := quote(params.Curve, supply, amount, dir, cfg.Launch.CurrencyDecimals)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

type quoteResult struct {
	Side        string `json:"side"`
	Supply      string `json:"supply"`
	Amount      string `json:"amount"`
	Gross       string `json:"gross"`
	Fee         string `json:"fee"`
	Total       string `json:"total"`
	PriceBefore string `json:"price_before"`
	PriceAfter  string `json:"price_after"`
}

func quote(p curve.Params, supply, amount fixedpoint.Amount, dir curve.Direction, decimals uint8) (quoteResult, error) {
	cost, err := p.Cost(supply, amount, dir)
	if err != nil {
		return quoteResult{}, err
	}

	total, err := cost.Charge()
	after, afterErr := fixedpoint.Add(supply, amount)
	if dir == curve.Sell {
		total, err = cost.Payout()
		after, afterErr = fixedpoint.Sub(supply, amount)
	}
	if err != nil {
		return quoteResult{}, err
	}
	if afterErr != nil {
		return quoteResult{}, afterErr
	}

	before, err := p.PriceAt(supply)
	if err != nil {
		return quoteResult{}, err
	}
	priceAfter, err := p.PriceAt(after)
	if err != nil {
		return quoteResult{}, err
	}

	return quoteResult{
		Side:        dir.String(),
		Supply:      supply.String(),
		Amount:      amount.String(),
		Gross:       units.Format(cost.Gross, decimals),
		Fee:         units.Format(cost.Fee, decimals),
		Total:       units.Format(total, decimals),
		PriceBefore: units.Format(before, decimals),
		PriceAfter:  units.Format(priceAfter, decimals),
	}, nil
}

func init() {
	quoteCmd.Flags().StringVar(&quoteFlags.supply, "supply", "0", "tokens already sold on the curve")
	quoteCmd.Flags().StringVar(&quoteFlags.amount, "amount", "", "tokens to buy or sell")
	quoteCmd.Flags().StringVar(&quoteFlags.side, "side", "buy", "buy or sell")
	_ = quoteCmd.MarkFlagRequired("amount")
}
