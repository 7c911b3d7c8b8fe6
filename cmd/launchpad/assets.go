package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/utils/units"
)

// assetsCmd lists the catalog straight from the store; the server must not
// hold the database open.
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List launched assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenStore(cfg.Store, zap.NewNop())
		if err != nil {
			return err
		}
		defer store.Close()

		var assets []*domain.Asset
		err = store.View(cmd.Context(), func(tx storage.Tx) error {
			assets, err = tx.ListAssets()
			return err
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSYMBOL\tNAME\tSOLD\tRAISED\tGOAL\tGRADUATED")
		for _, a := range assets {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
				a.ID,
				a.Metadata.Symbol,
				a.Metadata.Name,
				a.CirculatingSold,
				units.Format(a.FundingRaised, cfg.Launch.CurrencyDecimals),
				units.Format(a.FundingGoal, cfg.Launch.CurrencyDecimals),
				a.Graduated)
		}
		return w.Flush()
	},
}
