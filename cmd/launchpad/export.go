package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

var exportFlags struct {
	asset  uint64
	format string
	side   string
	trader string
	out    string
	daily  string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an asset's trade journal to CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenStore(cfg.Store, zap.NewNop())
		if err != nil {
			return err
		}
		defer store.Close()

		id := domain.AssetID(exportFlags.asset)
		var trades []*domain.Receipt
		err = store.View(cmd.Context(), func(tx storage.Tx) error {
			if _, err := tx.GetAsset(id); err != nil {
				return err
			}
			trades, err = tx.ListTrades(id)
			return err
		})
		if err != nil {
			return err
		}

		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		exporter := export.NewTradeExporter(log)

		var path string
		if exportFlags.daily != "" {
			date, err := time.Parse(time.DateOnly, exportFlags.daily)
			if err != nil {
				return fmt.Errorf("--daily: %w", err)
			}
			path, err = exporter.ExportDailyReport(id, trades, date, exportFlags.out)
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Println("no trades on", exportFlags.daily)
				return nil
			}
		} else {
			opts := export.ExportOptions{
				Format:     export.ExportFormat(exportFlags.format),
				SideFilter: domain.Side(exportFlags.side),
				OutputDir:  exportFlags.out,
			}
			if exportFlags.trader != "" {
				if opts.TraderFilter, err = domain.ParseAddress(exportFlags.trader); err != nil {
					return err
				}
			}
			if path, err = exporter.ExportTrades(id, trades, opts); err != nil {
				return err
			}
		}

		fmt.Println(path)
		return nil
	},
}

func init() {
	exportCmd.Flags().Uint64Var(&exportFlags.asset, "asset", 0, "asset id")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", string(export.FormatCSV), "csv or json")
	exportCmd.Flags().StringVar(&exportFlags.side, "side", "", "only buy or sell receipts")
	exportCmd.Flags().StringVar(&exportFlags.trader, "trader", "", "only receipts of this account")
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "exports", "output directory")
	exportCmd.Flags().StringVar(&exportFlags.daily, "daily", "", "write the report for one UTC day (YYYY-MM-DD) instead")
	_ = exportCmd.MarkFlagRequired("asset")
}
