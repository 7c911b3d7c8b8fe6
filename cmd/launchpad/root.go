package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad/internal/config"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Bonding-curve token launch engine",
	Long: `launchpad issues tokens on a quadratic bonding curve, trades them
against the curve and migrates each asset's liquidity to a constant-product
market once its funding goal is met.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml); LAUNCHPAD_* variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(exportCmd)
}
