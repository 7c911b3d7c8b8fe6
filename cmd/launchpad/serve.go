package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, event stream and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(cfg.LoggerConfig())
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log.Info("Starting launchpad",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("amm", cfg.AMM.Driver))

		runner, err := app.NewRunner(cfg, log)
		if err != nil {
			return err
		}
		return runner.Run(cmd.Context())
	},
}
