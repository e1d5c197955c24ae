package main

import (
	"context"
	"fmt"
	"time"

	"CashPilot/internal/di"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger tables if they do not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ledger, cleanup, err := di.InitializeLedger(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		if err := ledger.InitSchema(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ledger schema ready (%s)\n", cfg.Ledger.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
