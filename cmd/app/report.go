package main

import (
	"encoding/json"
	"fmt"
	"os"

	"CashPilot/internal/di"
	"CashPilot/internal/domain/models"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	flagUsers   []string
	flagMonths  int
	flagPeriods int
	flagQuiet   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the cash-flow dashboard for one or more users as JSON",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringSliceVarP(&flagUsers, "user", "u", nil, "user id (repeatable)")
	reportCmd.Flags().IntVarP(&flagMonths, "months", "m", 0, "history window in months (0 uses engine.history_months)")
	reportCmd.Flags().IntVarP(&flagPeriods, "periods", "p", 0, "projection periods (0 uses engine.projection_periods)")
	reportCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress progress output")
	_ = reportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(reportCmd)
}

type userReport struct {
	UserID    string            `json:"user_id"`
	Dashboard *models.Dashboard `json:"dashboard,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func runReport(cmd *cobra.Command, _ []string) error {
	if flagMonths < 0 || flagPeriods < 0 {
		return fmt.Errorf("--months and --periods must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the JSON report
	cfg.Logger.Output = "stderr"

	uc, cleanup, err := di.InitializeReporter(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	months, periods := flagMonths, flagPeriods
	if months == 0 {
		months = uc.HistoryMonths()
	}
	if periods == 0 {
		periods = uc.ProjectionPeriods()
	}

	var bar *progressbar.ProgressBar
	if len(flagUsers) > 1 && !flagQuiet {
		bar = progressbar.NewOptions(len(flagUsers),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("computing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	reports := make([]userReport, 0, len(flagUsers))
	failed := 0
	for _, user := range flagUsers {
		r := userReport{UserID: user}
		d, err := uc.Dashboard(cmd.Context(), user, months, periods)
		if err != nil {
			r.Error = err.Error()
			failed++
		} else {
			r.Dashboard = d
		}
		reports = append(reports, r)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(reports))
	}
	return nil
}
