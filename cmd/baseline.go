package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Show or refresh the citywide baseline",
	Long: `Prints the cached region-wide incident baseline used for the
citywide comparison, computing it first if absent or stale.

Examples:
  crimescope baseline
  crimescope baseline --months 24
  crimescope baseline --refresh`,
	RunE: runBaseline,
}

func init() {
	f := baselineCmd.Flags()
	f.Int("months", 12, "baseline period in months")
	f.Bool("refresh", false, "discard the cached baseline and recompute")

	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	months, _ := cmd.Flags().GetInt("months")
	refresh, _ := cmd.Flags().GetBool("refresh")

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	get := app.baselines.Get
	if refresh {
		zap.L().Info("forcing baseline refresh", zap.Int("months", months))
		get = app.baselines.ForceRefresh
	}

	entry, err := get(ctx, months)
	if err != nil {
		return err
	}
	return writeJSON("", entry)
}
