package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <address>",
	Short: "Full safety analysis for an address",
	Long: `Geocodes the address, retrieves nearby incidents, and reports
statistics, trend, safety score, and a citywide comparison.

Examples:
  # Analyze with defaults (0.5-mile radius, past 12 months)
  crimescope analyze "123 W Main St"

  # Wider radius, two years
  crimescope analyze "123 W Main St" --radius 1.0 --months 24

  # Machine-readable output
  crimescope analyze "123 W Main St" --format json --output report.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.Float64("radius", 0, "search radius in miles (default 0.5, max 5)")
	f.Int("months", 0, "months of history (default 12, max 60)")
	f.String("format", "text", "output format: text or json")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	radius, _ := cmd.Flags().GetFloat64("radius")
	months, _ := cmd.Flags().GetInt("months")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	address := addressArg(args)
	log := zap.L().With(zap.String("command", "analyze"), zap.String("address", address))
	log.Info("starting analysis")

	result, err := app.analyzer.Analyze(ctx, address, radius, months)
	if err != nil {
		return err
	}
	log.Info("analysis complete",
		zap.Int("score", result.Score.Score),
		zap.Int("incidents", result.Stats.TotalCrimes))

	if format == "json" {
		return writeJSON(output, result)
	}

	w := os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	renderAnalysis(w, result)
	return nil
}
