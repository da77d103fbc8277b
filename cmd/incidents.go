package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/model"
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents <address>",
	Short: "List raw incidents near an address",
	Long: `Geocodes the address and prints every incident within the radius as
JSON, without scoring or aggregation. Useful for inspecting what the
analysis is built on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIncidents,
}

func init() {
	f := incidentsCmd.Flags()
	f.Float64("radius", 0, "search radius in miles (default 0.5, max 5)")
	f.Int("months", 0, "months of history (default 12, max 60)")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(incidentsCmd)
}

func runIncidents(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	radius, _ := cmd.Flags().GetFloat64("radius")
	months, _ := cmd.Flags().GetInt("months")
	output, _ := cmd.Flags().GetString("output")

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	incidents, incomplete, err := app.analyzer.Incidents(ctx, addressArg(args), radius, months)
	if err != nil {
		return err
	}
	if incomplete {
		zap.L().Warn("data source truncated at least one query; counts may be low")
	}

	return writeJSON(output, struct {
		Incidents          []model.Incident `json:"incidents"`
		PossiblyIncomplete bool             `json:"possibly_incomplete"`
	}{incidents, incomplete})
}
