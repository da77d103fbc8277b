package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve an address to coordinates",
	Long:  "Normalizes the address, resolves it via the geocoder, and verifies it falls inside the service area.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeocode,
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	result, err := app.analyzer.Geocode(ctx, addressArg(args))
	if err != nil {
		return err
	}
	return writeJSON("", result)
}
