package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homescout/crimescope/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crimescope",
	Short: "Neighborhood crime analysis for home buyers",
	Long:  "Geocodes an address, pulls nearby police incident reports from the city open data feed, and produces crime statistics, trends, and a safety score with citywide context.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
