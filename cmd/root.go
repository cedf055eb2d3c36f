package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "landsync",
	Short: "Land-offer resolution and enrichment pipeline",
	Long:  "Syncs publicly listed agricultural land offers, resolves cadastral references against the official register, enriches offers from their attached documents, and fetches official parcel geometry.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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
