package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "voxcart",
	Short: "Voice-driven shopping assistant",
	Long:  "Extracts shopping intent from utterances, discovers products via neural search, resolves marketplace detail, and checks out in fiat or crypto.",
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
