package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pharmscope/license-verify/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "licverify",
	Short: "Pharmacy license verification engine",
	Long:  "Verifies pharmacy license claims against state-registry search results: lazy address scoring, manual override merging, and per-(pharmacy, state) status classification.",
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
