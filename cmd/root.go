package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/config"
)

var (
	cfg *config.Config

	flagDir     string
	flagLedger  string
	flagJournal string
)

var rootCmd = &cobra.Command{
	Use:   "kenmei-ledger",
	Short: "Merge Kenmei export snapshots into a master backup workbook",
	Long: "Reads every kenmei-export-<timestamp>.csv snapshot in the backup directory, merges the ones not yet " +
		"imported into the MasterData sheet keyed by series_url, records them in ImportHistory and saves the workbook.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlagOverrides(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: runMerge,
}

func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		c.Snapshot.Dir = flagDir
	}
	if flags.Changed("ledger") {
		c.Ledger.Path = flagLedger
	}
	if flags.Changed("journal") {
		c.Journal.Path = flagJournal
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "snapshot directory (overrides snapshot.dir)")
	rootCmd.PersistentFlags().StringVar(&flagLedger, "ledger", "", "ledger workbook path (overrides ledger.path)")
	rootCmd.PersistentFlags().StringVar(&flagJournal, "journal", "", "run journal database (overrides journal.path)")
}
