package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/kenmei-ledger/internal/ledger"
	"github.com/sells-group/kenmei-ledger/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the ImportHistory sheet as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := ledger.NewStore(cfg.Ledger.Path).Load(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "history")
		}
		return writeHistory(cmd.OutOrStdout(), l.History)
	},
}

func writeHistory(out io.Writer, history []model.HistoryEntry) error {
	if history == nil {
		history = []model.HistoryEntry{}
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(history); err != nil {
		return eris.Wrap(err, "history: encode yaml")
	}
	return eris.Wrap(enc.Close(), "history: flush yaml")
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
