package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kenmei-ledger/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which snapshots are pending import",
	Long:  "Lists every snapshot in the backup directory in import order and whether it is already in the ledger history. Never writes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		plan, err := buildPlanner(cfg).Plan(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func formatPlan(out io.Writer, plan []pipeline.BatchStatus) {
	if len(plan) == 0 {
		_, _ = fmt.Fprintln(out, "No snapshots found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tCAPTURED\tSTATE")
	_, _ = fmt.Fprintln(w, "----\t--------\t-----")

	pending := 0
	for _, s := range plan {
		state := "imported"
		if !s.Imported {
			state = "pending"
			pending++
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.Batch.Name, s.Batch.CapturedAt.Format("2006-01-02 15:04:05"), state)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d pending, %d already imported\n", pending, len(plan)-pending)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
