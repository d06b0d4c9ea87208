package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kenmei-ledger/internal/journal"
	"github.com/sells-group/kenmei-ledger/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run journal",
	Long:  "Commands for listing and viewing journaled merge runs. Requires journal.path to be set.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent merge runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		j, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer j.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := j.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal(cmd)
		if err != nil {
			return err
		}
		defer j.Close() //nolint:errcheck

		run, err := j.GetRun(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func openJournal(cmd *cobra.Command) (*journal.SQLiteJournal, error) {
	if cfg.Journal.Path == "" {
		return nil, eris.New("journal is disabled (set journal.path or LEDGER_JOURNAL_PATH)")
	}
	return journal.Open(cmd.Context(), cfg.Journal.Path)
}

func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tIMPORTED\tSKIPPED\tSTARTED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t--------\t-------\t-------\t-----")

	for _, r := range runs {
		errMsg := r.Error
		if len(errMsg) > 50 {
			errMsg = errMsg[:47] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Imported,
			r.Skipped,
			r.StartedAt.Format("2006-01-02 15:04"),
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to show")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
