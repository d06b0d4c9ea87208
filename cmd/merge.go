package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/config"
	"github.com/sells-group/kenmei-ledger/internal/journal"
	"github.com/sells-group/kenmei-ledger/internal/ledger"
	"github.com/sells-group/kenmei-ledger/internal/model"
	"github.com/sells-group/kenmei-ledger/internal/pipeline"
	"github.com/sells-group/kenmei-ledger/internal/reconcile"
	"github.com/sells-group/kenmei-ledger/internal/snapshot"
)

func runMerge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	p, closeFn, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := p.Run(ctx)
	if err != nil {
		return eris.Wrap(err, "merge")
	}

	formatReport(cmd.OutOrStdout(), report)
	return nil
}

// buildPipeline wires the snapshot source, ledger store and optional journal
// from configuration. The returned func releases the journal.
func buildPipeline(ctx context.Context, c *config.Config) (*pipeline.Pipeline, func(), error) {
	src := newSource(c)
	st := ledger.NewStore(c.Ledger.Path)
	engine := reconcile.NewEngine(src)

	var opts []pipeline.Option
	closeFn := func() {}
	if c.Journal.Path != "" {
		j, err := journal.Open(ctx, c.Journal.Path)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open journal")
		}
		opts = append(opts, pipeline.WithJournal(j))
		closeFn = func() {
			if err := j.Close(); err != nil {
				zap.L().Warn("close journal", zap.Error(err))
			}
		}
	}

	return pipeline.New(src, engine, st, opts...), closeFn, nil
}

// buildPlanner wires a read-only pipeline for dry runs. It has no merger and
// no journal, so nothing on disk is created or modified.
func buildPlanner(c *config.Config) *pipeline.Pipeline {
	return pipeline.New(newSource(c), nil, ledger.NewStore(c.Ledger.Path))
}

func newSource(c *config.Config) *snapshot.Source {
	return snapshot.NewSource(snapshot.Options{
		Dir:        c.Snapshot.Dir,
		Prefix:     c.Snapshot.Prefix,
		Extension:  c.Snapshot.Extension,
		NullValues: c.Snapshot.NullValues,
	})
}

func formatReport(out io.Writer, r *pipeline.Report) {
	for _, o := range r.Summary.Outcomes {
		switch o.Action {
		case model.BatchSkipped:
			_, _ = fmt.Fprintf(out, "skipped   %s (already imported)\n", o.Filename)
		case model.BatchImported:
			_, _ = fmt.Fprintf(out, "imported  %s (+%d rows, %d updated)\n", o.Filename, o.RowsAdded, o.RowsUpdated)
		}
	}
	_, _ = fmt.Fprintf(out, "All files processed: %d imported, %d skipped, %d rows in ledger.\n",
		r.Summary.Imported(), r.Summary.Skipped(), r.Rows)
}
