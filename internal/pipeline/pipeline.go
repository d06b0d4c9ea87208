// Package pipeline runs a full backup pass: discover snapshots, load the
// ledger, merge, harmonize, save.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/journal"
	"github.com/sells-group/kenmei-ledger/internal/model"
	"github.com/sells-group/kenmei-ledger/internal/reconcile"
)

// Lister enumerates snapshot batches in import order.
type Lister interface {
	List(ctx context.Context) ([]model.Batch, error)
}

// LedgerStore loads and saves the ledger workbook.
type LedgerStore interface {
	Load(ctx context.Context) (*model.Ledger, error)
	Save(ctx context.Context, l *model.Ledger) error
	Path() string
}

// Merger applies batches to a ledger.
type Merger interface {
	Merge(ctx context.Context, l *model.Ledger, batches []model.Batch) (*reconcile.Summary, error)
}

// Pipeline orchestrates one merge run.
type Pipeline struct {
	source  Lister
	merger  Merger
	store   LedgerStore
	journal journal.Journal
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithJournal records every run, successful or not, in j.
func WithJournal(j journal.Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithClock overrides the clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(source Lister, merger Merger, st LedgerStore, opts ...Option) *Pipeline {
	p := &Pipeline{source: source, merger: merger, store: st, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report is the outcome of a successful run.
type Report struct {
	Summary    *reconcile.Summary
	Harmonized int
	Rows       int
	Columns    int
	History    int
}

// Run lists snapshots, merges every batch not yet in the history, folds the
// legacy removal column and saves the ledger once. Any error aborts the run
// before the save, leaving the workbook untouched.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	run := &model.Run{LedgerPath: p.store.Path(), StartedAt: p.now()}

	report, err := p.run(ctx, run)

	run.FinishedAt = p.now()
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = model.RunStatusComplete
	}
	p.record(ctx, run)

	return report, err
}

func (p *Pipeline) run(ctx context.Context, run *model.Run) (*Report, error) {
	batches, err := p.source.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list snapshots")
	}
	zap.L().Info("pipeline: found snapshots", zap.Int("count", len(batches)))

	l, err := p.store.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load ledger")
	}

	sum, err := p.merger.Merge(ctx, l, batches)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: merge")
	}

	harmonized := reconcile.Harmonize(l.Master)

	if err := p.store.Save(ctx, l); err != nil {
		return nil, eris.Wrap(err, "pipeline: save ledger")
	}

	// Outcomes only count once the workbook holds them; a failed run records
	// nothing as imported.
	run.Batches = sum.Outcomes
	run.Imported = sum.Imported()
	run.Skipped = sum.Skipped()

	zap.L().Info("pipeline: all files processed",
		zap.Int("imported", sum.Imported()),
		zap.Int("skipped", sum.Skipped()),
		zap.Int("rows", l.Master.Len()),
		zap.String("ledger", p.store.Path()),
	)

	return &Report{
		Summary:    sum,
		Harmonized: harmonized,
		Rows:       l.Master.Len(),
		Columns:    len(l.Master.Columns),
		History:    len(l.History),
	}, nil
}

// record writes the run to the journal. Journal failures never fail the run.
func (p *Pipeline) record(ctx context.Context, run *model.Run) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Record(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("pipeline: journal record failed", zap.Error(err))
	}
}

// BatchStatus pairs a discovered snapshot with whether it is already in the
// history.
type BatchStatus struct {
	Batch    model.Batch
	Imported bool
}

// Plan reports which snapshots a run would import without changing anything.
func (p *Pipeline) Plan(ctx context.Context) ([]BatchStatus, error) {
	batches, err := p.source.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list snapshots")
	}
	l, err := p.store.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load ledger")
	}

	out := make([]BatchStatus, 0, len(batches))
	for _, b := range batches {
		out = append(out, BatchStatus{Batch: b, Imported: l.Imported(b.Name)})
	}
	return out, nil
}
