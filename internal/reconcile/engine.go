// Package reconcile merges snapshot batches into the master table.
package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// BatchReader loads the rows of a snapshot.
type BatchReader interface {
	ReadBatch(ctx context.Context, b model.Batch) (*model.Table, error)
}

// Engine applies batches to a ledger.
type Engine struct {
	reader BatchReader
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for history imported_at values.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine that reads batches through reader.
func NewEngine(reader BatchReader, opts ...Option) *Engine {
	e := &Engine{reader: reader, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary describes what a Merge call did.
type Summary struct {
	Outcomes []model.BatchOutcome
}

// Imported returns the number of batches applied.
func (s *Summary) Imported() int {
	return s.count(model.BatchImported)
}

// Skipped returns the number of batches bypassed because they were already in
// the history.
func (s *Summary) Skipped() int {
	return s.count(model.BatchSkipped)
}

func (s *Summary) count(a model.BatchAction) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Merge applies batches to l in order. Batches whose filename is already in
// the history are skipped. Every other batch widens the master schema, merges
// its rows by series_url and appends one history entry. l is modified in
// place; on error its state is partially merged and must not be saved.
func (e *Engine) Merge(ctx context.Context, l *model.Ledger, batches []model.Batch) (*Summary, error) {
	if l.Master == nil {
		l.Master = model.NewTable(model.MasterColumns...)
	}

	imported := make(map[string]struct{}, len(l.History))
	for _, h := range l.History {
		imported[h.Filename] = struct{}{}
	}
	idx := newKeyIndex(l.Master)

	sum := &Summary{}
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "reconcile: merge cancelled")
		}

		if _, ok := imported[b.Name]; ok {
			zap.L().Info("reconcile: already imported, skipping", zap.String("file", b.Name))
			sum.Outcomes = append(sum.Outcomes, model.BatchOutcome{Filename: b.Name, Action: model.BatchSkipped})
			continue
		}

		zap.L().Info("reconcile: importing", zap.String("file", b.Name))

		rows, err := e.reader.ReadBatch(ctx, b)
		if err != nil {
			return sum, eris.Wrapf(err, "reconcile: read batch %s", b.Name)
		}

		out := applyBatch(l.Master, idx, rows)
		out.Filename = b.Name

		l.History = append(l.History, model.HistoryEntry{
			Filename:     b.Name,
			FileDatetime: b.CapturedAt,
			ImportedAt:   e.now().UTC(),
		})
		imported[b.Name] = struct{}{}
		sum.Outcomes = append(sum.Outcomes, out)

		zap.L().Debug("reconcile: batch merged",
			zap.String("file", b.Name),
			zap.Int("rows_added", out.RowsAdded),
			zap.Int("rows_updated", out.RowsUpdated),
			zap.Int("fields_changed", out.FieldsChanged),
			zap.Strings("columns_added", out.ColumnsAdded),
		)
	}

	return sum, nil
}

// applyBatch widens master with the batch's columns and merges every row.
func applyBatch(master *model.Table, idx keyIndex, batch *model.Table) model.BatchOutcome {
	out := model.BatchOutcome{Action: model.BatchImported}

	for _, col := range batch.Columns {
		if master.AddColumn(col) {
			out.ColumnsAdded = append(out.ColumnsAdded, col)
		}
	}

	for _, row := range batch.Rows {
		key := row.Get(model.KeyColumn)
		i, ok := idx.lookup(key)
		if !ok {
			idx.add(key, master.Append(row))
			out.RowsAdded++
			continue
		}

		changed := mergeRow(master.Rows[i], row, batch.Columns)
		if changed > 0 {
			out.RowsUpdated++
			out.FieldsChanged += changed
		}
	}
	return out
}

// mergeRow copies every non-empty incoming value that differs from the current
// one into dst. Absent incoming values never clear dst. Returns the number of
// fields changed.
func mergeRow(dst, src model.Record, columns []string) int {
	changed := 0
	for _, col := range columns {
		v := src.Get(col)
		if v == "" || dst.Get(col) == v {
			continue
		}
		dst[col] = v
		changed++
	}
	return changed
}

// keyIndex maps series_url to the first master row carrying it. Rows without
// a key are never indexed, so keyless batch rows always append.
type keyIndex map[string]int

func newKeyIndex(t *model.Table) keyIndex {
	idx := make(keyIndex, t.Len())
	for i, row := range t.Rows {
		idx.add(row.Get(model.KeyColumn), i)
	}
	return idx
}

func (k keyIndex) lookup(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	i, ok := k[key]
	return i, ok
}

func (k keyIndex) add(key string, i int) {
	if key == "" {
		return
	}
	if _, exists := k[key]; !exists {
		k[key] = i
	}
}
