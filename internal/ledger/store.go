// Package ledger persists the master table and import history as a two-sheet
// XLSX workbook.
package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// TimeLayout is how history timestamps are written.
const TimeLayout = "2006-01-02 15:04:05"

// readLayouts are tried in order when reading history timestamps back.
var readLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z",
	"2006-01-02",
}

// Store reads and writes the ledger workbook at a fixed path.
type Store struct {
	path string
}

// NewStore returns a Store for the workbook at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the workbook location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the workbook. A missing file yields an empty ledger with the
// baseline schema. Missing sheets and missing baseline columns are filled in.
func (s *Store) Load(ctx context.Context) (*model.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ledger: load cancelled")
	}

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zap.L().Info("ledger: not found, starting empty", zap.String("path", s.path))
			return model.NewLedger(), nil
		}
		return nil, &LoadError{Path: s.path, Err: err}
	}

	f, err := xlsx.OpenFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: eris.Wrap(err, "xlsx: open file")}
	}

	l := &model.Ledger{}

	if sheet, ok := f.Sheet[model.MasterSheet]; ok {
		tbl, err := readSheet(sheet)
		if err != nil {
			return nil, &LoadError{Path: s.path, Err: err}
		}
		l.Master = repairMaster(tbl)
	} else {
		zap.L().Warn("ledger: no master sheet, starting empty", zap.String("sheet", model.MasterSheet))
		l.Master = model.NewTable(model.MasterColumns...)
	}

	if sheet, ok := f.Sheet[model.HistorySheet]; ok {
		tbl, err := readSheet(sheet)
		if err != nil {
			return nil, &LoadError{Path: s.path, Err: err}
		}
		l.History, err = historyFromTable(tbl)
		if err != nil {
			return nil, &LoadError{Path: s.path, Err: err}
		}
	} else {
		zap.L().Warn("ledger: no history sheet, starting empty", zap.String("sheet", model.HistorySheet))
	}

	zap.L().Debug("ledger: loaded",
		zap.String("path", s.path),
		zap.Int("rows", l.Master.Len()),
		zap.Int("columns", len(l.Master.Columns)),
		zap.Int("history", len(l.History)),
	)
	return l, nil
}

// Save writes both sheets. The workbook is written to a temporary file next
// to the target and renamed into place, so an interrupted save leaves the
// previous ledger intact.
func (s *Store) Save(ctx context.Context, l *model.Ledger) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "ledger: save cancelled")
	}

	f := xlsx.NewFile()
	if err := writeSheet(f, model.MasterSheet, l.Master); err != nil {
		return err
	}
	if err := writeSheet(f, model.HistorySheet, historyToTable(l.History)); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.xlsx")
	if err != nil {
		return eris.Wrap(err, "ledger: create temp file")
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrap(err, "ledger: close temp file")
	}

	if err := f.Save(tmpPath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "ledger: write %s", tmpPath)
	}
	if err := os.Chmod(tmpPath, s.fileMode()); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "ledger: chmod %s", tmpPath)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return eris.Wrapf(err, "ledger: replace %s", s.path)
	}

	zap.L().Debug("ledger: saved",
		zap.String("path", s.path),
		zap.Int("rows", l.Master.Len()),
		zap.Int("history", len(l.History)),
	)
	return nil
}

// defaultFileMode applies to a ledger saved for the first time.
const defaultFileMode os.FileMode = 0o644

// fileMode returns the permissions of the existing ledger, so a save never
// changes who can read it.
func (s *Store) fileMode() os.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return defaultFileMode
}

// readSheet turns a sheet into a table using its first row as the header.
// Trailing blank header cells are ignored and fully blank rows are skipped.
func readSheet(sheet *xlsx.Sheet) (*model.Table, error) {
	if len(sheet.Rows) == 0 {
		return model.NewTable(), nil
	}

	header := rowToStrings(sheet.Rows[0])
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if h == "" {
			return nil, eris.Errorf("xlsx: sheet %q header column %d is blank", sheet.Name, i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, eris.Errorf("xlsx: sheet %q has duplicate column %q", sheet.Name, h)
		}
		seen[h] = struct{}{}
	}

	tbl := model.NewTable(header...)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		rec := make(model.Record, len(header))
		for i, v := range cells {
			if i >= len(header) || v == "" {
				continue
			}
			rec[header[i]] = v
		}
		if len(rec) == 0 {
			continue
		}
		tbl.Append(rec)
	}
	return tbl, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}

func writeSheet(f *xlsx.File, name string, tbl *model.Table) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "ledger: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, col := range tbl.Columns {
		header.AddCell().SetString(col)
	}
	for i := range tbl.Rows {
		row := sheet.AddRow()
		for _, v := range tbl.Values(i) {
			row.AddCell().SetString(v)
		}
	}
	return nil
}

// repairMaster pads missing baseline columns and orders the schema baseline
// first, followed by any extra columns in their existing order.
func repairMaster(tbl *model.Table) *model.Table {
	cols := slices.Clone(model.MasterColumns)
	for _, c := range tbl.Columns {
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	for _, c := range model.MasterColumns {
		if !tbl.HasColumn(c) {
			zap.L().Info("ledger: padding missing master column", zap.String("column", c))
		}
	}
	tbl.Columns = cols
	return tbl
}

func historyFromTable(tbl *model.Table) ([]model.HistoryEntry, error) {
	entries := make([]model.HistoryEntry, 0, tbl.Len())
	for i, row := range tbl.Rows {
		fileDT, err := parseTime(row.Get("file_datetime"))
		if err != nil {
			return nil, eris.Wrapf(err, "history row %d: file_datetime", i+2)
		}
		importedAt, err := parseTime(row.Get("imported_at"))
		if err != nil {
			return nil, eris.Wrapf(err, "history row %d: imported_at", i+2)
		}
		entries = append(entries, model.HistoryEntry{
			Filename:     row.Get("filename"),
			FileDatetime: fileDT,
			ImportedAt:   importedAt,
		})
	}
	return entries, nil
}

func historyToTable(history []model.HistoryEntry) *model.Table {
	tbl := model.NewTable(model.HistoryColumns...)
	for _, h := range history {
		tbl.Append(model.Record{
			"filename":      h.Filename,
			"file_datetime": formatTime(h.FileDatetime),
			"imported_at":   formatTime(h.ImportedAt),
		})
	}
	return tbl
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// parseTime accepts the layouts this package writes plus the common forms
// spreadsheet tools produce, including raw Excel serial dates. Empty cells
// yield the zero time.
func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		return xlsx.TimeFromExcelTime(serial, false).UTC(), nil
	}
	return time.Time{}, eris.Errorf("unrecognized timestamp %q", v)
}
