package snapshot

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// ReadBatch reads a snapshot file into a table. The first record is the
// header. Short rows are padded with absent values; rows wider than the header
// are rejected.
func (s *Source) ReadBatch(ctx context.Context, b model.Batch) (*model.Table, error) {
	f, err := os.Open(b.Path)
	if err != nil {
		return nil, &ReadError{Path: b.Path, Err: err}
	}
	defer f.Close() //nolint:errcheck

	tbl, err := s.readCSV(ctx, f)
	if err != nil {
		return nil, &ReadError{Path: b.Path, Err: err}
	}
	return tbl, nil
}

func (s *Source) readCSV(ctx context.Context, r io.Reader) (*model.Table, error) {
	// Exports from spreadsheet tools often carry a UTF-8 byte order mark that
	// would otherwise end up in the first header name. Bytes after it pass
	// through untouched so invalid UTF-8 is caught below, not replaced.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if !validUTF8(header) {
		return nil, eris.New("csv: header: invalid UTF-8")
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	tbl := model.NewTable(header...)
	line := 1
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		line++

		if !validUTF8(record) {
			return nil, eris.Errorf("csv: row %d: invalid UTF-8", line)
		}
		if len(record) > len(header) {
			return nil, eris.Errorf("csv: row %d has %d fields, header has %d", line, len(record), len(header))
		}

		rec := make(model.Record, len(header))
		for i, v := range record {
			if _, null := s.nulls[v]; null {
				continue
			}
			rec[header[i]] = v
		}
		tbl.Append(rec)
	}

	return tbl, nil
}

func validUTF8(fields []string) bool {
	for _, f := range fields {
		if !utf8.ValidString(f) {
			return false
		}
	}
	return true
}

func validateHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if h == "" {
			return eris.Errorf("csv: header column %d is blank", i+1)
		}
		if _, dup := seen[h]; dup {
			return eris.Errorf("csv: duplicate header column %q", h)
		}
		seen[h] = struct{}{}
	}
	return nil
}
