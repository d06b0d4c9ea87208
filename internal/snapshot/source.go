// Package snapshot discovers timestamped CSV exports on disk and reads them
// into tables.
package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// FileTimeLayout is the timestamp layout after the filename has been normalized.
const FileTimeLayout = "2006-01-02 15:04:05Z"

// Options configures a Source.
type Options struct {
	Dir        string   // directory holding the exports
	Prefix     string   // literal text preceding the timestamp, e.g. "kenmei-export-"
	Extension  string   // default ".csv"
	NullValues []string // extra cell values treated as absent, besides ""
}

// Source enumerates snapshot files in a directory.
type Source struct {
	opts  Options
	nulls map[string]struct{}
}

// NewSource creates a Source for the given options.
func NewSource(opts Options) *Source {
	if opts.Extension == "" {
		opts.Extension = ".csv"
	}
	nulls := make(map[string]struct{}, len(opts.NullValues))
	for _, v := range opts.NullValues {
		nulls[v] = struct{}{}
	}
	return &Source{opts: opts, nulls: nulls}
}

// List returns every snapshot in the directory ordered by capture time, then
// by filename. A single unparsable filename fails the whole listing.
func (s *Source) List(ctx context.Context) ([]model.Batch, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: list %s", s.opts.Dir)
	}

	var batches []model.Batch
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "snapshot: list cancelled")
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.opts.Extension) {
			continue
		}

		ts, err := ParseFileTime(e.Name(), s.opts.Prefix, s.opts.Extension)
		if err != nil {
			return nil, err
		}
		batches = append(batches, model.Batch{
			Name:       e.Name(),
			Path:       filepath.Join(s.opts.Dir, e.Name()),
			CapturedAt: ts,
		})
	}

	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].CapturedAt.Equal(batches[j].CapturedAt) {
			return batches[i].CapturedAt.Before(batches[j].CapturedAt)
		}
		return batches[i].Name < batches[j].Name
	})
	return batches, nil
}

// ParseFileTime extracts the capture time embedded in a snapshot filename such
// as "kenmei-export-2022-08-27T17_19_00Z.csv". Everything up to the last
// occurrence of prefix is discarded along with the extension, then "_" becomes
// ":" and "T" becomes a space before parsing as FileTimeLayout in UTC.
func ParseFileTime(filename, prefix, ext string) (time.Time, error) {
	s := filepath.Base(filename)
	if prefix != "" {
		if idx := strings.LastIndex(s, prefix); idx >= 0 {
			s = s[idx+len(prefix):]
		}
	}
	s = strings.TrimSuffix(s, ext)
	s = strings.ReplaceAll(s, "_", ":")
	s = strings.ReplaceAll(s, "T", " ")

	ts, err := time.Parse(FileTimeLayout, s)
	if err != nil {
		return time.Time{}, &IdentifierError{Filename: filepath.Base(filename), Err: err}
	}
	return ts.UTC(), nil
}
