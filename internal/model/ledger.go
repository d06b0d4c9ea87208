package model

import "time"

// Column names shared by every snapshot format.
const (
	KeyColumn           = "series_url"
	RemovedAtColumn     = "source_to_be_removed_at"
	LegacyRemovedColumn = "source_removed_at"
)

// Sheet names in the persisted ledger workbook.
const (
	MasterSheet  = "MasterData"
	HistorySheet = "ImportHistory"
)

// MasterColumns is the canonical baseline schema of the master table.
var MasterColumns = []string{
	"title",
	"status",
	"score",
	"last_volume_read",
	"last_chapter_read",
	"last_chapter_title_read",
	"last_read_at",
	"migratable",
	RemovedAtColumn,
	"notes",
	"tracked_site",
	KeyColumn,
	"tags",
}

// HistoryColumns is the schema of the import history sheet.
var HistoryColumns = []string{"filename", "file_datetime", "imported_at"}

// HistoryEntry records one snapshot that has been merged into the master table.
type HistoryEntry struct {
	Filename     string    `json:"filename" yaml:"filename"`
	FileDatetime time.Time `json:"file_datetime" yaml:"file_datetime"`
	ImportedAt   time.Time `json:"imported_at" yaml:"imported_at"`
}

// Ledger is the in-memory form of the two-sheet workbook.
type Ledger struct {
	Master  *Table
	History []HistoryEntry
}

// NewLedger returns an empty ledger with the baseline master schema.
func NewLedger() *Ledger {
	return &Ledger{Master: NewTable(MasterColumns...)}
}

// Imported reports whether filename already has a history entry.
func (l *Ledger) Imported(filename string) bool {
	for _, h := range l.History {
		if h.Filename == filename {
			return true
		}
	}
	return false
}

// Batch is one snapshot file available for import.
type Batch struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	CapturedAt time.Time `json:"captured_at"`
}
