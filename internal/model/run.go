package model

import "time"

// RunStatus represents the final state of a merge run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// BatchAction is what a run did with a snapshot.
type BatchAction string

const (
	BatchImported BatchAction = "imported"
	BatchSkipped  BatchAction = "skipped"
)

// BatchOutcome summarizes the effect of one snapshot on the master table.
type BatchOutcome struct {
	Filename      string      `json:"filename"`
	Action        BatchAction `json:"action"`
	RowsAdded     int         `json:"rows_added"`
	RowsUpdated   int         `json:"rows_updated"`
	FieldsChanged int         `json:"fields_changed"`
	ColumnsAdded  []string    `json:"columns_added,omitempty"`
}

// Run is a journaled merge run.
type Run struct {
	ID         string         `json:"id"`
	Status     RunStatus      `json:"status"`
	LedgerPath string         `json:"ledger_path"`
	Imported   int            `json:"imported"`
	Skipped    int            `json:"skipped"`
	Error      string         `json:"error,omitempty"`
	Batches    []BatchOutcome `json:"batches,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}
