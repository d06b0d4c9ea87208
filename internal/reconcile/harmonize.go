package reconcile

import (
	"go.uber.org/zap"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

// Harmonize folds the legacy source_removed_at column into
// source_to_be_removed_at. Empty current values are filled from the legacy
// column, then the legacy column is dropped. Nothing happens unless both
// columns exist. Returns the number of rows filled.
func Harmonize(master *model.Table) int {
	if !master.HasColumn(model.LegacyRemovedColumn) || !master.HasColumn(model.RemovedAtColumn) {
		return 0
	}

	filled := 0
	for _, row := range master.Rows {
		if row.Present(model.RemovedAtColumn) || !row.Present(model.LegacyRemovedColumn) {
			continue
		}
		row[model.RemovedAtColumn] = row[model.LegacyRemovedColumn]
		filled++
	}
	master.DropColumn(model.LegacyRemovedColumn)

	zap.L().Info("reconcile: merged legacy column",
		zap.String("from", model.LegacyRemovedColumn),
		zap.String("into", model.RemovedAtColumn),
		zap.Int("rows_filled", filled),
	)
	return filled
}
