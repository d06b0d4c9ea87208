package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AddColumn(t *testing.T) {
	t.Parallel()

	tbl := NewTable("a", "b")
	assert.True(t, tbl.AddColumn("c"))
	assert.False(t, tbl.AddColumn("a"))
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns)
}

func TestTable_DropColumn(t *testing.T) {
	t.Parallel()

	tbl := NewTable("a", "b", "c")
	tbl.Append(Record{"a": "1", "b": "2", "c": "3"})
	tbl.DropColumn("b")
	tbl.DropColumn("missing")

	assert.Equal(t, []string{"a", "c"}, tbl.Columns)
	_, ok := tbl.Rows[0]["b"]
	assert.False(t, ok)
	assert.Equal(t, []string{"1", "3"}, tbl.Values(0))
}

func TestTable_Find(t *testing.T) {
	t.Parallel()

	tbl := NewTable(KeyColumn)
	tbl.Append(Record{KeyColumn: "https://x/1"})
	tbl.Append(Record{KeyColumn: "https://x/2"})
	tbl.Append(Record{KeyColumn: "https://x/1"})
	tbl.Append(Record{"title": "no key"})

	assert.Equal(t, 0, tbl.Find(KeyColumn, "https://x/1"))
	assert.Equal(t, 1, tbl.Find(KeyColumn, "https://x/2"))
	assert.Equal(t, -1, tbl.Find(KeyColumn, "https://x/3"))
	assert.Equal(t, -1, tbl.Find(KeyColumn, ""))
}

func TestTable_AppendCopiesRecord(t *testing.T) {
	t.Parallel()

	rec := Record{"a": "1", "b": ""}
	tbl := NewTable("a", "b")
	idx := tbl.Append(rec)
	rec["a"] = "changed"

	require.Equal(t, 0, idx)
	assert.Equal(t, "1", tbl.Rows[0].Get("a"))
	assert.False(t, tbl.Rows[0].Present("b"))
	assert.Equal(t, 1, tbl.Len())
}

func TestNewTable_CopiesColumns(t *testing.T) {
	t.Parallel()

	tbl := NewTable(MasterColumns...)
	tbl.Columns[0] = "mutated"
	assert.Equal(t, "title", MasterColumns[0])
}

func TestLedger_Imported(t *testing.T) {
	t.Parallel()

	l := NewLedger()
	assert.False(t, l.Imported("a.csv"))
	l.History = append(l.History, HistoryEntry{Filename: "a.csv"})
	assert.True(t, l.Imported("a.csv"))
	assert.Equal(t, MasterColumns, l.Master.Columns)
}

func TestStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got  string
		want string
	}{
		{string(RunStatusComplete), "complete"},
		{string(RunStatusFailed), "failed"},
		{string(BatchImported), "imported"},
		{string(BatchSkipped), "skipped"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
