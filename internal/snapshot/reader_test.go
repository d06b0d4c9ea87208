package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kenmei-ledger/internal/model"
)

func readString(t *testing.T, src *Source, content string) (*model.Table, error) {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "kenmei-export-2022-08-27T17_19_00Z.csv", content)
	return src.ReadBatch(context.Background(), model.Batch{Name: "kenmei-export-2022-08-27T17_19_00Z.csv", Path: path})
}

func TestReadBatch_Basic(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "series_url,title,score\nhttps://x/1,Foo,8\nhttps://x/2,\"Bar, Baz\",\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"series_url", "title", "score"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Foo", tbl.Rows[0].Get("title"))
	assert.Equal(t, "8", tbl.Rows[0].Get("score"))
	assert.Equal(t, "Bar, Baz", tbl.Rows[1].Get("title"))
	assert.False(t, tbl.Rows[1].Present("score"))
}

func TestReadBatch_StripsBOM(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "\ufeffseries_url,title\nhttps://x/1,Foo\n")
	require.NoError(t, err)
	assert.Equal(t, "series_url", tbl.Columns[0])
	assert.Equal(t, "https://x/1", tbl.Rows[0].Get("series_url"))
}

func TestReadBatch_KeepsMultibyteText(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "\ufeffseries_url,title\nhttps://x/1,café\n")
	require.NoError(t, err)
	assert.Equal(t, "café", tbl.Rows[0].Get("title"))
}

func TestReadBatch_ShortRowPadded(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "series_url,title,notes\nhttps://x/1,Foo\n")
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.False(t, tbl.Rows[0].Present("notes"))
}

func TestReadBatch_WhitespaceIsAValue(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "series_url,notes\nhttps://x/1,  \n")
	require.NoError(t, err)
	assert.Equal(t, "  ", tbl.Rows[0].Get("notes"))
}

func TestReadBatch_NullValues(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{NullValues: []string{"NaN", "null"}}), "series_url,score,notes\nhttps://x/1,NaN,null\n")
	require.NoError(t, err)
	assert.False(t, tbl.Rows[0].Present("score"))
	assert.False(t, tbl.Rows[0].Present("notes"))
}

func TestReadBatch_HeaderOnly(t *testing.T) {
	tbl, err := readString(t, NewSource(Options{}), "series_url,title,new_col\n")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"series_url", "title", "new_col"}, tbl.Columns)
}

func TestReadBatch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty file", "", "no header row"},
		{"blank header", "series_url,,title\n", "blank"},
		{"duplicate header", "series_url,title,title\n", "duplicate"},
		{"wide row", "series_url\nhttps://x/1,extra\n", "row 2 has 2 fields"},
		{"invalid utf-8 row", "series_url,title\nhttps://x/1,caf\xe9\n", "row 2: invalid UTF-8"},
		{"invalid utf-8 header", "series_url,t\xffitle\n", "header: invalid UTF-8"},
		{"bad quoting", "series_url,title\n\"https://x/1,Foo\n", "read row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, NewSource(Options{}), tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "kenmei-export-2022-08-27T17_19_00Z.csv")

			var readErr *ReadError
			assert.True(t, errors.As(err, &readErr))
		})
	}
}

func TestReadBatch_MissingFile(t *testing.T) {
	_, err := NewSource(Options{}).ReadBatch(context.Background(), model.Batch{Path: "/nonexistent/file.csv"})
	var readErr *ReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "/nonexistent/file.csv", readErr.Path)
}
