package testutil

import (
	"io"

	"github.com/roach88/potholes/internal/importer"
)

// RowSlice is an importer.RowSource over fixed results. Each entry yields its
// row, or its error when Err is set.
type RowSlice struct {
	entries []RowEntry
	pos     int
}

// RowEntry is one result of a RowSlice.
type RowEntry struct {
	Row importer.Row
	Err error
}

var _ importer.RowSource = (*RowSlice)(nil)

// NewRowSlice builds a source of frame/payload rows. Lines are numbered from
// 2, after a notional header.
func NewRowSlice(pairs ...[2]string) *RowSlice {
	entries := make([]RowEntry, len(pairs))
	for i, pair := range pairs {
		entries[i] = RowEntry{Row: Row(i+2, pair[0], pair[1])}
	}
	return &RowSlice{entries: entries}
}

// NewRowEntries builds a source from explicit entries.
func NewRowEntries(entries ...RowEntry) *RowSlice {
	return &RowSlice{entries: entries}
}

// Row builds a row carrying the default key and payload fields.
func Row(line int, frame, payload string) importer.Row {
	return importer.Row{
		Line: line,
		Fields: map[string]string{
			importer.DefaultKeyField:     frame,
			importer.DefaultPayloadField: payload,
		},
	}
}

// Next implements importer.RowSource.
func (r *RowSlice) Next() (importer.Row, error) {
	if r.pos >= len(r.entries) {
		return importer.Row{}, io.EOF
	}
	e := r.entries[r.pos]
	r.pos++
	return e.Row, e.Err
}

// Reset rewinds the source to its first entry.
func (r *RowSlice) Reset() {
	r.pos = 0
}
