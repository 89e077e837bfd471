package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Record is a single dataset row. Values are aligned with the owning
// Dataset's Fields and hold string, int64, float64, bool or nil (missing).
type Record struct {
	Index  int
	Values []any
}

// Dataset is an ordered sequence of records sharing one schema.
// Row indices are unique, contiguous and 0-based within the dataset a
// record was loaded into; a chunk produced by Slice keeps the original
// indices of its rows.
type Dataset struct {
	Fields []Field
	Rows   []Record
}

// NewDataset builds a dataset from fields and raw row values,
// assigning indices 0..n-1.
func NewDataset(fields []Field, rows ...[]any) *Dataset {
	ds := &Dataset{
		Fields: fields,
		Rows:   make([]Record, len(rows)),
	}
	for i, values := range rows {
		ds.Rows[i] = Record{Index: i, Values: values}
	}
	return ds
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// FieldIndex returns the column position of f.
func (d *Dataset) FieldIndex(f Field) (int, bool) {
	for i, field := range d.Fields {
		if field == f {
			return i, true
		}
	}
	return -1, false
}

// HasField reports whether f is part of the schema.
func (d *Dataset) HasField(f Field) bool {
	_, ok := d.FieldIndex(f)
	return ok
}

// Value returns the value of field f in the row at position pos.
func (d *Dataset) Value(pos int, f Field) (any, error) {
	col, ok := d.FieldIndex(f)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return d.Rows[pos].Values[col], nil
}

// Slice returns the rows in positions [lo, hi) as a new dataset sharing
// the same schema. Row indices are preserved.
func (d *Dataset) Slice(lo, hi int) *Dataset {
	lo = max(lo, 0)
	hi = min(hi, len(d.Rows))
	if lo > hi {
		lo = hi
	}
	return &Dataset{
		Fields: d.Fields,
		Rows:   d.Rows[lo:hi],
	}
}

// Head returns the first n rows, or the whole dataset when n <= 0.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= len(d.Rows) {
		return d
	}
	return d.Slice(0, n)
}

// Reindex rewrites row indices to 0..n-1.
func (d *Dataset) Reindex() {
	for i := range d.Rows {
		d.Rows[i].Index = i
	}
}

// SchemaField describes one field of a matcher's response record.
type SchemaField struct {
	Name        string
	Type        string // "integer", "number", "string" or "boolean"
	Description string
}

// MatchSchema names the fields of a matcher's response records.
// LeftIndexField and RightIndexField hold the row index references;
// Extra lists any additional fields the matcher returns.
type MatchSchema struct {
	LeftIndexField  string
	RightIndexField string
	Extra           []SchemaField
}

// DefaultMatchSchema returns the schema used when none is configured.
func DefaultMatchSchema() MatchSchema {
	return MatchSchema{
		LeftIndexField:  "index_1",
		RightIndexField: "index_2",
		Extra: []SchemaField{
			{Name: "similarity", Type: "number", Description: "Confidence from 0 to 1 that both rows describe the same item"},
		},
	}
}

// Match is one validated entry of a matcher's result.
type Match struct {
	LeftIndex int
	// RightIndex is nil when the matcher explicitly reported no match.
	RightIndex *int
	Extra      map[string]any
}

// Matched reports whether the entry references a right row.
func (m Match) Matched() bool {
	return m.RightIndex != nil
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
