// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tabular

import (
	"bufio"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/poiesic/llmerge/core"
)

// csvBatchRows is the number of CSV rows decoded per Arrow record.
const csvBatchRows = 1024

// CSVOptions controls CSV decoding and encoding.
type CSVOptions struct {
	// Comma is the field delimiter; 0 means ','.
	Comma rune
	// NullValues are cell values read as missing. Defaults to "", "NULL", "null".
	NullValues []string
	// Limit stops reading after this many rows; 0 reads everything.
	Limit int
}

func arrowType(t ColumnType) arrow.DataType {
	switch t {
	case TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// ReadCSV decodes a CSV stream with a header row. Columns are located by
// header name and converted to the types declared by schema, in schema
// order; other columns are read as strings and discarded.
func ReadCSV(ctx context.Context, r io.Reader, schema Schema, opts CSVOptions) (*core.Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	schema = schema.normalize()

	br := bufio.NewReader(r)
	headerLine, header, err := readHeader(br, opts.Comma)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := position[name]; !dup {
			position[name] = i
		}
	}
	fileFields := make([]arrow.Field, len(header))
	for i, name := range header {
		fileFields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	selected := make([]int, len(schema.Fields))
	for i, spec := range schema.Fields {
		pos, ok := position[spec.Column]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, spec.Column)
		}
		selected[i] = pos
		fileFields[pos].Type = arrowType(schema.columnType(i))
	}

	csvOpts := []csv.Option{
		csv.WithHeader(true),
		csv.WithChunk(csvBatchRows),
		csv.WithNullReader(true, opts.NullValues...),
	}
	if opts.Comma != 0 {
		csvOpts = append(csvOpts, csv.WithComma(opts.Comma))
	}
	body := io.MultiReader(strings.NewReader(headerLine), br)
	reader := csv.NewReader(body, arrow.NewSchema(fileFields, nil), csvOpts...)
	defer reader.Release()

	ds := &core.Dataset{Fields: schema.DatasetFields()}
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		rec := reader.Record()
		for i := range int(rec.NumRows()) {
			values := make([]any, len(selected))
			for j, col := range selected {
				values[j] = arrowValue(rec.Column(col), i)
			}
			ds.Rows = append(ds.Rows, core.Record{Index: len(ds.Rows), Values: values})
			if opts.Limit > 0 && len(ds.Rows) >= opts.Limit {
				return ds, nil
			}
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// readHeader consumes the header line and returns it verbatim along with
// its column names.
func readHeader(br *bufio.Reader, comma rune) (string, []string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", nil, errors.New("decode csv: no header row")
		}
		return "", nil, fmt.Errorf("decode csv: %w", err)
	}
	cr := stdcsv.NewReader(strings.NewReader(line))
	if comma != 0 {
		cr.Comma = comma
	}
	names, err := cr.Read()
	if err != nil {
		return "", nil, fmt.Errorf("decode csv header: %w", err)
	}
	return line, names, nil
}

// arrowValue extracts row i of col as a dataset value.
func arrowValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch c := col.(type) {
	case *array.String:
		// Record buffers are reused between batches.
		return strings.Clone(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.Boolean:
		return c.Value(i)
	default:
		return col.ValueStr(i)
	}
}

// WriteCSV encodes ds with a header row. Column names are the flat field
// renderings; column types are inferred from the values. Missing values
// are written as empty cells.
func WriteCSV(ctx context.Context, w io.Writer, ds *core.Dataset, opts CSVOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fields := make([]arrow.Field, len(ds.Fields))
	types := make([]ColumnType, len(ds.Fields))
	for j, f := range ds.Fields {
		types[j] = inferType(ds, j)
		fields[j] = arrow.Field{Name: f.String(), Type: arrowType(types[j]), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	cols := make([]arrow.Array, len(fields))
	for j := range fields {
		col, err := buildColumn(ds, j, types[j])
		if err != nil {
			for _, built := range cols[:j] {
				built.Release()
			}
			return err
		}
		cols[j] = col
	}
	rec := array.NewRecord(schema, cols, int64(ds.Len()))
	defer rec.Release()
	for _, col := range cols {
		col.Release()
	}

	csvOpts := []csv.Option{csv.WithHeader(true), csv.WithNullWriter("")}
	if opts.Comma != 0 {
		csvOpts = append(csvOpts, csv.WithComma(opts.Comma))
	}
	writer := csv.NewWriter(w, schema, csvOpts...)
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func buildColumn(ds *core.Dataset, col int, t ColumnType) (arrow.Array, error) {
	b := array.NewBuilder(memory.DefaultAllocator, arrowType(t))
	defer b.Release()
	b.Reserve(ds.Len())

	for _, row := range ds.Rows {
		v, err := coerce(row.Values[col], t)
		if err != nil {
			return nil, fmt.Errorf("field %s row %d: %w", ds.Fields[col], row.Index, err)
		}
		if v == nil {
			b.AppendNull()
			continue
		}
		switch bb := b.(type) {
		case *array.StringBuilder:
			bb.Append(v.(string))
		case *array.Int64Builder:
			bb.Append(v.(int64))
		case *array.Float64Builder:
			bb.Append(v.(float64))
		case *array.BooleanBuilder:
			bb.Append(v.(bool))
		}
	}
	return b.NewArray(), nil
}
