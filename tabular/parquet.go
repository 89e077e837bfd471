package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/poiesic/llmerge/core"
)

const parquetBatchRows = 1000

// ReadParquet decodes the columns selected by schema from a parquet file.
func ReadParquet(ctx context.Context, r io.ReaderAt, size int64, schema Schema, limit int) (*core.Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	schema = schema.normalize()

	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	for _, col := range schema.Columns() {
		if _, ok := pf.Schema().Lookup(col); !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	reader := parquet.NewGenericReader[map[string]any](pf, pf.Schema())
	defer reader.Close()

	ds := &core.Dataset{Fields: schema.DatasetFields()}
	buf := make([]map[string]any, parquetBatchRows)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range buf {
			buf[i] = make(map[string]any)
		}
		n, readErr := reader.Read(buf)
		for _, row := range buf[:n] {
			values, err := rowValues(schema, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", len(ds.Rows), err)
			}
			ds.Rows = append(ds.Rows, core.Record{Index: len(ds.Rows), Values: values})
			if limit > 0 && len(ds.Rows) >= limit {
				return ds, nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return ds, nil
			}
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
		if n == 0 {
			return ds, nil
		}
	}
}

// rowValues converts a decoded row object into values aligned with schema.
// Absent keys are missing values.
func rowValues(schema Schema, row map[string]any) ([]any, error) {
	values := make([]any, len(schema.Fields))
	for i, spec := range schema.Fields {
		v, err := coerce(row[spec.Column], schema.columnType(i))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", spec.Column, err)
		}
		values[i] = v
	}
	return values, nil
}

func parquetNode(t ColumnType) parquet.Node {
	switch t {
	case TypeInt64:
		return parquet.Optional(parquet.Int(64))
	case TypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case TypeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// WriteParquet encodes ds as a parquet file with one optional column per
// field, named by the flat field rendering.
func WriteParquet(ctx context.Context, w io.Writer, ds *core.Dataset) error {
	group := make(parquet.Group, len(ds.Fields))
	types := make([]ColumnType, len(ds.Fields))
	for j, f := range ds.Fields {
		types[j] = inferType(ds, j)
		group[f.String()] = parquetNode(types[j])
	}
	schema := parquet.NewSchema("dataset", group)

	writer := parquet.NewGenericWriter[map[string]any](w, schema)
	rows := make([]map[string]any, 0, parquetBatchRows)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
		rows = rows[:0]
		return nil
	}

	for _, rec := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make(map[string]any, len(ds.Fields))
		for j, f := range ds.Fields {
			v, err := coerce(rec.Values[j], types[j])
			if err != nil {
				return fmt.Errorf("field %s row %d: %w", f, rec.Index, err)
			}
			row[f.String()] = v
		}
		rows = append(rows, row)
		if len(rows) == cap(rows) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet: %w", err)
	}
	return nil
}
