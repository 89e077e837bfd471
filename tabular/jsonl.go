package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/poiesic/llmerge/core"
)

// ReadJSONL decodes one JSON object per line. Blank lines are skipped.
func ReadJSONL(ctx context.Context, r io.Reader, schema Schema, limit int) (*core.Dataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	schema = schema.normalize()

	ds := &core.Dataset{Fields: schema.DatasetFields()}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		values, err := rowValues(schema, obj)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Rows = append(ds.Rows, core.Record{Index: len(ds.Rows), Values: values})
		if limit > 0 && len(ds.Rows) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return ds, nil
}

// WriteJSONL encodes each row as an object keyed by the flat field
// rendering. Missing values are written as null.
func WriteJSONL(ctx context.Context, w io.Writer, ds *core.Dataset) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		obj := make(map[string]any, len(ds.Fields))
		for j, f := range ds.Fields {
			obj[f.String()] = jsonValue(rec.Values[j])
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("row %d: %w", rec.Index, err)
		}
	}
	return bw.Flush()
}

// jsonValue maps non-finite floats, which JSON cannot represent, to null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
