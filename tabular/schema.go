package tabular

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/llmerge/core"
)

// ColumnType is the value type a column is decoded into.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
)

// ParseColumnType accepts the canonical names plus a few common aliases.
// An empty string means TypeString.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str", "text":
		return TypeString, nil
	case "int64", "int", "integer":
		return TypeInt64, nil
	case "float64", "float", "double", "number":
		return TypeFloat64, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// ColumnSpec maps one column of a file to a dataset field.
type ColumnSpec struct {
	// Column is the column name in the file header.
	Column string `yaml:"column"`
	// Namespace overrides Schema.Namespace for this column.
	Namespace string `yaml:"namespace,omitempty"`
	// Name is the field name; defaults to Column.
	Name string     `yaml:"name,omitempty"`
	Type ColumnType `yaml:"type,omitempty"`
}

// Schema selects and types the columns read from a file. Columns not
// listed are ignored. Field order follows Fields.
type Schema struct {
	// Namespace is applied to every field that does not set its own,
	// producing composite fields such as ("Non Nutrient Data", "Name").
	Namespace string       `yaml:"namespace,omitempty"`
	Fields    []ColumnSpec `yaml:"fields"`
}

// Field returns the dataset field of the i-th column.
func (s Schema) Field(i int) core.Field {
	spec := s.Fields[i]
	name := spec.Name
	if name == "" {
		name = spec.Column
	}
	ns := spec.Namespace
	if ns == "" {
		ns = s.Namespace
	}
	return core.NF(ns, name)
}

// DatasetFields returns the dataset fields in column order.
func (s Schema) DatasetFields() []core.Field {
	fields := make([]core.Field, len(s.Fields))
	for i := range s.Fields {
		fields[i] = s.Field(i)
	}
	return fields
}

// Columns returns the file column names in order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, spec := range s.Fields {
		cols[i] = spec.Column
	}
	return cols
}

func (s Schema) columnType(i int) ColumnType {
	if s.Fields[i].Type == "" {
		return TypeString
	}
	return s.Fields[i].Type
}

// Validate checks that at least one column is selected, column names and
// resulting fields are unique, and every type is known.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return ErrNoColumns
	}
	columns := make(map[string]struct{}, len(s.Fields))
	fields := make(map[core.Field]struct{}, len(s.Fields))
	for i, spec := range s.Fields {
		if spec.Column == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalidSchema, i)
		}
		if _, ok := columns[spec.Column]; ok {
			return fmt.Errorf("%w: column %q selected twice", ErrInvalidSchema, spec.Column)
		}
		columns[spec.Column] = struct{}{}

		f := s.Field(i)
		if _, ok := fields[f]; ok {
			return fmt.Errorf("%w: field %s defined twice", ErrInvalidSchema, f)
		}
		fields[f] = struct{}{}

		if _, err := ParseColumnType(string(spec.Type)); err != nil {
			return fmt.Errorf("%w: column %q: %w", ErrInvalidSchema, spec.Column, err)
		}
	}
	return nil
}

// normalize rewrites type aliases to their canonical names.
func (s Schema) normalize() Schema {
	out := Schema{Namespace: s.Namespace, Fields: make([]ColumnSpec, len(s.Fields))}
	for i, spec := range s.Fields {
		t, err := ParseColumnType(string(spec.Type))
		if err == nil {
			spec.Type = t
		}
		out.Fields[i] = spec
	}
	return out
}

// coerce converts a decoded value to the Go type of t. Empty strings
// become missing values for non-string columns.
func coerce(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch t {
	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.String(), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case int32:
			return strconv.FormatInt(int64(x), 10), nil
		case int:
			return strconv.Itoa(x), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
		case bool:
			return strconv.FormatBool(x), nil
		}

	case TypeInt64:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int32:
			return int64(x), nil
		case int:
			return int64(x), nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		case json.Number:
			if n, err := x.Int64(); err == nil {
				return n, nil
			}
		case string:
			x = strings.TrimSpace(x)
			if x == "" {
				return nil, nil
			}
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, nil
			}
		}

	case TypeFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, nil
			}
		case string:
			x = strings.TrimSpace(x)
			if x == "" {
				return nil, nil
			}
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f, nil
			}
		}

	case TypeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			x = strings.TrimSpace(x)
			if x == "" {
				return nil, nil
			}
			if b, err := strconv.ParseBool(x); err == nil {
				return b, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: cannot use %v (%T) as %s", ErrValueType, v, v, t)
}

// inferType picks the narrowest column type holding every non-missing
// value of a dataset column. Mixed integers and floats widen to float64;
// anything else falls back to string.
func inferType(ds *core.Dataset, col int) ColumnType {
	var t ColumnType
	for _, row := range ds.Rows {
		var vt ColumnType
		switch row.Values[col].(type) {
		case nil:
			continue
		case int64, int32, int:
			vt = TypeInt64
		case float64, float32:
			vt = TypeFloat64
		case bool:
			vt = TypeBool
		default:
			return TypeString
		}
		switch {
		case t == "" || t == vt:
			t = vt
		case (t == TypeInt64 && vt == TypeFloat64) || (t == TypeFloat64 && vt == TypeInt64):
			t = TypeFloat64
		default:
			return TypeString
		}
	}
	if t == "" {
		return TypeString
	}
	return t
}
