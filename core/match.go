package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeMatches validates loosely typed matcher output against schema and
// converts it into Match values. It is the boundary between untrusted
// model output and the join.
//
// Index fields may arrive as JSON numbers, json.Number or numeric strings.
// A missing or null right index is an explicit "no match". A missing or
// non-integral left index makes the whole result malformed.
func DecodeMatches(items []map[string]any, schema MatchSchema) ([]Match, error) {
	matches := make([]Match, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: item %d is null", ErrMalformedMatch, i)
		}

		raw, ok := item[schema.LeftIndexField]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: item %d has no %q", ErrMalformedMatch, i, schema.LeftIndexField)
		}
		left, err := toIndex(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d field %q: %w", ErrMalformedMatch, i, schema.LeftIndexField, err)
		}

		m := Match{LeftIndex: left}
		if raw, ok := item[schema.RightIndexField]; ok && raw != nil {
			right, err := toIndex(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: item %d field %q: %w", ErrMalformedMatch, i, schema.RightIndexField, err)
			}
			m.RightIndex = &right
		}

		for _, f := range schema.Extra {
			v, ok := item[f.Name]
			if !ok {
				continue
			}
			if m.Extra == nil {
				m.Extra = make(map[string]any, len(schema.Extra))
			}
			m.Extra[f.Name] = coerceExtra(v, f.Type)
		}

		matches = append(matches, m)
	}
	return matches, nil
}

// toIndex converts a decoded JSON value into a row index.
// Negative values are returned as-is; range checks belong to the caller.
func toIndex(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		if math.Abs(n) >= math.MaxInt {
			return 0, fmt.Errorf("%v is out of range", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// coerceExtra normalizes an extra field value to the declared type where
// that is lossless; anything else passes through unchanged.
func coerceExtra(v any, typ string) any {
	switch typ {
	case "integer":
		if i, err := toIndex(v); err == nil {
			return int64(i)
		}
	case "number":
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	case "string":
		if _, ok := v.(string); !ok && v != nil {
			return fmt.Sprint(v)
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	}
	return normalizeScalar(v)
}

// normalizeScalar maps decoded numbers onto the dataset value types.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}
