package merge

import (
	"fmt"

	"github.com/poiesic/llmerge/core"
)

// Labels name the sources of output fields. Left and Right qualify
// colliding data fields; Match is the namespace of the matcher's extra
// fields.
type Labels struct {
	Left  string
	Right string
	Match string
}

// DefaultLabels returns the labels used when none are configured.
func DefaultLabels() Labels {
	return Labels{Left: "left", Right: "right", Match: "match"}
}

// layout is the schema of the merged dataset: extra matcher fields, then
// left fields, then right fields. The index reference fields are never part
// of it.
type layout struct {
	fields []core.Field
	extras []string
	nRight int
}

// newLayout computes the merged schema. A data field that would appear more
// than once is qualified with its source label; the result must be free of
// duplicates.
func newLayout(schema core.MatchSchema, labels Labels, left, right []core.Field) (*layout, error) {
	extras := make([]core.Field, len(schema.Extra))
	names := make([]string, len(schema.Extra))
	for i, f := range schema.Extra {
		extras[i] = core.NF(labels.Match, f.Name)
		names[i] = f.Name
	}

	counts := make(map[core.Field]int, len(extras)+len(left)+len(right))
	for _, group := range [][]core.Field{extras, left, right} {
		for _, f := range group {
			counts[f]++
		}
	}

	fields := make([]core.Field, 0, len(extras)+len(left)+len(right))
	fields = append(fields, extras...)
	for _, f := range left {
		if counts[f] > 1 {
			f = f.Qualify(labels.Left)
		}
		fields = append(fields, f)
	}
	for _, f := range right {
		if counts[f] > 1 {
			f = f.Qualify(labels.Right)
		}
		fields = append(fields, f)
	}

	seen := make(map[core.Field]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			return nil, fmt.Errorf("%w: output field %q is ambiguous after qualification",
				core.ErrSchemaConfiguration, f)
		}
		seen[f] = struct{}{}
	}

	return &layout{
		fields: fields,
		extras: names,
		nRight: len(right),
	}, nil
}

// row assembles one merged record. right is nil for an unmatched left row.
func (l *layout) row(extra map[string]any, left, right []any) []any {
	values := make([]any, 0, len(l.fields))
	for _, name := range l.extras {
		values = append(values, extra[name])
	}
	values = append(values, left...)
	if right == nil {
		return append(values, make([]any, l.nRight)...)
	}
	return append(values, right...)
}
