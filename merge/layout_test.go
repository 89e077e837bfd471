package merge

import (
	"testing"

	"github.com/poiesic/llmerge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout_NoCollisions(t *testing.T) {
	l, err := newLayout(core.DefaultMatchSchema(), DefaultLabels(),
		[]core.Field{core.F("Name"), core.F("Price")},
		[]core.Field{core.F("FDC Name"), core.F("Energy")},
	)
	require.NoError(t, err)

	assert.Equal(t, []core.Field{
		core.NF("match", "similarity"),
		core.F("Name"), core.F("Price"),
		core.F("FDC Name"), core.F("Energy"),
	}, l.fields)
}

func TestNewLayout_Collisions(t *testing.T) {
	l, err := newLayout(core.MatchSchema{LeftIndexField: "index_1", RightIndexField: "index_2"}, DefaultLabels(),
		[]core.Field{core.F("Name"), core.NF("Data", "Name"), core.F("Brand")},
		[]core.Field{core.F("Name"), core.NF("Data", "Name"), core.F("kcal")},
	)
	require.NoError(t, err)

	assert.Equal(t, []core.Field{
		core.NF("left", "Name"), core.NF("left.Data", "Name"), core.F("Brand"),
		core.NF("right", "Name"), core.NF("right.Data", "Name"), core.F("kcal"),
	}, l.fields)
}

func TestNewLayout_MatchFieldCollision(t *testing.T) {
	schema := core.MatchSchema{
		LeftIndexField:  "index_1",
		RightIndexField: "index_2",
		Extra:           []core.SchemaField{{Name: "score", Type: "number"}},
	}
	l, err := newLayout(schema, DefaultLabels(),
		[]core.Field{core.NF("match", "score")},
		[]core.Field{core.F("Name")},
	)
	require.NoError(t, err)

	assert.Equal(t, []core.Field{
		core.NF("match", "score"),
		core.NF("left.match", "score"),
		core.F("Name"),
	}, l.fields)
}

func TestNewLayout_IndexFieldNamesKept(t *testing.T) {
	// Data fields that merely contain an index field name stay in the output.
	l, err := newLayout(core.DefaultMatchSchema(), DefaultLabels(),
		[]core.Field{core.F("index_1"), core.F("my_index_1_col")},
		[]core.Field{core.F("index_2")},
	)
	require.NoError(t, err)

	assert.Contains(t, l.fields, core.F("index_1"))
	assert.Contains(t, l.fields, core.F("my_index_1_col"))
	assert.Contains(t, l.fields, core.F("index_2"))
}

func TestNewLayout_AmbiguousAfterQualification(t *testing.T) {
	_, err := newLayout(core.MatchSchema{LeftIndexField: "a", RightIndexField: "b"}, DefaultLabels(),
		[]core.Field{core.F("Name"), core.NF("left", "Name")},
		[]core.Field{core.F("Name")},
	)
	assert.ErrorIs(t, err, core.ErrSchemaConfiguration)
}

func TestLayoutRow(t *testing.T) {
	l, err := newLayout(core.DefaultMatchSchema(), DefaultLabels(),
		[]core.Field{core.F("a")},
		[]core.Field{core.F("b"), core.F("c")},
	)
	require.NoError(t, err)

	assert.Equal(t, []any{0.8, "x", "y", "z"}, l.row(map[string]any{"similarity": 0.8}, []any{"x"}, []any{"y", "z"}))
	assert.Equal(t, []any{nil, "x", nil, nil}, l.row(nil, []any{"x"}, nil))
}
