package merge

import (
	"testing"

	"github.com/poiesic/llmerge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBlock(t *testing.T) {
	ds := core.NewDataset([]core.Field{core.F("id"), core.F("name")},
		[]any{int64(1), "Vollmilch"},
		[]any{int64(2), nil},
		[]any{int64(3), "Bio\nÄpfel"},
	)

	block, err := RenderBlock(ds, core.F("name"))
	require.NoError(t, err)
	assert.Equal(t, "0: Vollmilch\n1: \n2: Bio Äpfel", block)

	block, err = RenderBlock(ds.Slice(1, 3), core.F("id"))
	require.NoError(t, err)
	assert.Equal(t, "1: 2\n2: 3", block, "chunk keeps original indices")
}

func TestRenderBlock_UnknownField(t *testing.T) {
	ds := core.NewDataset([]core.Field{core.F("name")})
	_, err := RenderBlock(ds, core.F("title"))
	assert.ErrorIs(t, err, core.ErrUnknownField)
}

func TestKeyText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"apple", "apple"},
		{int64(42), "42"},
		{1.5, "1.5"},
		{100.0, "100"},
		{true, "true"},
		{"a\r\nb", "a b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeyText(tt.in))
	}
}
