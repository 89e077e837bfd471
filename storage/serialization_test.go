package storage

import (
	"testing"
	"time"

	"github.com/poiesic/llmerge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "content only",
			doc:  &core.Document{ID: "0", Content: "Bio Vollmilch 3,8%"},
		},
		{
			name: "with metadata and vector",
			doc: &core.Document{
				ID:      "17",
				Content: "Name: Haferflocken\nBrand: Alnatura",
				Metadata: map[string]any{
					"model":  "embeddinggemma",
					"page":   int64(3),
					"score":  0.25,
					"source": "rewe.csv",
					"bio":    true,
				},
				Vector: []float32{0.1, -0.2, 0.3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalDocument(tt.doc)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalDocument(data)
			require.NoError(t, err)
			assert.Equal(t, tt.doc, decoded)
		})
	}
}

func TestMarshalUnmarshalCollection(t *testing.T) {
	now := time.Date(2025, 3, 14, 7, 15, 0, 123456789, time.UTC)
	c := &core.Collection{
		Name:      "rewe_products",
		Model:     "embeddinggemma",
		Dimension: 768,
		Count:     1200,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}

	data, err := MarshalCollection(c)
	require.NoError(t, err)

	decoded, err := UnmarshalCollection(data)
	require.NoError(t, err)
	assert.Equal(t, c.Name, decoded.Name)
	assert.Equal(t, c.Model, decoded.Model)
	assert.Equal(t, c.Dimension, decoded.Dimension)
	assert.Equal(t, c.Count, decoded.Count)
	assert.True(t, c.CreatedAt.Equal(decoded.CreatedAt), "created %s, decoded %s", c.CreatedAt, decoded.CreatedAt)
	assert.True(t, c.UpdatedAt.Equal(decoded.UpdatedAt), "updated %s, decoded %s", c.UpdatedAt, decoded.UpdatedAt)
}

func TestMarshalCollection_TimestampsExact(t *testing.T) {
	for _, ts := range []time.Time{
		time.Date(2025, 3, 14, 7, 15, 0, 123456000, time.UTC),
		time.Date(2025, 3, 14, 7, 15, 0, 1, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 999999999, time.UTC),
	} {
		data, err := MarshalCollection(&core.Collection{Name: "c", CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
		decoded, err := UnmarshalCollection(data)
		require.NoError(t, err)
		assert.Zero(t, decoded.CreatedAt.Sub(ts), "drift for %s", ts.Format(time.RFC3339Nano))
		assert.Zero(t, decoded.UpdatedAt.Sub(ts))
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", []byte{0xa4, 0x01}},
		{"wrong type", []byte{0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDocument(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)

			_, err = UnmarshalCollection(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
