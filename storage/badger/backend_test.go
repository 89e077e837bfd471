package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := OpenBackend(path, false)
	assert.ErrorContains(t, err, "not a directory")
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	_, err = backend.FindSimilar(context.Background(), "c", []float32{1}, 0, 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestFindSimilar_NoRecords(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	results, err := backend.FindSimilar(context.Background(), "products", []float32{0.1, 0.2, 0.3}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.FindSimilar(context.Background(), "products", []float32{1}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func seedCollection(t *testing.T, repo storage.DocumentRepository, name string, docs ...*core.Document) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.CreateCollection(ctx, &core.Collection{Name: name, Model: "mock-embedding"})
	require.NoError(t, err)
	_, err = repo.AddDocuments(ctx, name, docs...)
	require.NoError(t, err)
}

func TestFindSimilar_WithDocuments(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	seedCollection(t, repo, "products",
		&core.Document{ID: "0", Content: "whole milk", Vector: []float32{1.0, 0.0, 0.0}},
		&core.Document{ID: "1", Content: "skimmed milk", Vector: []float32{0.9, 0.1, 0.0}},
		&core.Document{ID: "2", Content: "tomato puree", Vector: []float32{0.0, 0.0, 1.0}},
		&core.Document{ID: "3", Content: "no vector"},
	)

	results, err := repo.FindSimilar(context.Background(), "products", []float32{1.0, 0.0, 0.0}, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "whole milk", results[0].Document.Content)
	assert.Equal(t, "skimmed milk", results[1].Document.Content)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestFindSimilar_ThresholdAndLimit(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	seedCollection(t, repo, "products",
		&core.Document{ID: "high", Content: "high", Vector: []float32{1.0, 0.0, 0.0}},
		&core.Document{ID: "medium", Content: "medium", Vector: []float32{0.7, 0.3, 0.0}},
		&core.Document{ID: "low", Content: "low", Vector: []float32{0.3, 0.7, 0.0}},
	)
	ctx := context.Background()
	query := []float32{1.0, 0.0, 0.0}

	tests := []struct {
		name      string
		threshold float32
		limit     int
		want      []string
	}{
		{"high threshold", 0.95, 10, []string{"high"}},
		{"medium threshold", 0.6, 10, []string{"high", "medium"}},
		{"no threshold", 0, 10, []string{"high", "medium", "low"}},
		{"limited", 0, 2, []string{"high", "medium"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.FindSimilar(ctx, "products", query, tt.threshold, tt.limit)
			require.NoError(t, err)
			var got []string
			for _, r := range results {
				got = append(got, r.Document.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindSimilar_CollectionIsolation(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	seedCollection(t, repo, "a", &core.Document{ID: "0", Content: "in a", Vector: []float32{1, 0}})
	seedCollection(t, repo, "ab", &core.Document{ID: "0", Content: "in ab", Vector: []float32{1, 0}})

	results, err := repo.FindSimilar(context.Background(), "a", []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "in a", results[0].Document.Content)
}

func TestFindSimilar_SkipsOtherDimensions(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	seedCollection(t, repo, "products",
		&core.Document{ID: "0", Content: "two", Vector: []float32{1, 0}},
		&core.Document{ID: "1", Content: "three", Vector: []float32{1, 0, 0}},
	)

	results, err := repo.FindSimilar(context.Background(), "products", []float32{1, 0, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "three", results[0].Document.Content)
}

func TestFindSimilar_TiesKeepKeyOrder(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	seedCollection(t, repo, "products",
		&core.Document{ID: "a", Content: "a", Vector: []float32{0, 1}},
		&core.Document{ID: "b", Content: "b", Vector: []float32{1, 0}},
		&core.Document{ID: "c", Content: "c", Vector: []float32{1, 0}},
		&core.Document{ID: "d", Content: "d", Vector: []float32{1, 0}},
	)

	results, err := repo.FindSimilar(context.Background(), "products", []float32{1, 0}, 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Document.ID)
	assert.Equal(t, "c", results[1].Document.ID)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float32
		wantOK bool
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"opposite", []float32{0.6, 0.8}, []float32{-0.6, -0.8}, -1, true},
		{"dimension mismatch", []float32{1, 1, 5}, []float32{1, 1}, 0, false},
		{"empty", nil, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := similarity(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}
