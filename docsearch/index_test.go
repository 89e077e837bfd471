package docsearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/llmerge/ai/mock"
	"github.com/poiesic/llmerge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

func staticLoader(calls *int, texts ...string) Loader {
	return func(context.Context) ([]schema.Document, error) {
		*calls++
		return textDocs(texts...), nil
	}
}

func TestCreateOrLoad_CreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	embedder := mock.NewMockEmbedder()
	loads := 0

	store, err := NewStore(repo, embedder, "rewe")
	require.NoError(t, err)
	index, err := CreateOrLoad(ctx, store, staticLoader(&loads, "milk", "oats", "tomatoes"))
	require.NoError(t, err)
	assert.True(t, index.Created())
	assert.Equal(t, 3, index.Collection().Count)
	assert.Equal(t, 1, loads)
	embedCalls := embedder.CallCount()

	store, err = NewStore(repo, embedder, "rewe")
	require.NoError(t, err)
	index, err = CreateOrLoad(ctx, store, staticLoader(&loads, "should", "not", "load"))
	require.NoError(t, err)
	assert.False(t, index.Created())
	assert.Equal(t, 1, loads, "an existing collection is not reloaded")
	assert.Equal(t, embedCalls, embedder.CallCount(), "nothing is embedded again")
	assert.Equal(t, 3, index.Collection().Count)
}

func TestCreateOrLoad_EmptyLoad(t *testing.T) {
	loads := 0
	store, err := NewStore(newRepo(t), mock.NewMockEmbedder(), "empty")
	require.NoError(t, err)

	index, err := CreateOrLoad(context.Background(), store, staticLoader(&loads))
	require.NoError(t, err)
	assert.True(t, index.Created())
	assert.Equal(t, 0, index.Collection().Count)
}

func TestCreateOrLoad_LoaderError(t *testing.T) {
	store, err := NewStore(newRepo(t), mock.NewMockEmbedder(), "c")
	require.NoError(t, err)

	_, err = CreateOrLoad(context.Background(), store, func(context.Context) ([]schema.Document, error) {
		return nil, errors.New("file not found")
	})
	assert.ErrorContains(t, err, "file not found")

	exists, err := store.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateOrLoad_RemovesPartialCollection(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	calls := 0
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("quota exceeded")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	})
	store, err := NewStore(repo, embedder, "c", WithBatchSize(1), WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	loads := 0
	_, err = CreateOrLoad(ctx, store, staticLoader(&loads, "a", "b"))
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = repo.GetCollection(ctx, "c")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexRetriever(t *testing.T) {
	ctx := context.Background()
	loads := 0
	store, err := NewStore(newRepo(t), mock.NewMockEmbedder(), "c")
	require.NoError(t, err)
	index, err := CreateOrLoad(ctx, store, staticLoader(&loads, "a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.Same(t, store, index.Store())

	docs, err := index.Retriever(0).GetRelevantDocuments(ctx, "c")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(docs), DefaultRetrieverDocuments)
	require.NotEmpty(t, docs)
	assert.Equal(t, "c", docs[0].PageContent)

	docs, err = index.Search(ctx, "e", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "e", docs[0].PageContent)
}
