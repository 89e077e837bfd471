package docsearch

import (
	"context"
	"fmt"

	"github.com/poiesic/llmerge/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// DefaultRetrieverDocuments is the number of documents a retriever returns
// when none is configured.
const DefaultRetrieverDocuments = 4

// Loader produces the documents of a new index.
type Loader func(ctx context.Context) ([]schema.Document, error)

// Index is a collection ready for retrieval.
type Index struct {
	store      *Store
	collection *core.Collection
	created    bool
}

// CreateOrLoad opens the store's collection. When it already exists
// nothing is loaded or embedded; otherwise load is called and every
// document is embedded and stored.
func CreateOrLoad(ctx context.Context, store *Store, load Loader) (*Index, error) {
	exists, err := store.Exists(ctx)
	if err != nil {
		return nil, err
	}

	created := false
	if exists {
		store.logger.Info("collection already exists, no documents added and no embeddings computed",
			"collection", store.collection)
	} else {
		docs, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load documents: %w", err)
		}
		if _, err := store.ensureCollection(ctx); err != nil {
			return nil, err
		}
		if _, err := store.AddDocuments(ctx, docs); err != nil {
			// A partial collection would be reused as complete on the next run.
			if delErr := store.repo.DeleteCollection(context.WithoutCancel(ctx), store.collection); delErr != nil {
				store.logger.Error("failed to remove partial collection", "collection", store.collection, "error", delErr)
			}
			return nil, err
		}
		created = true
		store.logger.Info("collection created", "collection", store.collection, "documents", len(docs))
	}

	c, err := store.repo.GetCollection(ctx, store.collection)
	if err != nil {
		return nil, err
	}
	if store.model != "" && c.Model != "" && c.Model != store.model {
		store.logger.Warn("collection was embedded with a different model",
			"collection", c.Name, "collectionModel", c.Model, "model", store.model)
	}

	return &Index{store: store, collection: c, created: created}, nil
}

// Created reports whether CreateOrLoad embedded new documents.
func (i *Index) Created() bool {
	return i.created
}

// Collection returns the collection metadata as of opening.
func (i *Index) Collection() *core.Collection {
	return i.collection
}

// Store returns the underlying vector store.
func (i *Index) Store() *Store {
	return i.store
}

// Retriever returns a langchaingo retriever over the index. k <= 0 uses
// DefaultRetrieverDocuments.
func (i *Index) Retriever(k int, opts ...vectorstores.Option) vectorstores.Retriever {
	if k <= 0 {
		k = DefaultRetrieverDocuments
	}
	return vectorstores.ToRetriever(i.store, k, opts...)
}

// Search returns the k documents most similar to query.
func (i *Index) Search(ctx context.Context, query string, k int, opts ...vectorstores.Option) ([]schema.Document, error) {
	if k <= 0 {
		k = DefaultRetrieverDocuments
	}
	return i.store.SimilaritySearch(ctx, query, k, opts...)
}
