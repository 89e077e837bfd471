package storage

import (
	"context"

	"github.com/poiesic/llmerge/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds documents of a collection similar to the given vector.
	// Returns documents with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, collection string, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository stores named collections of embedded documents.
type DocumentRepository interface {
	Repository

	// CreateCollection registers a new collection.
	// Sets CreatedAt and UpdatedAt.
	// Returns ErrCollectionExists if a collection with the same name exists.
	CreateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error)

	// GetCollection retrieves a collection by name.
	// Returns ErrNotFound if it doesn't exist.
	GetCollection(ctx context.Context, name string) (*core.Collection, error)

	// ListCollections returns all collections ordered by name.
	ListCollections(ctx context.Context) ([]*core.Collection, error)

	// UpdateCollection replaces the model and dimension of an existing
	// collection and sets UpdatedAt. Name, Count and CreatedAt are kept.
	// Returns ErrNotFound if it doesn't exist.
	UpdateCollection(ctx context.Context, collection *core.Collection) (*core.Collection, error)

	// DeleteCollection removes a collection and all of its documents.
	// Returns ErrNotFound if it doesn't exist.
	DeleteCollection(ctx context.Context, name string) error

	// AddDocuments stores documents in an existing collection.
	// Documents with an empty ID get a content-derived ID.
	// Existing documents with the same ID are replaced.
	// Returns ErrNotFound if the collection doesn't exist.
	AddDocuments(ctx context.Context, collection string, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, collection, id string) (*core.Document, error)

	// GetDocuments returns all documents of a collection in key order.
	GetDocuments(ctx context.Context, collection string) ([]*core.Document, error)
}
