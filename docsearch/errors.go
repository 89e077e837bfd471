package docsearch

import "errors"

var (
	// ErrInvalidScoreThreshold indicates a score threshold outside [0, 1].
	ErrInvalidScoreThreshold = errors.New("score threshold must be between 0 and 1")

	// ErrEmbeddingMismatch indicates the embedder returned a different
	// number of vectors than texts.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrNoContentColumns indicates no columns were chosen as document content.
	ErrNoContentColumns = errors.New("no content columns")

	// ErrCollectionRequired indicates a store was created without a collection name.
	ErrCollectionRequired = errors.New("collection name is required")
)
