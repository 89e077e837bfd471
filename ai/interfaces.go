package ai

import (
	"context"

	"github.com/poiesic/llmerge/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Matcher pairs the rows of two text blocks by meaning.
// Implementations must be thread-safe for concurrent use.
//
// Each block holds one "<index>: <key text>" line per row. The returned
// entries reference rows by those indices; an entry with a nil RightIndex
// states that the left row has no counterpart. Entries may be returned in
// any order and need not cover every left row.
type Matcher interface {
	Match(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error)
}

// MatcherFunc adapts an ordinary function to the Matcher interface.
type MatcherFunc func(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error)

// Match calls f(ctx, leftBlock, rightBlock).
func (f MatcherFunc) Match(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error) {
	return f(ctx, leftBlock, rightBlock)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Matcher returns the row matching service.
	Matcher() Matcher

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
