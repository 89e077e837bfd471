package openai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/llmerge/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder calls an OpenAI-compatible /embeddings endpoint through
// langchaingo, which also splits large inputs into batches.
type Embedder struct {
	client embeddings.Embedder
	model  string
	logger *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token()),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	return newEmbedderWithClient(llm, config)
}

func newEmbedderWithClient(llm embeddings.EmbedderClient, config *ai.Config) (*Embedder, error) {
	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.EmbeddingBatchSize),
	)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		client: client,
		model:  config.EmbeddingModel,
		logger: slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder builds a standalone embedder from config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config)
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding endpoint returned %d vectors for one text", len(vectors))
	}
	return vectors[0], nil
}

// EmbedTexts returns one vector per text, in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("embedding", "texts", len(texts))
	// The client rewrites its argument when stripping newlines.
	vectors, err := e.client.EmbedDocuments(ctx, slices.Clone(texts))
	if err != nil {
		e.logger.Warn("embedding failed", "texts", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

// Model names the embedding model; indexes record it next to their vectors.
func (e *Embedder) Model() string {
	return e.model
}
