package docsearch

import (
	"context"
	"fmt"
	"maps"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/progress"
)

// Reembed recomputes the vector of every document in the store's
// collection with the store's embedder, keeping ids, content and
// metadata, and records the store's model on the collection. It returns
// the number of documents processed.
//
// Documents are replaced batch by batch; a failure leaves the collection
// with a mix of old and new vectors, and running Reembed again finishes
// the job.
func (s *Store) Reembed(ctx context.Context) (int, error) {
	c, err := s.repo.GetCollection(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("open collection %s: %w", s.collection, err)
	}
	docs, err := s.repo.GetDocuments(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to query documents: %w", err)
	}
	if len(docs) == 0 {
		s.logger.Info("no documents to reembed", "collection", s.collection)
		return 0, nil
	}

	s.logger.Info("starting reembedding", "collection", s.collection,
		"documents", len(docs), "fromModel", c.Model, "toModel", s.model, "batchSize", s.batchSize)

	var tracker *progress.Tracker
	if s.progress != nil {
		tracker = progress.NewTracker(s.progress, len(docs), s.batchSize,
			progress.WithLabel("Reembedding"), progress.WithUnit("docs"))
		tracker.Start()
	}

	dim := 0
	for start := 0; start < len(docs); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			if tracker != nil {
				tracker.Abort()
			}
			return start, err
		}
		batch := docs[start:min(start+s.batchSize, len(docs))]
		if err := s.reembedBatch(ctx, batch); err != nil {
			if tracker != nil {
				tracker.Abort()
			}
			return start, fmt.Errorf("failed to process batch: %w", err)
		}
		dim = len(batch[0].Vector)
		if tracker != nil {
			tracker.Update(start + len(batch))
		}
	}
	if tracker != nil {
		tracker.Finish()
	}

	if _, err := s.repo.UpdateCollection(ctx, &core.Collection{Name: s.collection, Model: s.model, Dimension: dim}); err != nil {
		return len(docs), err
	}
	return len(docs), nil
}

func (s *Store) reembedBatch(ctx context.Context, batch []*core.Document) error {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.Content
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = s.embedder.EmbedTexts(ctx, texts)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", s.maxRetries, err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(embeddings))
	}

	for i, doc := range batch {
		doc.Vector = NormalizeVector(embeddings[i])
		if s.model != "" {
			doc.Metadata = maps.Clone(doc.Metadata)
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]any, 1)
			}
			doc.Metadata[ModelMetadataKey] = s.model
		}
	}

	if _, err := s.repo.AddDocuments(ctx, s.collection, batch...); err != nil {
		return fmt.Errorf("failed to update documents: %w", err)
	}
	return nil
}
