// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docsearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"reflect"
	"strconv"
	"time"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/progress"
	"github.com/poiesic/llmerge/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

const (
	// DefaultBatchSize is the number of documents embedded per request.
	DefaultBatchSize = 100

	// ModelMetadataKey holds the embedding model name in document metadata.
	ModelMetadataKey = "model"
)

// Store is a langchaingo vector store over a storage.DocumentRepository.
// Documents are embedded with an ai.Embedder, normalized and stored in a
// single collection.
type Store struct {
	repo       storage.DocumentRepository
	embedder   ai.Embedder
	collection string
	model      string

	batchSize  int
	maxRetries int
	retryDelay time.Duration
	progress   io.Writer
	logger     *slog.Logger
}

var _ vectorstores.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithModel sets the model name recorded on the collection and every
// document. Defaults to the embedder's Model() when it has one.
func WithModel(model string) Option {
	return func(s *Store) error {
		s.model = model
		return nil
	}
}

// WithBatchSize sets how many documents are embedded per request.
func WithBatchSize(n int) Option {
	return func(s *Store) error {
		if n < 1 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithRetry sets the attempts and base backoff delay for embedding requests.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Store) error {
		if maxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		s.maxRetries = maxAttempts
		s.retryDelay = baseDelay
		return nil
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) Option {
	return func(s *Store) error {
		s.progress = w
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

type modelNamer interface {
	Model() string
}

// NewStore creates a store for one collection.
func NewStore(repo storage.DocumentRepository, embedder ai.Embedder, collection string, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if collection == "" {
		return nil, ErrCollectionRequired
	}

	s := &Store{
		repo:       repo,
		embedder:   embedder,
		collection: collection,
		batchSize:  DefaultBatchSize,
		maxRetries: 3,
		retryDelay: time.Second,
		logger:     slog.Default().With("component", "docsearch"),
	}
	if named, ok := embedder.(modelNamer); ok {
		s.model = named.Model()
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Model returns the embedding model name recorded with documents.
func (s *Store) Model() string {
	return s.model
}

// Exists reports whether the collection has been created.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, err := s.repo.GetCollection(ctx, s.collection)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) ensureCollection(ctx context.Context) (*core.Collection, error) {
	c, err := s.repo.GetCollection(ctx, s.collection)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	c, err = s.repo.CreateCollection(ctx, &core.Collection{Name: s.collection, Model: s.model})
	if errors.Is(err, storage.ErrCollectionExists) {
		return s.repo.GetCollection(ctx, s.collection)
	}
	return c, err
}

// AddDocuments embeds and stores docs, creating the collection if needed.
// Documents get sequential ids continuing from the collection's current
// count, so a fresh collection holds "0" to "n-1". The returned ids are
// in input order; documents rejected by a Deduplicater option are
// skipped and get no id.
func (s *Store) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := getOptions(options...)

	if opts.Deduplicater != nil {
		kept := docs[:0:0]
		for _, doc := range docs {
			if !opts.Deduplicater(ctx, doc) {
				kept = append(kept, doc)
			}
		}
		docs = kept
	}
	if len(docs) == 0 {
		return nil, nil
	}

	c, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", s.collection, err)
	}

	var tracker *progress.Tracker
	if s.progress != nil {
		tracker = progress.NewTracker(s.progress, len(docs), s.batchSize,
			progress.WithLabel("Embedding"), progress.WithUnit("docs"))
		tracker.Start()
	}

	ids := make([]string, 0, len(docs))
	next := c.Count
	for start := 0; start < len(docs); start += s.batchSize {
		batch := docs[start:min(start+s.batchSize, len(docs))]
		stored, err := s.processBatch(ctx, batch, next)
		if err != nil {
			if tracker != nil {
				tracker.Abort()
			}
			return ids, err
		}
		for _, doc := range stored {
			ids = append(ids, doc.ID)
		}
		next += len(batch)
		if tracker != nil {
			tracker.Update(start + len(batch))
		}
	}
	if tracker != nil {
		tracker.Finish()
	}

	s.logger.Debug("documents added", "collection", s.collection, "count", len(ids))
	return ids, nil
}

// processBatch embeds one batch with retry and stores it.
func (s *Store) processBatch(ctx context.Context, batch []schema.Document, firstID int) ([]*core.Document, error) {
	texts := make([]string, len(batch))
	for i, doc := range batch {
		texts[i] = doc.PageContent
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = s.embedder.EmbedTexts(ctx, texts)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", s.maxRetries, err)
	}
	if len(embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(embeddings))
	}

	records := make([]*core.Document, len(batch))
	for i, doc := range batch {
		meta := maps.Clone(doc.Metadata)
		if meta == nil {
			meta = make(map[string]any, 1)
		}
		if s.model != "" {
			meta[ModelMetadataKey] = s.model
		}
		records[i] = &core.Document{
			ID:       strconv.Itoa(firstID + i),
			Content:  doc.PageContent,
			Metadata: meta,
			Vector:   NormalizeVector(embeddings[i]),
		}
	}

	stored, err := s.repo.AddDocuments(ctx, s.collection, records...)
	if err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}
	return stored, nil
}

// SimilaritySearch returns the numDocuments documents most similar to
// query. A non-zero score threshold option drops documents scoring below
// it; without one, negative cosine scores are returned too.
// The namespace option selects another collection in the same
// repository; a map[string]any filter keeps only documents whose
// metadata holds every listed key with an equal value.
func (s *Store) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := getOptions(options...)
	if opts.ScoreThreshold < 0 || opts.ScoreThreshold > 1 {
		return nil, ErrInvalidScoreThreshold
	}
	if numDocuments < 1 {
		return nil, nil
	}

	collection := s.collection
	if opts.NameSpace != "" {
		collection = opts.NameSpace
	}

	vector, err := s.embedQuery(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter, _ := opts.Filters.(map[string]any)
	limit := numDocuments
	if len(filter) > 0 {
		c, err := s.repo.GetCollection(ctx, collection)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		limit = max(c.Count, 1)
	}

	floor := opts.ScoreThreshold
	if floor == 0 {
		floor = noScoreFloor
	}
	results, err := s.repo.FindSimilar(ctx, collection, NormalizeVector(vector), floor, limit)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, min(len(results), numDocuments))
	for _, r := range results {
		if !matchesFilter(r.Document.Metadata, filter) {
			continue
		}
		docs = append(docs, schema.Document{
			PageContent: r.Document.Content,
			Metadata:    r.Document.Metadata,
			Score:       r.Score,
		})
		if len(docs) == numDocuments {
			break
		}
	}
	return docs, nil
}

// noScoreFloor is the lowest cosine similarity of unit vectors.
const noScoreFloor = -1

func (s *Store) embedQuery(ctx context.Context, query string, opts vectorstores.Options) ([]float32, error) {
	if opts.Embedder != nil {
		vectors, err := opts.Embedder.EmbedDocuments(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("%w: expected 1, got %d", ErrEmbeddingMismatch, len(vectors))
		}
		return vectors[0], nil
	}
	return s.embedder.EmbedText(ctx, query)
}

func getOptions(options ...vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

func matchesFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || !reflect.DeepEqual(normalizeMeta(got), normalizeMeta(want)) {
			return false
		}
	}
	return true
}

// normalizeMeta widens integers so that filters written with int match
// metadata decoded as int64.
func normalizeMeta(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
