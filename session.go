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

package llmerge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/ai/openai"
	"github.com/poiesic/llmerge/config"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/docsearch"
	"github.com/poiesic/llmerge/merge"
	"github.com/poiesic/llmerge/storage"
	"github.com/poiesic/llmerge/storage/badger"
	"github.com/poiesic/llmerge/tabular"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"golang.org/x/sync/errgroup"
)

// Session runs the operations of one job: merging two datasets and
// building or querying a document index.
type Session struct {
	job      *config.Job
	provider ai.AIProvider
	joiner   *merge.Joiner
	progress io.Writer
	logger   *slog.Logger

	mu       sync.Mutex
	repo     storage.DocumentRepository
	ownsRepo bool
	index    *docsearch.Index
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	provider ai.AIProvider
	repo     storage.DocumentRepository
	progress io.Writer
	logger   *slog.Logger
}

// WithProvider uses p instead of an OpenAI-compatible provider built from
// the job. The session closes it.
func WithProvider(p ai.AIProvider) SessionOption {
	return func(o *sessionOptions) {
		o.provider = p
	}
}

// WithRepository uses repo for the document index instead of opening
// embedding.store_path. The caller keeps ownership.
func WithRepository(repo storage.DocumentRepository) SessionOption {
	return func(o *sessionOptions) {
		o.repo = repo
	}
}

// WithProgress reports merge and embedding progress to w.
func WithProgress(w io.Writer) SessionOption {
	return func(o *sessionOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// NewSession wires the provider and joiner described by job.
func NewSession(job *config.Job, opts ...SessionOption) (*Session, error) {
	if job == nil {
		job = config.Default()
	}
	options := &sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(job.AIConfig())
		if err != nil {
			return nil, err
		}
	}

	matcher, err := ai.NewRetryingMatcher(provider.Matcher(), job.Chain.Retries, job.RetryDelay())
	if err != nil {
		provider.Close()
		return nil, err
	}
	mergeOpts, err := job.MergeOptions()
	if err != nil {
		provider.Close()
		return nil, err
	}
	mergeOpts = append(mergeOpts, merge.WithLogger(options.logger))
	if options.progress != nil {
		mergeOpts = append(mergeOpts, merge.WithProgress(options.progress))
	}
	joiner, err := merge.NewJoiner(matcher, mergeOpts...)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &Session{
		job:      job,
		provider: provider,
		joiner:   joiner,
		progress: options.progress,
		logger:   options.logger.With("component", "session"),
		repo:     options.repo,
	}, nil
}

// Job returns the session's job.
func (s *Session) Job() *config.Job {
	return s.job
}

// Merge joins left and right on the job's key fields.
func (s *Session) Merge(ctx context.Context, left, right *core.Dataset) (*core.Dataset, error) {
	leftKey, rightKey, err := s.job.Keys()
	if err != nil {
		return nil, err
	}
	return s.joiner.Join(ctx, left, right, leftKey, rightKey)
}

// MergeFiles reads both input datasets, joins them and writes the result
// to data.output when a path is configured.
func (s *Session) MergeFiles(ctx context.Context) (*core.Dataset, error) {
	leftSrc, err := s.job.Data.Left.Source()
	if err != nil {
		return nil, fmt.Errorf("data.left: %w", err)
	}
	rightSrc, err := s.job.Data.Right.Source()
	if err != nil {
		return nil, fmt.Errorf("data.right: %w", err)
	}

	var left, right *core.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		left, err = tabular.Read(gctx, leftSrc)
		return err
	})
	g.Go(func() (err error) {
		right, err = tabular.Read(gctx, rightSrc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("datasets loaded", "left", left.Len(), "right", right.Len())

	merged, err := s.Merge(ctx, left, right)
	if err != nil {
		return nil, err
	}
	s.logger.Info("merge complete", "rows", merged.Len())

	if s.job.Data.Output.Path == "" {
		return merged, nil
	}
	sink, err := s.job.Data.Output.Sink()
	if err != nil {
		return nil, err
	}
	if err := tabular.Write(ctx, sink, merged); err != nil {
		return nil, err
	}
	s.logger.Info("output written", "path", sink.Path)
	return merged, nil
}

// BuildIndex opens the configured collection, embedding its source
// documents when the collection does not exist yet.
func (s *Session) BuildIndex(ctx context.Context) (*docsearch.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}

	store, err := s.openStore()
	if err != nil {
		return nil, err
	}
	index, err := docsearch.CreateOrLoad(ctx, store, s.loader())
	if err != nil {
		return nil, err
	}
	s.index = index
	return index, nil
}

// Reembed recomputes the vectors of the configured collection with the
// job's embedding model. It returns the number of documents processed.
func (s *Session) Reembed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.openStore()
	if err != nil {
		return 0, err
	}
	s.index = nil
	return store.Reembed(ctx)
}

// openStore opens the repository on first use and returns a store for
// the configured collection. Callers hold s.mu.
func (s *Session) openStore() (*docsearch.Store, error) {
	if s.repo == nil {
		repo, err := badger.NewRepository(s.job.Embedding.StorePath)
		if err != nil {
			return nil, err
		}
		s.repo = repo
		s.ownsRepo = true
	}

	emb := s.job.Embedding
	storeOpts := []docsearch.Option{
		docsearch.WithModel(emb.Model),
		docsearch.WithBatchSize(emb.BatchSize),
		docsearch.WithRetry(s.job.Chain.Retries, s.job.RetryDelay()),
		docsearch.WithLogger(s.logger),
	}
	if s.progress != nil {
		storeOpts = append(storeOpts, docsearch.WithProgress(s.progress))
	}
	return docsearch.NewStore(s.repo, s.provider.Embedder(), emb.Collection, storeOpts...)
}

func (s *Session) loader() docsearch.Loader {
	src := s.job.Embedding.Source
	return func(ctx context.Context) ([]schema.Document, error) {
		switch src.Type {
		case config.SourcePDF:
			if src.Path == "" {
				return nil, fmt.Errorf("%w: embedding.source.path", config.ErrMissingInput)
			}
			return docsearch.LoadPDF(ctx, src.Path, docsearch.SplitOptions{
				ChunkSize:    src.ChunkSize,
				ChunkOverlap: src.ChunkOverlap,
			})
		case config.SourceDataset:
			in, err := src.Dataset.Source()
			if err != nil {
				return nil, fmt.Errorf("embedding.source.dataset: %w", err)
			}
			ds, err := tabular.Read(ctx, in)
			if err != nil {
				return nil, err
			}
			columns := src.SourceColumns()
			if len(columns) == 0 {
				columns = ds.Fields
			}
			return docsearch.DocumentsFromDataset(ds, columns)
		default:
			return nil, fmt.Errorf("%w: embedding.source.type %q", config.ErrInvalid, src.Type)
		}
	}
}

// Search returns the documents most similar to query. k <= 0 uses
// embedding.k.
func (s *Session) Search(ctx context.Context, query string, k int) ([]schema.Document, error) {
	index, err := s.BuildIndex(ctx)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.job.Embedding.K
	}
	var opts []vectorstores.Option
	if th := s.job.Embedding.ScoreThreshold; th > 0 {
		opts = append(opts, vectorstores.WithScoreThreshold(th))
	}
	return index.Search(ctx, query, k, opts...)
}

// Close releases the joiner, the provider and any repository the session
// opened.
func (s *Session) Close() error {
	s.joiner.Release()

	var errs []error
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsRepo && s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Error("error closing document repository", "err", err)
			errs = append(errs, err)
		}
		s.repo = nil
	}
	s.index = nil
	return errors.Join(errs...)
}
