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

package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/progress"
)

// Joiner fuzzy-joins two datasets by asking a matcher to pair rows one
// chunk of left rows at a time. Every call carries the whole right dataset.
type Joiner struct {
	matcher     ai.Matcher
	schema      core.MatchSchema
	chunkSize   int
	concurrency int
	pool        *ants.Pool
	unmatched   Unmatched
	labels      Labels
	callTimeout time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// NewJoiner creates a Joiner around matcher.
func NewJoiner(matcher ai.Matcher, opts ...Option) (*Joiner, error) {
	if matcher == nil {
		return nil, ErrMatcherRequired
	}

	j := &Joiner{
		matcher:     matcher,
		schema:      core.DefaultMatchSchema(),
		chunkSize:   DefaultChunkSize,
		concurrency: 1,
		labels:      DefaultLabels(),
		logger:      slog.Default().With("component", "joiner"),
	}

	for _, opt := range opts {
		if err := opt(j); err != nil {
			j.Release()
			return nil, err
		}
	}

	return j, nil
}

// Release releases the worker pool.
// The Joiner should not be used after calling Release.
func (j *Joiner) Release() {
	if j.pool != nil {
		j.pool.Release()
		j.pool = nil
	}
}

// ChunkSize returns the configured chunk size.
func (j *Joiner) ChunkSize() int {
	return j.chunkSize
}

// NumChunks returns the number of matcher calls a left dataset of n rows needs.
func (j *Joiner) NumChunks(n int) int {
	return (n + j.chunkSize - 1) / j.chunkSize
}

// OutputFields returns the schema Join produces for the given inputs.
func (j *Joiner) OutputFields(left, right *core.Dataset) ([]core.Field, error) {
	l, err := newLayout(j.schema, j.labels, left.Fields, right.Fields)
	if err != nil {
		return nil, err
	}
	return l.fields, nil
}

// Join matches every chunk of left against the whole of right and
// concatenates the merged records in chunk order. Within a chunk, records
// follow the order of the matcher's result.
//
// Configuration problems are reported before any matcher call. A failed
// chunk fails the whole join; no partial result is returned.
func (j *Joiner) Join(ctx context.Context, left, right *core.Dataset, leftKey, rightKey core.Field) (*core.Dataset, error) {
	if err := j.validate(left, right, leftKey, rightKey); err != nil {
		return nil, err
	}

	l, err := newLayout(j.schema, j.labels, left.Fields, right.Fields)
	if err != nil {
		return nil, err
	}

	out := &core.Dataset{Fields: l.fields, Rows: []core.Record{}}
	if left.Len() == 0 {
		j.logger.Debug("left dataset is empty, nothing to match")
		return out, nil
	}

	rightBlock, err := RenderBlock(right, rightKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSchemaConfiguration, err)
	}

	numChunks := j.NumChunks(left.Len())
	j.logger.Info("joining datasets",
		"leftRows", left.Len(),
		"rightRows", right.Len(),
		"chunkSize", j.chunkSize,
		"chunks", numChunks,
		"concurrency", j.concurrency)

	job := &joinJob{
		joiner:     j,
		layout:     l,
		left:       left,
		right:      right,
		leftKey:    leftKey,
		rightBlock: rightBlock,
		results:    make([][][]any, numChunks),
	}
	if j.progress != nil {
		job.tracker = progress.NewTracker(j.progress, numChunks, 1,
			progress.WithLabel("Chunks"), progress.WithUnit("chunks"))
		job.tracker.Start()
	}

	if j.pool == nil {
		err = job.runSequential(ctx)
	} else {
		err = job.runPooled(ctx, j.pool)
	}
	if err != nil {
		if job.tracker != nil {
			job.tracker.Abort()
		}
		j.logger.Error("join failed", "err", err)
		return nil, err
	}
	if job.tracker != nil {
		job.tracker.Finish()
	}

	for _, rows := range job.results {
		for _, values := range rows {
			out.Rows = append(out.Rows, core.Record{Index: len(out.Rows), Values: values})
		}
	}

	j.logger.Info("join complete", "rows", len(out.Rows))
	return out, nil
}

func (j *Joiner) validate(left, right *core.Dataset, leftKey, rightKey core.Field) error {
	if err := core.ValidateDataset(left); err != nil {
		return fmt.Errorf("%w: left dataset: %w", core.ErrSchemaConfiguration, err)
	}
	if err := core.ValidateDataset(right); err != nil {
		return fmt.Errorf("%w: right dataset: %w", core.ErrSchemaConfiguration, err)
	}
	if err := core.ValidateKeyField(left, leftKey, string(SideLeft)); err != nil {
		return err
	}
	if err := core.ValidateKeyField(right, rightKey, string(SideRight)); err != nil {
		return err
	}
	if right.Len() == 0 {
		return fmt.Errorf("%w: right dataset is empty", core.ErrSchemaConfiguration)
	}
	return nil
}

// joinJob holds the state of one Join call. Each chunk writes only its own
// results slot.
type joinJob struct {
	joiner     *Joiner
	layout     *layout
	left       *core.Dataset
	right      *core.Dataset
	leftKey    core.Field
	rightBlock string
	results    [][][]any
	tracker    *progress.Tracker
}

func (job *joinJob) runSequential(ctx context.Context) error {
	for i := range job.results {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := job.chunk(ctx, i)
		if err != nil {
			return err
		}
		job.complete(i, rows)
	}
	return nil
}

// runPooled dispatches chunks on pool. On the first failure no further
// chunks are started, in-flight calls are cancelled and awaited, and the
// error of the lowest-indexed chunk that failed on its own is returned.
func (job *joinJob) runPooled(parent context.Context, pool *ants.Pool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	n := len(job.results)
	errs := make([]error, n)
	induced := make([]bool, n)
	var failed atomic.Bool
	var wg sync.WaitGroup

	fail := func(i int, err error) {
		// Errors seen after another chunk failed are fallout of the cancel.
		if failed.Load() && parent.Err() == nil && errors.Is(err, context.Canceled) {
			induced[i] = true
		}
		errs[i] = err
		failed.Store(true)
		cancel()
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			rows, err := job.chunk(ctx, i)
			if err != nil {
				fail(i, err)
				return
			}
			job.complete(i, rows)
		}); err != nil {
			wg.Done()
			fail(i, err)
			break
		}
	}
	wg.Wait()

	var fallback error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !induced[i] {
			return err
		}
		if fallback == nil {
			fallback = err
		}
	}
	if fallback != nil {
		return fallback
	}
	return parent.Err()
}

func (job *joinJob) complete(i int, rows [][]any) {
	job.results[i] = rows
	if job.tracker != nil {
		job.tracker.Increment(1)
	}
}

// chunk runs the matcher for chunk i and builds its merged rows.
func (job *joinJob) chunk(ctx context.Context, i int) ([][]any, error) {
	j := job.joiner
	lo := i * j.chunkSize
	hi := min(lo+j.chunkSize, job.left.Len())
	chunk := job.left.Slice(lo, hi)

	leftBlock, err := RenderBlock(chunk, job.leftKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSchemaConfiguration, err)
	}

	callCtx := ctx
	if j.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, j.callTimeout)
		defer cancel()
	}

	j.logger.Debug("matching chunk", "chunk", i, "lo", lo, "hi", hi)
	start := time.Now()
	matches, err := j.matcher.Match(callCtx, leftBlock, job.rightBlock)
	if err != nil {
		return nil, &MatcherInvocationError{Chunk: i, Err: err}
	}
	j.logger.Debug("chunk matched", "chunk", i, "entries", len(matches), "elapsed", time.Since(start))

	return job.assemble(i, chunk, lo, hi, matches)
}

// assemble validates every entry of a chunk's result before building any
// row, then applies the unmatched policy.
func (job *joinJob) assemble(i int, chunk *core.Dataset, lo, hi int, matches []core.Match) ([][]any, error) {
	nRight := job.right.Len()
	for _, m := range matches {
		if m.LeftIndex < lo || m.LeftIndex >= hi {
			return nil, &IndexIntegrityError{Chunk: i, Side: SideLeft, Index: m.LeftIndex, Lo: lo, Hi: hi}
		}
		if m.RightIndex != nil && (*m.RightIndex < 0 || *m.RightIndex >= nRight) {
			return nil, &IndexIntegrityError{Chunk: i, Side: SideRight, Index: *m.RightIndex, Lo: 0, Hi: nRight}
		}
	}

	seen := make([]bool, hi-lo)
	rows := make([][]any, 0, len(matches))
	for _, m := range matches {
		seen[m.LeftIndex-lo] = true
		leftValues := chunk.Rows[m.LeftIndex-lo].Values
		var rightValues []any
		if m.RightIndex != nil {
			rightValues = job.right.Rows[*m.RightIndex].Values
		}
		rows = append(rows, job.layout.row(m.Extra, leftValues, rightValues))
	}

	for pos, ok := range seen {
		if ok {
			continue
		}
		switch job.joiner.unmatched {
		case UnmatchedKeep:
			rows = append(rows, job.layout.row(nil, chunk.Rows[pos].Values, nil))
		case UnmatchedError:
			return nil, &IndexIntegrityError{Chunk: i, Side: SideLeft, Index: lo + pos, Lo: lo, Hi: hi, Omitted: true}
		}
	}

	if dropped := countMissing(seen); dropped > 0 && job.joiner.unmatched == UnmatchedDrop {
		job.joiner.logger.Debug("left rows omitted by matcher", "chunk", i, "rows", dropped)
	}
	return rows, nil
}

func countMissing(seen []bool) int {
	n := 0
	for _, ok := range seen {
		if !ok {
			n++
		}
	}
	return n
}
