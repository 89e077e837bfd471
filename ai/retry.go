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

package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/llmerge/core"
)

// RetryWithBackoff calls op up to maxAttempts times, sleeping baseDelay,
// 2*baseDelay, 4*baseDelay and so on between failures. It returns the last
// error from op, or ctx.Err() when ctx ends first.
func RetryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op()
		if err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			return err
		}
		slog.Debug("attempt failed", "attempt", attempt, "maxAttempts", maxAttempts, "delay", delay, "err", err)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryingMatcher wraps a Matcher and retries failed calls with exponential
// backoff. The Joiner never retries on its own; callers opt in by wrapping
// their matcher.
type RetryingMatcher struct {
	next        Matcher
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryingMatcher wraps next. maxAttempts must be greater than zero.
func NewRetryingMatcher(next Matcher, maxAttempts int, baseDelay time.Duration) (*RetryingMatcher, error) {
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	return &RetryingMatcher{
		next:        next,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}, nil
}

// Match calls the wrapped matcher until it succeeds, attempts run out or
// ctx is done.
func (r *RetryingMatcher) Match(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error) {
	var result []core.Match
	err := RetryWithBackoff(ctx, func() error {
		var err error
		result, err = r.next.Match(ctx, leftBlock, rightBlock)
		return err
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return result, nil
}
