package mock

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/poiesic/llmerge/core"
)

// MatchCall records the arguments of one Match invocation.
type MatchCall struct {
	LeftBlock  string
	RightBlock string
}

// MockMatcher is a test double for ai.Matcher.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockMatcher struct {
	// MatchFunc is called by Match if set.
	// If nil, uses the default identity behavior.
	MatchFunc func(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error)

	mu    sync.Mutex
	calls []MatchCall
}

// NewMockMatcher creates a mock matcher with default identity behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockMatcher() *MockMatcher {
	return &MockMatcher{}
}

// WithMatchFunc sets MatchFunc and returns the matcher.
func (m *MockMatcher) WithMatchFunc(fn func(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error)) *MockMatcher {
	m.MatchFunc = fn
	return m
}

// Match records the call and delegates to MatchFunc.
// Default: every left row is matched to the right row with the same index,
// or reported unmatched when the right block has no such row.
func (m *MockMatcher) Match(ctx context.Context, leftBlock, rightBlock string) ([]core.Match, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MatchCall{LeftBlock: leftBlock, RightBlock: rightBlock})
	fn := m.MatchFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, leftBlock, rightBlock)
	}
	return IdentityMatches(leftBlock, rightBlock), nil
}

// CallCount returns the number of Match calls.
func (m *MockMatcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls in invocation order.
func (m *MockMatcher) Calls() []MatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MatchCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and injected behavior.
func (m *MockMatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.MatchFunc = nil
}

// IdentityMatches pairs each left index with the same right index.
func IdentityMatches(leftBlock, rightBlock string) []core.Match {
	right := make(map[int]struct{})
	for _, idx := range BlockIndices(rightBlock) {
		right[idx] = struct{}{}
	}

	left := BlockIndices(leftBlock)
	matches := make([]core.Match, 0, len(left))
	for _, idx := range left {
		m := core.Match{LeftIndex: idx}
		if _, ok := right[idx]; ok {
			m.RightIndex = core.IntPtr(idx)
		}
		matches = append(matches, m)
	}
	return matches
}

// BlockIndices parses the leading "<index>:" of every line of a block.
// Lines without a numeric prefix are skipped.
func BlockIndices(block string) []int {
	if block == "" {
		return nil
	}
	lines := strings.Split(block, "\n")
	indices := make([]int, 0, len(lines))
	for _, line := range lines {
		prefix, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(prefix))
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	return indices
}
