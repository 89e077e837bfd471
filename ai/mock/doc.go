// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Matcher, ai.Embedder
// and ai.AIProvider for use in unit tests. The mocks run without external
// AI services and behave deterministically.
//
// # Usage in Tests
//
//	matcher := mock.NewMockMatcher().
//	    WithMatchFunc(func(ctx context.Context, left, right string) ([]core.Match, error) {
//	        return []core.Match{{LeftIndex: 0, RightIndex: core.IntPtr(2)}}, nil
//	    })
//
//	calls := matcher.Calls() // recorded blocks, in call order
//
// # Default Behavior
//
//   - MockMatcher: Matches every left index to the same right index
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockProvider: Aggregates mock embedder and matcher
package mock
