package merge

import (
	"errors"
	"fmt"

	"github.com/poiesic/llmerge/core"
)

var (
	// ErrMatcherRequired is returned when a Joiner is created without a matcher.
	ErrMatcherRequired = errors.New("matcher required")

	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")
)

// Side names the dataset an index refers to.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// MatcherInvocationError reports a matcher call that failed or returned a
// structure that could not be interpreted.
// errors.Is(err, core.ErrMatcherInvocation) holds and the cause stays reachable.
type MatcherInvocationError struct {
	Chunk int
	Err   error
}

func (e *MatcherInvocationError) Error() string {
	return fmt.Sprintf("%s: chunk %d: %v", core.ErrMatcherInvocation, e.Chunk, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *MatcherInvocationError) Unwrap() []error {
	return []error{core.ErrMatcherInvocation, e.Err}
}

// IndexIntegrityError reports a match entry referencing a row outside the
// expected range, or a left row the matcher omitted when omissions are
// treated as errors. The valid range is [Lo, Hi).
type IndexIntegrityError struct {
	Chunk   int
	Side    Side
	Index   int
	Lo, Hi  int
	Omitted bool
}

func (e *IndexIntegrityError) Error() string {
	if e.Omitted {
		return fmt.Sprintf("%s: chunk %d: left row %d missing from matcher result",
			core.ErrIndexIntegrity, e.Chunk, e.Index)
	}
	return fmt.Sprintf("%s: chunk %d: %s index %d outside [%d, %d)",
		core.ErrIndexIntegrity, e.Chunk, e.Side, e.Index, e.Lo, e.Hi)
}

// Is matches core.ErrIndexIntegrity.
func (e *IndexIntegrityError) Is(target error) bool {
	return target == core.ErrIndexIntegrity
}
