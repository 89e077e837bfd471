package merge

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/llmerge/core"
)

// DefaultChunkSize is the number of left rows sent per matcher call.
const DefaultChunkSize = 20

// Unmatched selects what happens to left rows a matcher leaves out of its
// result for a chunk.
type Unmatched int

const (
	// UnmatchedDrop leaves omitted rows out of the output.
	UnmatchedDrop Unmatched = iota
	// UnmatchedKeep appends omitted rows after the chunk's matcher entries,
	// in row order, with missing right fields.
	UnmatchedKeep
	// UnmatchedError fails the join with an IndexIntegrityError.
	UnmatchedError
)

func (u Unmatched) String() string {
	switch u {
	case UnmatchedDrop:
		return "drop"
	case UnmatchedKeep:
		return "keep"
	case UnmatchedError:
		return "error"
	default:
		return fmt.Sprintf("Unmatched(%d)", int(u))
	}
}

// ParseUnmatched parses "drop", "keep" or "error". The empty string is drop.
func ParseUnmatched(s string) (Unmatched, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return UnmatchedDrop, nil
	case "keep":
		return UnmatchedKeep, nil
	case "error":
		return UnmatchedError, nil
	default:
		return 0, fmt.Errorf("unknown unmatched policy %q", s)
	}
}

// Option configures a Joiner.
type Option func(*Joiner) error

// WithChunkSize sets the number of left rows per matcher call.
// Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(j *Joiner) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
		}
		j.chunkSize = size
		return nil
	}
}

// WithConcurrency sets how many chunks may be in flight at once.
// Default is 1, which processes chunks strictly in order. Larger values
// dispatch chunks on a worker pool; the matcher must then be safe for
// concurrent use.
func WithConcurrency(n int) Option {
	return func(j *Joiner) error {
		if n < 1 {
			n = 1
		}

		if j.pool != nil {
			j.pool.Release()
			j.pool = nil
		}
		j.concurrency = n
		if n == 1 {
			return nil
		}

		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		j.pool = pool
		return nil
	}
}

// WithSchema sets the match record schema.
// Default is core.DefaultMatchSchema().
func WithSchema(schema core.MatchSchema) Option {
	return func(j *Joiner) error {
		if err := core.ValidateMatchSchema(schema); err != nil {
			return err
		}
		j.schema = schema
		return nil
	}
}

// WithUnmatched sets the policy for left rows missing from a chunk's result.
// Default is UnmatchedDrop.
func WithUnmatched(policy Unmatched) Option {
	return func(j *Joiner) error {
		if policy < UnmatchedDrop || policy > UnmatchedError {
			return fmt.Errorf("unknown unmatched policy %d", int(policy))
		}
		j.unmatched = policy
		return nil
	}
}

// WithLabels sets the source labels used in the output schema.
// Empty labels keep their defaults.
func WithLabels(labels Labels) Option {
	return func(j *Joiner) error {
		if labels.Left != "" {
			j.labels.Left = labels.Left
		}
		if labels.Right != "" {
			j.labels.Right = labels.Right
		}
		if labels.Match != "" {
			j.labels.Match = labels.Match
		}
		if j.labels.Left == j.labels.Right {
			return fmt.Errorf("%w: left and right labels are both %q",
				core.ErrSchemaConfiguration, j.labels.Left)
		}
		return nil
	}
}

// WithCallTimeout bounds each matcher call. Zero means no timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(j *Joiner) error {
		if d < 0 {
			d = 0
		}
		j.callTimeout = d
		return nil
	}
}

// WithProgress reports completed chunks to w.
func WithProgress(w io.Writer) Option {
	return func(j *Joiner) error {
		j.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(j *Joiner) error {
		if logger == nil {
			logger = slog.Default()
		}
		j.logger = logger.With("component", "joiner")
		return nil
	}
}
