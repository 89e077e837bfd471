// Package progress prints a single self-overwriting status line for batch
// work such as chunked joins and document embedding.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker counts completed items against a fixed total. A line of the form
//
//	Label: done/total (pct%) - rate unit/s
//
// is written each time at least the report interval of items completes.
// Calls before Start or after Finish/Abort do nothing. Safe for concurrent use.
type Tracker struct {
	out      io.Writer
	label    string
	unit     string
	total    int
	interval int

	mu      sync.Mutex
	running bool
	began   time.Time
	done    int
	shown   int
}

type Option func(*Tracker)

// WithLabel replaces the default "Progress" prefix.
func WithLabel(label string) Option {
	return func(t *Tracker) { t.label = label }
}

// WithUnit replaces the default "items" rate unit.
func WithUnit(unit string) Option {
	return func(t *Tracker) { t.unit = unit }
}

// NewTracker reports to out every interval items, at least every item.
func NewTracker(out io.Writer, total, interval int, opts ...Option) *Tracker {
	t := &Tracker{
		out:      out,
		label:    "Progress",
		unit:     "items",
		total:    total,
		interval: max(interval, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running, t.began, t.done, t.shown = true, time.Now(), 0, 0
}

// Update sets the completed count, capped at the total.
func (t *Tracker) Update(done int) {
	t.advance(func() int { return done })
}

// Increment adds delta to the completed count, capped at the total.
func (t *Tracker) Increment(delta int) {
	t.advance(func() int { return t.done + delta })
}

func (t *Tracker) advance(next func() int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.done = min(next(), t.total)
	if t.done-t.shown >= t.interval {
		t.print("")
		t.shown = t.done
	}
}

// Finish reports the total as completed and ends the line.
func (t *Tracker) Finish() {
	t.stop(true, "\n")
}

// Abort reports what completed so far and ends the line.
func (t *Tracker) Abort() {
	t.stop(false, " (aborted)\n")
}

func (t *Tracker) stop(complete bool, suffix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	if complete {
		t.done = t.total
	}
	t.print(suffix)
	t.running = false
}

func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Elapsed is the time since Start, or zero if never started.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.began.IsZero() {
		return 0
	}
	return time.Since(t.began)
}

// print must be called with mu held.
func (t *Tracker) print(suffix string) {
	var pct, rate float64
	if t.total > 0 {
		pct = 100 * float64(t.done) / float64(t.total)
	}
	if secs := time.Since(t.began).Seconds(); secs > 0 {
		rate = float64(t.done) / secs
	}
	fmt.Fprintf(t.out, "\r%s: %d/%d (%.1f%%) - %.1f %s/s%s",
		t.label, t.done, t.total, pct, rate, t.unit, suffix)
}
