package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
}

func TestTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Update(75)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100", "finish should set to total")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestTracker_Abort(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 4, 10, WithLabel("Chunks"), WithUnit("chunks"))

	tracker.Start()
	tracker.Increment(1)
	tracker.Abort()

	output := buf.String()
	assert.Contains(t, output, "Chunks: 1/4")
	assert.Contains(t, output, "aborted")

	// Further calls are ignored once stopped.
	buf.Reset()
	tracker.Finish()
	assert.Empty(t, buf.String())
}

func TestTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 0, 10)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0", "should handle zero total")
}

func TestTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Increment(150)

	assert.Contains(t, buf.String(), "100/100", "should not exceed total")
	assert.Equal(t, 100, tracker.Current())
}

func TestTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 100, 10)

	tracker.Increment(10)
	tracker.Finish()

	assert.Equal(t, "", buf.String(), "should have no output when not started")
}

func TestTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 1000, 100)

	tracker.Start()

	buf.Reset()
	tracker.Update(50)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	buf.Reset()
	tracker.Update(100)
	assert.NotEmpty(t, buf.String(), "should print at interval")

	buf.Reset()
	tracker.Update(250)
	assert.NotEmpty(t, buf.String(), "should print beyond interval")
}

func TestTracker_Labels(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 2, 1, WithLabel("Embedding"), WithUnit("docs"))

	tracker.Start()
	tracker.Increment(1)

	output := buf.String()
	assert.Contains(t, output, "Embedding: 1/2")
	assert.Contains(t, output, "docs/s")
}

func TestTracker_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 50, 1000)
	tracker.Start()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tracker.Current())
}
