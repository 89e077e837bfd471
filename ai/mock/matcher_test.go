package mock

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockMatcher_Identity(t *testing.T) {
	m := NewMockMatcher()

	matches, err := m.Match(context.Background(), "3: a\n4: b\n9: c", "3: x\n4: y")
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, 3, matches[0].LeftIndex)
	assert.Equal(t, 3, *matches[0].RightIndex)
	assert.Equal(t, 4, *matches[1].RightIndex)
	assert.Nil(t, matches[2].RightIndex)
	assert.Equal(t, 1, m.CallCount())
}

func TestMockMatcher_ConcurrentCalls(t *testing.T) {
	m := NewMockMatcher()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Match(context.Background(), "0: a", "0: b")
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, m.CallCount())
	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestBlockIndices(t *testing.T) {
	assert.Equal(t, []int{0, 12, 7}, BlockIndices("0: a\n12: b: c\n7: "))
	assert.Empty(t, BlockIndices(""))
	assert.Equal(t, []int{1}, BlockIndices("junk\n1: ok"))
}

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("apple", Dimension)
	b := DeterministicVector("apple", Dimension)
	c := DeterministicVector("banana", Dimension)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}
