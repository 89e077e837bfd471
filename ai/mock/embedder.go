package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// Dimension is the vector length produced by default.
const Dimension = 384

// MockEmbedder returns hash-derived vectors unless a func is injected.
// Every EmbedText or EmbedTexts call is counted.
type MockEmbedder struct {
	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	calls int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

func (m *MockEmbedder) record() (func(context.Context, string) ([]float32, error), func(context.Context, []string) ([][]float32, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.EmbedTextFunc, m.EmbedTextsFunc
}

func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if one, _ := m.record(); one != nil {
		return one(ctx, text)
	}
	return DeterministicVector(text, Dimension), nil
}

func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if _, many := m.record(); many != nil {
		return many(ctx, texts)
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, DeterministicVector(text, Dimension))
	}
	return out, nil
}

func (m *MockEmbedder) Model() string {
	return "mock-embedding"
}

func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Reset forgets recorded calls and injected funcs.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls, m.EmbedTextFunc, m.EmbedTextsFunc = 0, nil, nil
}

// DeterministicVector derives a unit vector of length dim from text. Equal
// texts always give equal vectors.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	v := make([]float32, dim)
	var sq float64
	for i := range v {
		// xorshift64
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		x := float64(state%2001)/1000 - 1
		v[i] = float32(x)
		sq += x * x
	}
	if sq == 0 {
		return v
	}
	scale := 1 / math.Sqrt(sq)
	for i := range v {
		v[i] = float32(float64(v[i]) * scale)
	}
	return v
}
