package docsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
	assert.Empty(t, NormalizeVector(nil))

	in := []float32{1, 1}
	NormalizeVector(in)
	assert.Equal(t, []float32{1, 1}, in, "input must not be modified")
}
