package docsearch

import "math"

// NormalizeVector returns v scaled to unit length, so that scoring by dot
// product is cosine similarity. The input is not modified; a zero vector
// comes back as zeros.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sq)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
