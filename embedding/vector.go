package embedding

import "math"

// NormalizeVector returns a copy of v scaled to unit length. Zero and empty
// vectors come back as zero vectors of the same length.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// Magnitude is the Euclidean norm of v, accumulated in float64.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
