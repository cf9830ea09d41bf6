// Package vector provides the vector math used by cathograph's similarity
// scoring.
//
// This package consolidates all distance and similarity calculations used on
// material feature vectors. Use these functions instead of implementing your
// own to ensure consistency across the similarity engine and its tests.
//
// Main Functions:
//   - CosineSimilarity: cosine of two float64 feature vectors
//   - WeightedEuclideanDistance: per-dimension weighted L2 distance
//   - ExpDecay: exponential-decay similarity for raw scalar features
//
// Feature vectors are small (four dimensions today), so everything operates
// on float64 throughout. Dot products go through the vek SIMD kernels, which
// fall back to scalar loops on short inputs.
package vector

import (
	"math"

	"github.com/viterin/vek"
)

// CosineSimilarity calculates cosine similarity between two float64 vectors.
// Returns a value in [-1, 1] where 1 = identical direction, 0 = orthogonal.
//
// Zero-vector handling differs from the usual "return 0" convention: two
// all-zero vectors are the same point and score 1.0, while a zero vector
// against a non-zero one scores 0.0. Min-max normalization maps the corpus
// minimum of every feature to zero, so two materials sitting at the corpus
// minimum on all features are feature-identical and must compare as such.
//
// Example:
//
//	a := []float64{1.0, 2.0, 3.0}
//	b := []float64{4.0, 5.0, 6.0}
//	sim := CosineSimilarity(a, b)  // Returns 0.9746318461970762
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA := vek.Dot(a, a)
	normB := vek.Dot(b, b)

	if normA == 0 && normB == 0 {
		return 1
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return vek.Dot(a, b) / (math.Sqrt(normA) * math.Sqrt(normB))
}

// WeightedEuclideanDistance calculates the L2 distance between two vectors
// with a per-dimension weight applied to each squared difference:
//
//	d = sqrt(Σ w[k] * (a[k] - b[k])²)
//
// Returns 0 for mismatched or empty inputs. weights must have the same
// length as the vectors.
//
// Example:
//
//	a := []float64{0.0, 0.0}
//	b := []float64{1.0, 1.0}
//	w := []float64{0.5, 0.5}
//	d := WeightedEuclideanDistance(a, b, w)  // Returns 1.0
func WeightedEuclideanDistance(a, b, weights []float64) float64 {
	if len(a) != len(b) || len(a) != len(weights) || len(a) == 0 {
		return 0
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += weights[i] * diff * diff
	}

	return math.Sqrt(sum)
}

// ExpDecay maps an absolute difference onto (0, 1] as exp(-|delta| / scale).
// Identical values score 1.0 and the score halves roughly every
// scale*ln(2) units of separation.
func ExpDecay(delta, scale float64) float64 {
	return math.Exp(-math.Abs(delta) / scale)
}

// Dot calculates the dot product of two float64 vectors.
// Returns 0 for mismatched lengths.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return vek.Dot(a, b)
}
