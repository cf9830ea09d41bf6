// Package similarity scores pairs of materials.
//
// Three independent metrics are combined into one hybrid score that drives
// every graph and query decision:
//
//   - Weighted Euclidean: importance-weighted L2 distance over the
//     normalized vectors, mapped to (0,1] as 1/(1+d).
//   - Cosine: cosine of the normalized vectors. The dominant signal.
//   - Structural: exponential decay on the raw band gap gap and the raw
//     density log-ratio. Works on pre-normalization values because both
//     scales are physically meaningful (eV and g/cm³).
//
// Hybrid = 0.25·euclidean + 0.5·cosine + 0.25·structural. Every constituent
// is symmetric in its arguments, so Hybrid(i,j) == Hybrid(j,i) for all pairs.
package similarity

import (
	"math"

	"github.com/orneryd/cathograph/pkg/feature"
	"github.com/orneryd/cathograph/pkg/math/vector"
)

// Metric blend weights.
const (
	euclideanWeight  = 0.25
	cosineWeight     = 0.50
	structuralWeight = 0.25
)

// Decay scales for the structural metric.
const (
	bandGapScale = 0.5 // eV; half-life ~0.35 eV of band-gap separation
	densityScale = 0.2 // applied to |ln(ρi/ρj)|
)

// neutralDensityTerm is used when a density is non-positive and the
// log-ratio is undefined.
const neutralDensityTerm = 0.5

// Engine computes pairwise similarity scores over a normalized feature
// space. Materials are addressed by their space index. The engine is
// read-only over the space and safe for concurrent use.
type Engine struct {
	space   *feature.Space
	weights []float64
}

// NewEngine creates an engine over a feature space.
func NewEngine(space *feature.Space) *Engine {
	return &Engine{
		space:   space,
		weights: feature.WeightVector(),
	}
}

// Euclidean returns the importance-weighted Euclidean similarity of two
// materials: 1 / (1 + weighted L2 distance). Range (0, 1], 1 = identical.
func (e *Engine) Euclidean(i, j int) float64 {
	d := vector.WeightedEuclideanDistance(e.space.Vectors[i], e.space.Vectors[j], e.weights)
	return 1.0 / (1.0 + d)
}

// Cosine returns the cosine similarity of the two normalized vectors.
func (e *Engine) Cosine(i, j int) float64 {
	return vector.CosineSimilarity(e.space.Vectors[i], e.space.Vectors[j])
}

// Structural returns the average of two exponential-decay terms computed on
// raw feature values: band gap separation and density log-ratio. A material
// with non-positive density contributes the neutral 0.5 density term.
func (e *Engine) Structural(i, j int) float64 {
	mi, mj := e.space.Materials[i], e.space.Materials[j]

	bgTerm := vector.ExpDecay(mi.BandGap-mj.BandGap, bandGapScale)

	densityTerm := neutralDensityTerm
	if mi.Density > 0 && mj.Density > 0 {
		densityTerm = vector.ExpDecay(math.Log(mi.Density/mj.Density), densityScale)
	}

	return (bgTerm + densityTerm) / 2.0
}

// Hybrid returns the blended similarity used for all graph and query
// decisions. Symmetric: Hybrid(i, j) == Hybrid(j, i).
func (e *Engine) Hybrid(i, j int) float64 {
	return euclideanWeight*e.Euclidean(i, j) +
		cosineWeight*e.Cosine(i, j) +
		structuralWeight*e.Structural(i, j)
}
