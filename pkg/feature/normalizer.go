// Package feature turns a validated material working set into normalized
// feature vectors.
//
// Every material contributes a fixed-order 4-vector {density, band_gap,
// formation_energy_per_atom, volume}. Each dimension is min-max scaled
// against the whole corpus, so the corpus minimum maps to exactly 0.0 and
// the maximum to exactly 1.0. A dimension with zero variance maps to 0.0
// for every material (the degenerate-range rule; dividing by a zero range
// is never attempted).
//
// The normalizer also fixes the formula↔index bijection every downstream
// stage uses. Duplicate formulas would break the bijection, so later
// occurrences are excluded from the working set.
//
// Example:
//
//	space, err := feature.Normalize(set.Materials)
//	if err != nil {
//		return err // corpus was empty
//	}
//	i, _ := space.Index("LiCoO2")
//	vec := space.Vectors[i] // [0,1]^4
package feature

import (
	"gonum.org/v1/gonum/floats"

	"github.com/orneryd/cathograph/pkg/material"
)

// Dim is the number of features per material.
const Dim = 4

// Names lists the feature dimensions in vector order.
var Names = [Dim]string{"density", "band_gap", "formation_energy_per_atom", "volume"}

// Weights is the fixed feature-importance table used by the weighted
// Euclidean metric. Density dominates; band gap matters least there because
// the structural metric already scores it directly.
var Weights = map[string]float64{
	"density":                   0.4,
	"volume":                    0.3,
	"formation_energy_per_atom": 0.2,
	"band_gap":                  0.1,
}

// WeightVector returns the importance weights aligned to vector order.
func WeightVector() []float64 {
	w := make([]float64, Dim)
	for i, name := range Names {
		w[i] = Weights[name]
	}
	return w
}

// rawVector extracts the features of one material in vector order.
func rawVector(m material.Material) []float64 {
	return []float64{m.Density, m.BandGap, m.FormationEnergyPerAtom, m.Volume}
}

// Space is the normalized feature space of one corpus snapshot: the working
// set, one normalized vector per material, and the formula↔index bijection.
// Immutable once built.
type Space struct {
	Materials []material.Material
	Vectors   [][]float64

	indexOf  map[string]int
	formulas []string
}

// Normalize min-max scales the corpus into a feature space.
// Returns material.ErrEmptyCorpus when no materials survive.
func Normalize(mats []material.Material) (*Space, error) {
	kept := make([]material.Material, 0, len(mats))
	indexOf := make(map[string]int, len(mats))
	for _, m := range mats {
		if _, dup := indexOf[m.Formula]; dup {
			continue
		}
		indexOf[m.Formula] = len(kept)
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil, material.ErrEmptyCorpus
	}

	raw := make([][]float64, len(kept))
	for i, m := range kept {
		raw[i] = rawVector(m)
	}

	// Per-dimension corpus min/max.
	column := make([]float64, len(kept))
	mins := make([]float64, Dim)
	ranges := make([]float64, Dim)
	for d := 0; d < Dim; d++ {
		for i := range raw {
			column[i] = raw[i][d]
		}
		mins[d] = floats.Min(column)
		ranges[d] = floats.Max(column) - mins[d]
	}

	vectors := make([][]float64, len(kept))
	for i := range raw {
		vec := make([]float64, Dim)
		for d := 0; d < Dim; d++ {
			if ranges[d] == 0 {
				vec[d] = 0 // degenerate range
				continue
			}
			vec[d] = (raw[i][d] - mins[d]) / ranges[d]
		}
		vectors[i] = vec
	}

	formulas := make([]string, len(kept))
	for i, m := range kept {
		formulas[i] = m.Formula
	}

	return &Space{
		Materials: kept,
		Vectors:   vectors,
		indexOf:   indexOf,
		formulas:  formulas,
	}, nil
}

// Len returns the number of materials in the space.
func (s *Space) Len() int { return len(s.Materials) }

// Index returns the vector index for a formula.
func (s *Space) Index(formula string) (int, bool) {
	i, ok := s.indexOf[formula]
	return i, ok
}

// Formula returns the formula at a vector index.
func (s *Space) Formula(i int) string { return s.formulas[i] }
