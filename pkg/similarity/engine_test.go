package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cathograph/pkg/feature"
	"github.com/orneryd/cathograph/pkg/material"
)

func mat(formula string, density, bandGap, fe, volume float64) material.Material {
	return material.Material{
		MaterialID:             "mp-" + formula,
		Formula:                formula,
		Density:                density,
		BandGap:                bandGap,
		FormationEnergyPerAtom: fe,
		Volume:                 volume,
	}
}

func testEngine(t *testing.T, mats ...material.Material) *Engine {
	t.Helper()
	space, err := feature.Normalize(mats)
	require.NoError(t, err)
	return NewEngine(space)
}

func TestHybridIdenticalMaterials(t *testing.T) {
	// A and B share every feature; C is the corpus maximum everywhere.
	// Feature-identical materials must score the maximum hybrid of 1.0,
	// and both must be strictly closer to each other than to C.
	engine := testEngine(t,
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("B2", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	)

	ab := engine.Hybrid(0, 1)
	ac := engine.Hybrid(0, 2)
	bc := engine.Hybrid(1, 2)

	assert.InDelta(t, 1.0, ab, 1e-12)
	assert.Less(t, ac, ab)
	assert.Less(t, bc, ab)
}

func TestHybridSymmetry(t *testing.T) {
	engine := testEngine(t,
		mat("LiCoO2", 5.06, 2.2, -2.1, 96.5),
		mat("LiFePO4", 3.6, 3.7, -2.7, 145.9),
		mat("LiMn2O4", 4.2, 1.1, -1.6, 139.0),
		mat("LiNiO2", 4.8, 0.9, -1.8, 97.2),
	)

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				continue
			}
			assert.Equal(t, engine.Hybrid(i, j), engine.Hybrid(j, i),
				"hybrid(%d,%d) must equal hybrid(%d,%d)", i, j, j, i)
		}
	}
}

func TestEuclideanRange(t *testing.T) {
	engine := testEngine(t,
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	)

	// Extremes of the normalized space: d = sqrt(Σ weights) = 1.
	assert.InDelta(t, 0.5, engine.Euclidean(0, 1), 1e-12)
	assert.InDelta(t, 1.0, engine.Euclidean(0, 0), 1e-12)
}

func TestStructuralTerms(t *testing.T) {
	engine := testEngine(t,
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("B2", 3.0, 2.0, -1.0, 100),
		mat("Z", -1.0, 1.0, -1.0, 100),
	)

	// Same density, band gaps 1 eV apart: (exp(-2) + 1) / 2.
	expected := (math.Exp(-1.0/0.5) + 1.0) / 2.0
	assert.InDelta(t, expected, engine.Structural(0, 1), 1e-12)

	// Non-positive density collapses the density term to the neutral 0.5.
	expected = (1.0 + 0.5) / 2.0
	assert.InDelta(t, expected, engine.Structural(0, 2), 1e-12)
}

func TestStructuralDensityLogRatio(t *testing.T) {
	engine := testEngine(t,
		mat("A", 2.0, 1.0, -1.0, 100),
		mat("B2", 4.0, 1.0, -1.0, 100),
	)

	expected := (1.0 + math.Exp(-math.Abs(math.Log(0.5))/0.2)) / 2.0
	assert.InDelta(t, expected, engine.Structural(0, 1), 1e-12)
}

func TestHybridBlendWeights(t *testing.T) {
	engine := testEngine(t,
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	)

	expected := 0.25*engine.Euclidean(0, 1) +
		0.5*engine.Cosine(0, 1) +
		0.25*engine.Structural(0, 1)
	assert.Equal(t, expected, engine.Hybrid(0, 1))
}
