package graph

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/cathograph/pkg/feature"
	"github.com/orneryd/cathograph/pkg/material"
	"github.com/orneryd/cathograph/pkg/similarity"
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

// sampleSet is a spread of real cathode chemistries with enough variety to
// produce both dense and sparse neighborhoods.
func sampleSet() []material.Material {
	return []material.Material{
		mat("LiCoO2", 5.06, 2.2, -2.1, 96.5),
		mat("LiNiO2", 4.78, 1.8, -1.9, 97.2),
		mat("LiMnO2", 4.29, 1.5, -1.7, 120.3),
		mat("LiFePO4", 3.60, 3.7, -2.7, 145.9),
		mat("LiMnPO4", 3.44, 3.9, -2.6, 151.2),
		mat("LiMn2O4", 4.20, 1.1, -1.6, 139.0),
		mat("LiVO2", 4.45, 1.9, -1.8, 101.4),
		mat("LiTiO2", 3.98, 2.6, -2.3, 104.8),
	}
}

func buildResult(t *testing.T, mats []material.Material, opts BuilderOptions) (*Result, *feature.Space) {
	t.Helper()
	space, err := feature.Normalize(mats)
	require.NoError(t, err)
	builder := NewBuilder(space, opts, zerolog.Nop())
	result, err := builder.Build(context.Background())
	require.NoError(t, err)
	return result, space
}

func TestBuilderOptionsDefaults(t *testing.T) {
	// The zero value means "use defaults"; explicit zero is reserved.
	opts := BuilderOptions{}.withDefaults()
	assert.Equal(t, DefaultThreshold, opts.Threshold)
	assert.Equal(t, DefaultMinAvgDegree, opts.MinAvgDegree)
	assert.Equal(t, DefaultTargetQuantile, opts.TargetQuantile)
	assert.Positive(t, opts.Workers)

	// Explicitly set values pass through untouched.
	opts = BuilderOptions{Threshold: 0.3, MinAvgDegree: -1, TargetQuantile: 0.5, Workers: 2}.withDefaults()
	assert.Equal(t, 0.3, opts.Threshold)
	assert.Equal(t, -1.0, opts.MinAvgDegree)
	assert.Equal(t, 0.5, opts.TargetQuantile)
	assert.Equal(t, 2, opts.Workers)
}

func TestBuildNoSelfLoops(t *testing.T) {
	result, _ := buildResult(t, sampleSet(), BuilderOptions{})

	for _, formula := range result.Graph.Formulas() {
		neighbors, ok := result.Graph.Neighbors(formula)
		require.True(t, ok)
		for _, n := range neighbors {
			assert.NotEqual(t, formula, n.Formula, "self-loop in row %s", formula)
		}
	}
}

func TestBuildRowsSortedDescending(t *testing.T) {
	result, _ := buildResult(t, sampleSet(), BuilderOptions{Threshold: 0.1, MinAvgDegree: -1})

	for _, formula := range result.Graph.Formulas() {
		neighbors, _ := result.Graph.Neighbors(formula)
		for i := 1; i < len(neighbors); i++ {
			prev, cur := neighbors[i-1], neighbors[i]
			if prev.Similarity == cur.Similarity {
				assert.Less(t, prev.Formula, cur.Formula,
					"equal similarities in row %s must order by ascending formula", formula)
			} else {
				assert.Greater(t, prev.Similarity, cur.Similarity,
					"row %s not sorted descending", formula)
			}
		}
	}
}

func TestBuildTieBreakAscendingFormula(t *testing.T) {
	// LiZzz and LiAaa are feature-identical, so any third material sees
	// them at exactly the same similarity.
	result, _ := buildResult(t, []material.Material{
		mat("LiCoO2", 5.06, 2.2, -2.1, 96.5),
		mat("LiZzz", 4.00, 1.5, -1.5, 120.0),
		mat("LiAaa", 4.00, 1.5, -1.5, 120.0),
	}, BuilderOptions{Threshold: 0.05, MinAvgDegree: -1})

	neighbors, ok := result.Graph.Neighbors("LiCoO2")
	require.True(t, ok)
	require.Len(t, neighbors, 2)
	assert.Equal(t, neighbors[0].Similarity, neighbors[1].Similarity)
	assert.Equal(t, "LiAaa", neighbors[0].Formula)
	assert.Equal(t, "LiZzz", neighbors[1].Formula)
}

func TestBuildThresholdFiltersEdges(t *testing.T) {
	mats := sampleSet()
	result, space := buildResult(t, mats, BuilderOptions{Threshold: 0.9, MinAvgDegree: -1})

	engine := similarity.NewEngine(space)
	for _, formula := range result.Graph.Formulas() {
		i, _ := space.Index(formula)
		neighbors, _ := result.Graph.Neighbors(formula)
		admitted := make(map[string]bool, len(neighbors))
		for _, n := range neighbors {
			admitted[n.Formula] = true
		}
		for j := 0; j < space.Len(); j++ {
			if i == j {
				continue
			}
			got := admitted[space.Formula(j)]
			want := engine.Hybrid(i, j) >= 0.9
			assert.Equal(t, want, got, "edge %s -> %s", formula, space.Formula(j))
		}
	}
}

func TestBuildAdaptiveThreshold(t *testing.T) {
	// Identical A/B plus a distant C: at 0.85 only the A-B edge exists,
	// average degree 2/3, so the one-shot recalibration must fire.
	mats := []material.Material{
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("B", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	}
	result, space := buildResult(t, mats, BuilderOptions{})

	require.True(t, result.Adjusted)

	// Recompute the expected threshold: the value at index int(0.8*len)
	// of the sorted list of all ordered-pair similarities.
	engine := similarity.NewEngine(space)
	var sims []float64
	for i := 0; i < space.Len(); i++ {
		for j := 0; j < space.Len(); j++ {
			if i != j {
				sims = append(sims, engine.Hybrid(i, j))
			}
		}
	}
	sort.Float64s(sims)
	expected := sims[int(float64(len(sims))*0.8)]
	assert.Equal(t, expected, result.Threshold)

	// The final edge set is exactly the pairs at or above the new threshold.
	for _, formula := range result.Graph.Formulas() {
		i, _ := space.Index(formula)
		neighbors, _ := result.Graph.Neighbors(formula)
		var want int
		for j := 0; j < space.Len(); j++ {
			if i != j && engine.Hybrid(i, j) >= result.Threshold {
				want++
			}
		}
		assert.Len(t, neighbors, want, "row %s", formula)
	}
}

func TestBuildAdaptiveRunsOnce(t *testing.T) {
	// Even when the recalibrated graph is still sparse, no second round
	// occurs: the threshold must equal the 80th-percentile value, not
	// anything iterated beyond it.
	mats := []material.Material{
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("B", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	}
	result, _ := buildResult(t, mats, BuilderOptions{})

	require.True(t, result.Adjusted)
	assert.Less(t, result.Stats.AvgDegree, DefaultMinAvgDegree)
}

func TestBuildWorkedExample(t *testing.T) {
	result, _ := buildResult(t, []material.Material{
		mat("A", 3.0, 1.0, -1.0, 100),
		mat("B", 3.0, 1.0, -1.0, 100),
		mat("C", 5.0, 4.0, 0.0, 200),
	}, BuilderOptions{})

	neighbors, ok := result.Graph.Neighbors("A")
	require.True(t, ok)
	require.NotEmpty(t, neighbors)
	assert.Equal(t, "B", neighbors[0].Formula)
	assert.Equal(t, 1.0, neighbors[0].Similarity)
}

func TestBuildSingletonCorpus(t *testing.T) {
	result, _ := buildResult(t, []material.Material{
		mat("LiCoO2", 5.06, 2.2, -2.1, 96.5),
	}, BuilderOptions{})

	require.Equal(t, 1, result.Graph.Len())
	neighbors, ok := result.Graph.Neighbors("LiCoO2")
	require.True(t, ok)
	assert.Empty(t, neighbors)
	assert.False(t, result.Adjusted)
}

func TestBuildSimilaritiesRounded(t *testing.T) {
	result, _ := buildResult(t, sampleSet(), BuilderOptions{Threshold: 0.1, MinAvgDegree: -1})

	for _, formula := range result.Graph.Formulas() {
		neighbors, _ := result.Graph.Neighbors(formula)
		for _, n := range neighbors {
			scaled := n.Similarity * 10000
			assert.Equal(t, math.Round(scaled), scaled,
				"similarity %v in row %s not rounded to 4 decimals", n.Similarity, formula)
		}
	}
}

func TestBuildDeterministicAcrossWorkers(t *testing.T) {
	mats := sampleSet()

	sequential, _ := buildResult(t, mats, BuilderOptions{Workers: 1})
	parallel, _ := buildResult(t, mats, BuilderOptions{Workers: 4})

	seqJSON, err := sequential.Graph.MarshalJSON()
	require.NoError(t, err)
	parJSON, err := parallel.Graph.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(seqJSON), string(parJSON))
}

func TestBuildCancelledContext(t *testing.T) {
	space, err := feature.Normalize(sampleSet())
	require.NoError(t, err)
	builder := NewBuilder(space, BuilderOptions{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = builder.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildKeyOrderFollowsCorpus(t *testing.T) {
	mats := sampleSet()
	result, space := buildResult(t, mats, BuilderOptions{})

	formulas := result.Graph.Formulas()
	require.Len(t, formulas, space.Len())
	for i, formula := range formulas {
		assert.Equal(t, space.Formula(i), formula)
	}
}

func TestStats(t *testing.T) {
	result, _ := buildResult(t, sampleSet(), BuilderOptions{Threshold: 0.1, MinAvgDegree: -1})

	s := result.Stats
	assert.Equal(t, 8, s.Nodes)
	assert.Equal(t, 8*7, s.Edges, "threshold 0.1 should admit every pair")
	assert.InDelta(t, 7.0, s.AvgDegree, 1e-12)
	assert.Greater(t, s.MeanSimilarity, 0.0)
	assert.GreaterOrEqual(t, s.P80Similarity, s.P50Similarity)
	assert.GreaterOrEqual(t, s.P95Similarity, s.P80Similarity)
}
