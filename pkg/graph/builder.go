package graph

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/orneryd/cathograph/pkg/feature"
	"github.com/orneryd/cathograph/pkg/similarity"
)

// Builder defaults.
const (
	// DefaultThreshold is the initial minimum qualifying similarity.
	DefaultThreshold = 0.85

	// DefaultMinAvgDegree triggers threshold recalibration when the mean
	// neighbor count falls below it.
	DefaultMinAvgDegree = 5.0

	// DefaultTargetQuantile picks the recalibrated threshold from the
	// empirical all-pairs similarity distribution.
	DefaultTargetQuantile = 0.8
)

// BuilderOptions configures graph construction.
type BuilderOptions struct {
	// Threshold is the initial minimum qualifying similarity. Zero means
	// DefaultThreshold; an exact-zero threshold is not expressible. Every
	// hybrid similarity is strictly positive, so any threshold below the
	// smallest pairwise score admits every edge already.
	Threshold float64

	// MinAvgDegree is the density floor below which the threshold is
	// recalibrated once. Negative disables recalibration.
	MinAvgDegree float64

	// TargetQuantile selects the recalibrated threshold from the sorted
	// all-pairs similarities.
	TargetQuantile float64

	// Workers bounds the parallel pairwise pass. 0 = GOMAXPROCS.
	Workers int
}

// withDefaults fills unset options.
func (o BuilderOptions) withDefaults() BuilderOptions {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MinAvgDegree == 0 {
		o.MinAvgDegree = DefaultMinAvgDegree
	}
	if o.TargetQuantile == 0 {
		o.TargetQuantile = DefaultTargetQuantile
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Result carries the built graph plus the threshold run metadata.
type Result struct {
	Graph *Graph

	// Threshold is the value that produced the final edge set.
	Threshold float64

	// Adjusted reports whether the adaptive recalibration fired.
	Adjusted bool

	Stats Stats
}

// Builder computes the full pairwise similarity matrix and assembles the
// thresholded adjacency structure. Corpus, normalized vectors and metric
// weights all travel through the feature space and engine passed in; the
// builder holds no other state between runs.
type Builder struct {
	space  *feature.Space
	engine *similarity.Engine
	opts   BuilderOptions
	logger zerolog.Logger
}

// NewBuilder creates a builder over a normalized feature space.
func NewBuilder(space *feature.Space, opts BuilderOptions, logger zerolog.Logger) *Builder {
	return &Builder{
		space:  space,
		engine: similarity.NewEngine(space),
		opts:   opts.withDefaults(),
		logger: logger.With().Str("component", "graph-builder").Logger(),
	}
}

// Build runs the O(n²) pairwise pass and assembles the graph.
//
// Pass one applies the initial threshold. If the resulting mean degree is
// below the floor, the threshold is recalibrated to the target quantile of
// all pairwise similarities and every row is rebuilt from the cached
// similarity matrix. Exactly one adaptive round occurs.
//
// The outer loop fans out across workers; each row writes only its own
// matrix slot, so the merged result is identical to the sequential pass.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	n := b.space.Len()
	if n == 0 {
		return &Result{Graph: New(), Threshold: b.opts.Threshold}, nil
	}

	matrix, err := b.pairwiseMatrix(ctx, n)
	if err != nil {
		return nil, err
	}

	threshold := b.opts.Threshold
	g := b.assemble(matrix, threshold)

	degrees := make([]float64, n)
	for i := 0; i < n; i++ {
		row, _ := g.Neighbors(b.space.Formula(i))
		degrees[i] = float64(len(row))
	}
	avgDegree := stat.Mean(degrees, nil)

	adjusted := false
	if n > 1 && avgDegree < b.opts.MinAvgDegree {
		threshold = b.quantileThreshold(matrix, n)
		b.logger.Info().
			Float64("initial_threshold", b.opts.Threshold).
			Float64("avg_degree", avgDegree).
			Float64("new_threshold", threshold).
			Msg("graph too sparse, recalibrating threshold")

		g = b.assemble(matrix, threshold)
		adjusted = true
	}

	result := &Result{
		Graph:     g,
		Threshold: threshold,
		Adjusted:  adjusted,
		Stats:     computeStats(g, matrix, n),
	}

	b.logger.Info().
		Int("nodes", g.Len()).
		Int("edges", g.Edges()).
		Float64("threshold", threshold).
		Bool("adjusted", adjusted).
		Msg("similarity graph built")

	return result, nil
}

// pairwiseMatrix computes hybrid similarity for every ordered pair across
// the corpus, parallelized over rows. matrix[i][i] stays 0 and is never
// read.
func (b *Builder) pairwiseMatrix(ctx context.Context, n int) ([][]float64, error) {
	matrix := make([][]float64, n)

	rows := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var workerErr error

	for w := 0; w < b.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				if err := ctx.Err(); err != nil {
					mu.Lock()
					workerErr = err
					mu.Unlock()
					return
				}
				row := make([]float64, n)
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					row[j] = b.engine.Hybrid(i, j)
				}
				matrix[i] = row
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case rows <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(rows)
	wg.Wait()

	if workerErr != nil {
		return nil, workerErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// assemble builds the adjacency structure from the cached matrix at a given
// threshold. Rows appear in corpus index order; each row is sorted by
// descending similarity with ties broken by ascending formula.
func (b *Builder) assemble(matrix [][]float64, threshold float64) *Graph {
	g := New()
	n := len(matrix)

	for i := 0; i < n; i++ {
		var neighbors []Neighbor
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if sim := matrix[i][j]; sim >= threshold {
				neighbors = append(neighbors, Neighbor{
					Formula:    b.space.Formula(j),
					Similarity: round4(sim),
				})
			}
		}

		sort.Slice(neighbors, func(a, c int) bool {
			if neighbors[a].Similarity != neighbors[c].Similarity {
				return neighbors[a].Similarity > neighbors[c].Similarity
			}
			return neighbors[a].Formula < neighbors[c].Formula
		})

		g.Add(b.space.Formula(i), neighbors)
	}
	return g
}

// quantileThreshold returns the target-quantile value of the full sorted
// list of pairwise similarities, indexed the way the batch pipeline defined
// it: sorted[int(q*len)], clamped to the valid range.
func (b *Builder) quantileThreshold(matrix [][]float64, n int) float64 {
	sims := make([]float64, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				sims = append(sims, matrix[i][j])
			}
		}
	}
	sort.Float64s(sims)

	idx := int(float64(len(sims)) * b.opts.TargetQuantile)
	idx = min(max(idx, 0), len(sims)-1)
	return sims[idx]
}

// round4 rounds a similarity to 4 decimal places, the precision carried by
// edges and the persisted graph.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
