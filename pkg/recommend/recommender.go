// Package recommend answers substitute-material queries over a loaded
// similarity graph.
//
// The graph is an immutable snapshot: every query is a lookup into
// precomputed, pre-sorted neighbor lists. An unknown target is a
// per-query error reported to the caller, never a substituted result and
// never fatal to the session.
//
// Example:
//
//	rec, err := recommend.Load(graph.NewFileStore("adjacency_list.json"), logger)
//	if err != nil {
//		log.Fatal(err) // load failure is fatal for the query stage
//	}
//	subs, err := rec.Recommend("LiCoO2", 5)
//	if errors.Is(err, graph.ErrNotFound) {
//		fmt.Println("unknown material")
//	}
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/orneryd/cathograph/pkg/graph"
)

// MaxStars is the top of the confidence-rating scale.
const MaxStars = 5

// Recommender serves top-k substitute queries over one graph snapshot.
// Safe for concurrent use; the graph is never mutated.
type Recommender struct {
	graph  *graph.Graph
	logger zerolog.Logger
}

// New creates a recommender over an already-loaded graph.
func New(g *graph.Graph, logger zerolog.Logger) *Recommender {
	return &Recommender{
		graph:  g,
		logger: logger.With().Str("component", "recommender").Logger(),
	}
}

// Load reads a persisted graph from a store and wraps it in a recommender.
// A load failure is fatal for the query stage and is returned as-is.
func Load(store graph.Store, logger zerolog.Logger) (*Recommender, error) {
	g, err := store.Load()
	if err != nil {
		return nil, err
	}
	logger.Info().Int("nodes", g.Len()).Msg("similarity graph loaded")
	return New(g, logger), nil
}

// Materials returns every formula in the graph, ordered lexicographically.
func (r *Recommender) Materials() []string {
	formulas := r.graph.Formulas()
	sort.Strings(formulas)
	return formulas
}

// NeighborCount returns how many qualifying substitutes a formula has.
func (r *Recommender) NeighborCount(formula string) int {
	neighbors, _ := r.graph.Neighbors(formula)
	return len(neighbors)
}

// Recommend returns up to k substitutes for a formula, best first. The
// result is a prefix of the precomputed neighbor list, so ordering matches
// the graph exactly. Returns graph.ErrNotFound (wrapped with the formula)
// when the target is absent.
func (r *Recommender) Recommend(formula string, k int) ([]graph.Neighbor, error) {
	neighbors, ok := r.graph.Neighbors(formula)
	if !ok {
		return nil, fmt.Errorf("%w: %q", graph.ErrNotFound, formula)
	}

	if k > len(neighbors) {
		k = len(neighbors)
	}
	if k < 0 {
		k = 0
	}

	out := make([]graph.Neighbor, k)
	copy(out, neighbors[:k])

	r.logger.Debug().
		Str("target", formula).
		Int("returned", len(out)).
		Msg("recommendation served")
	return out, nil
}

// ConfidenceRating converts a similarity to a star count in [0, MaxStars]
// as round(similarity × 5). Display only; never used for ordering.
func ConfidenceRating(similarity float64) int {
	stars := int(math.Round(similarity * MaxStars))
	if stars < 0 {
		return 0
	}
	if stars > MaxStars {
		return MaxStars
	}
	return stars
}

// Stars renders a similarity as a star string, e.g. "****".
func Stars(similarity float64) string {
	return strings.Repeat("*", ConfidenceRating(similarity))
}
