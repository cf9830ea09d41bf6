package graph

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a built graph and the similarity distribution behind it,
// for operator-facing reporting only: nothing here feeds back into
// construction or querying.
type Stats struct {
	Nodes     int     `json:"nodes"`
	Edges     int     `json:"edges"`
	AvgDegree float64 `json:"avg_degree"`

	// Distribution of all pairwise hybrid similarities.
	MeanSimilarity float64 `json:"mean_similarity"`
	P50Similarity  float64 `json:"p50_similarity"`
	P80Similarity  float64 `json:"p80_similarity"`
	P95Similarity  float64 `json:"p95_similarity"`
}

// computeStats derives statistics from the adjacency structure and the
// cached pairwise matrix.
func computeStats(g *Graph, matrix [][]float64, n int) Stats {
	s := Stats{
		Nodes: g.Len(),
		Edges: g.Edges(),
	}
	if s.Nodes > 0 {
		s.AvgDegree = float64(s.Edges) / float64(s.Nodes)
	}

	sims := make([]float64, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				sims = append(sims, matrix[i][j])
			}
		}
	}
	if len(sims) == 0 {
		return s
	}

	sort.Float64s(sims)
	s.MeanSimilarity = stat.Mean(sims, nil)
	s.P50Similarity = stat.Quantile(0.50, stat.Empirical, sims, nil)
	s.P80Similarity = stat.Quantile(0.80, stat.Empirical, sims, nil)
	s.P95Similarity = stat.Quantile(0.95, stat.Empirical, sims, nil)
	return s
}
