// Package graph builds, persists and serves the material similarity graph.
//
// The graph is a per-material adjacency list: every material maps to its
// qualifying neighbors, sorted by descending hybrid similarity with ties
// broken by ascending formula. It is built once per corpus snapshot by
// Builder, persisted through a Store, and treated as an immutable snapshot
// by the query side.
//
// Invariants:
//   - no neighbor list contains its own material (no self-loops)
//   - neighbor similarities are rounded to 4 decimal places
//   - key order is the corpus index order and survives persistence
package graph

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Common errors
var (
	// ErrNotFound is returned when a queried formula has no graph entry.
	ErrNotFound = errors.New("material not found in graph")

	// ErrLoadFailed wraps any failure to read or decode a persisted graph.
	ErrLoadFailed = errors.New("graph load failed")
)

// Neighbor is one qualifying edge: a neighbor formula and the hybrid
// similarity that admitted it.
type Neighbor struct {
	Formula    string  `json:"neighbor"`
	Similarity float64 `json:"similarity"`
}

// Graph is an insertion-ordered adjacency structure keyed by formula.
//
// The zero value is not usable; call New.
type Graph struct {
	order []string
	adj   map[string][]Neighbor
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[string][]Neighbor)}
}

// Add sets the neighbor list for a formula. First insertion fixes the
// formula's position in key order; re-adding replaces the list in place.
func (g *Graph) Add(formula string, neighbors []Neighbor) {
	if neighbors == nil {
		neighbors = []Neighbor{}
	}
	if _, ok := g.adj[formula]; !ok {
		g.order = append(g.order, formula)
	}
	g.adj[formula] = neighbors
}

// Neighbors returns the precomputed neighbor list for a formula.
func (g *Graph) Neighbors(formula string) ([]Neighbor, bool) {
	n, ok := g.adj[formula]
	return n, ok
}

// Contains reports whether a formula has a graph entry.
func (g *Graph) Contains(formula string) bool {
	_, ok := g.adj[formula]
	return ok
}

// Formulas returns all graph keys in insertion order.
func (g *Graph) Formulas() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.order) }

// Edges returns the total directed edge count.
func (g *Graph) Edges() int {
	var total int
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total
}

// MarshalJSON encodes the graph as an object mapping formula to neighbor
// array, emitting keys in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, formula := range g.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(formula)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		row, err := json.Marshal(g.adj[formula])
		if err != nil {
			return nil, err
		}
		buf.Write(row)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the persisted object form, preserving key order
// by walking the token stream instead of decoding into a map.
func (g *Graph) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected graph object, got %v", tok)
	}

	g.order = nil
	g.adj = make(map[string][]Neighbor)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		formula, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected formula key, got %v", tok)
		}

		var neighbors []Neighbor
		if err := dec.Decode(&neighbors); err != nil {
			return fmt.Errorf("neighbors of %q: %w", formula, err)
		}
		g.Add(formula, neighbors)
	}

	// Closing '}'.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
