package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Store persists a built graph and loads it back for querying.
//
// Implementations must round-trip the graph exactly: key order, neighbor
// order and the 4-decimal similarity values all survive. No other
// transformation happens at this boundary.
type Store interface {
	Save(g *Graph) error
	Load() (*Graph, error)
}

// FileStore persists the graph as a single JSON file: an object mapping
// formula to an array of {"neighbor", "similarity"} entries.
//
// Example:
//
//	store := graph.NewFileStore("adjacency_list.json")
//	if err := store.Save(result.Graph); err != nil {
//		return err
//	}
//	g, err := store.Load()
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by a JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes the graph to the file, creating parent directories as needed.
func (s *FileStore) Save(g *Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create graph directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// Load reads the graph back. An absent or malformed file is a load failure;
// callers treat it as fatal for the query stage.
func (s *FileStore) Load() (*Graph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.path, err)
	}

	g := New()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, s.path, err)
	}
	return g, nil
}
