package graph

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixRow      = byte(0x01) // row:formula -> JSON([]Neighbor)
	prefixManifest = byte(0x02) // manifest -> JSON([]string), key order
)

var manifestKey = []byte{prefixManifest}

// BadgerStore persists the graph in a BadgerDB database: one key per
// formula holding its neighbor row, plus a manifest key recording key order
// so round-trips preserve it.
//
// Useful when the graph is rebuilt in place on a schedule and readers want
// crash-safe storage instead of a flat file. Round-trip semantics are
// identical to FileStore.
//
// Example:
//
//	store, err := graph.NewBadgerStore("./data/graph")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	if err := store.Save(result.Graph); err != nil {
//		return err
//	}
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger database at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open graph database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Save writes every neighbor row and the key-order manifest in one
// transaction, replacing any previously stored graph.
func (s *BadgerStore) Save(g *Graph) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		// Drop rows from any previous snapshot so stale formulas do not
		// survive a rebuild with a smaller corpus.
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefixRow}})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		order := g.Formulas()
		for _, formula := range order {
			neighbors, _ := g.Neighbors(formula)
			row, err := json.Marshal(neighbors)
			if err != nil {
				return err
			}
			if err := txn.Set(rowKey(formula), row); err != nil {
				return err
			}
		}

		manifest, err := json.Marshal(order)
		if err != nil {
			return err
		}
		return txn.Set(manifestKey, manifest)
	})
	if err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

// Load reads the manifest and reconstructs the graph in stored key order.
// A database without a manifest is a load failure.
func (s *BadgerStore) Load() (*Graph, error) {
	g := New()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey)
		if err != nil {
			return err
		}

		var order []string
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &order)
		}); err != nil {
			return err
		}

		for _, formula := range order {
			item, err := txn.Get(rowKey(formula))
			if err != nil {
				return fmt.Errorf("row %q: %w", formula, err)
			}
			var neighbors []Neighbor
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &neighbors)
			}); err != nil {
				return fmt.Errorf("row %q: %w", formula, err)
			}
			g.Add(formula, neighbors)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return g, nil
}

func rowKey(formula string) []byte {
	key := make([]byte, 0, len(formula)+1)
	key = append(key, prefixRow)
	return append(key, formula...)
}
