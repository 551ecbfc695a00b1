package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store is the node's single Pebble database. It implements the persistence
// ports of the asset engine (orders, trades, assets), the ledger and the
// chain processor. All writers run on the block-processing thread; Pebble
// handles concurrent readers itself.
type Store struct {
	db *pebble.DB
}

// NewStore opens (or creates) the Pebble database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(128 << 20),
		MemTableSize:             64 << 20,
		MaxConcurrentCompactions: func() int { return 3 },
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20,
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("opening pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) set(key, val []byte) error {
	return s.db.Set(key, val, pebble.Sync)
}

func (s *Store) delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// get returns (nil, nil) when the key is absent; the value is copied out of
// Pebble's buffer before the closer is released.
func (s *Store) get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}
