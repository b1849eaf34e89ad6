// Package inmemdb is a throwaway in-memory store backend, used in tests.
package inmemdb

import (
	"sync"

	"github.com/mutqin/backend/core"
)

type DB struct {
	mu     sync.RWMutex
	tables map[string][]byte
}

var _ core.KVStore = (*DB)(nil)

func Open() *DB {
	return &DB{tables: make(map[string][]byte)}
}

func (db *DB) Get(key string) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	data, ok := db.tables[key]
	return data, ok, nil
}

func (db *DB) Set(key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	db.tables[key] = cp
	return nil
}
