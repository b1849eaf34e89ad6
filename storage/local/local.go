// Package localdb is the device-local store: one JSON file per collection
// under a data directory. It is the durable side of the persistence façade;
// the app stays fully functional with nothing but this backend.
package localdb

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

type DB struct {
	dir string
	mu  sync.Mutex
}

var _ core.KVStore = (*DB)(nil)

func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data dir")
	}
	return &DB{dir: dir}, nil
}

func (db *DB) Get(key string) ([]byte, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	data, err := os.ReadFile(db.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %q", key)
	}
	return data, true, nil
}

// Set writes through a temp file and renames so a crash mid-write never leaves
// a half-written collection behind.
func (db *DB) Set(key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tmp, err := os.CreateTemp(db.dir, key+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "staging %q", key)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "staging %q", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "staging %q", key)
	}
	if err := os.Rename(tmp.Name(), db.path(key)); err != nil {
		return errors.Wrapf(err, "storing %q", key)
	}
	return nil
}

func (db *DB) path(key string) string {
	return filepath.Join(db.dir, key+".json")
}
