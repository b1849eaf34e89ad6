package database

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

// Store keeps each collection as one jsonb document keyed by its name, so it
// satisfies the same contract as the device-local file store.
type Store struct {
	db *sqlx.DB
}

var _ core.KVStore = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.Get(&data, "SELECT data FROM documents WHERE collection = $1", key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %q", key)
	}
	return data, true, nil
}

func (s *Store) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (collection, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (collection) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, value,
	)
	return errors.Wrapf(err, "storing %q", key)
}
