package core

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

type (
	// KVStore is the durable device-local store backing a Store. Each key holds
	// one JSON-encoded collection.
	KVStore interface {
		Get(key string) (value []byte, ok bool, err error)
		Set(key string, value []byte) error
	}

	// RemoteMirror is an optional remote collaborator mirroring the local
	// collections. Every response it gives is advisory: the local copy is the
	// source of truth for the running app.
	RemoteMirror interface {
		Fetch(ctx context.Context, key string) ([]byte, error)
		Push(ctx context.Context, key string, value []byte) error
	}

	// Store is the persistence façade: reads fall back from the remote mirror
	// to the local store to the caller's default; writes commit locally first
	// and mirror to the remote side best-effort.
	Store struct {
		local  KVStore
		remote RemoteMirror
		logger Logger

		wg sync.WaitGroup
	}
)

func NewStore(local KVStore, remote RemoteMirror, logger Logger) *Store {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Store{local: local, remote: remote, logger: logger}
}

// RemoteEnabled reports whether a remote mirror was wired in at startup.
func (s *Store) RemoteEnabled() bool { return s.remote != nil }

// Read deserializes the value stored under key into dest, trying the remote
// mirror first when enabled. An absent key, an unusable payload or any
// transport failure leaves dest at its caller-initialized default; Read never
// surfaces those to the caller.
func (s *Store) Read(ctx context.Context, key string, dest interface{}) {
	if s.remote != nil {
		if data, err := s.remote.Fetch(ctx, key); err != nil {
			s.logger.Debug("store: remote fetch failed, falling back to local", errors.Wrap(err, key))
		} else if len(data) > 0 && decode(data, dest) == nil {
			// refresh the local copy so later offline reads observe it
			if err := s.local.Set(key, data); err != nil {
				s.logger.Warn("store: refreshing local copy", errors.Wrap(err, key))
			}
			return
		}
	}

	data, ok, err := s.local.Get(key)
	if err != nil {
		s.logger.Warn("store: local read failed, using default", errors.Wrap(err, key))
		return
	}
	if !ok {
		return
	}
	if err := decode(data, dest); err != nil {
		// a corrupt value is treated as absent
		s.logger.Warn("store: unusable local value, using default", errors.Wrap(err, key))
	}
}

// decode unmarshals data into a scratch value of dest's type and copies it
// over only when the whole payload decodes, so a bad value can never leave
// dest half-populated.
func decode(data []byte, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return json.Unmarshal(data, dest)
	}
	scratch := reflect.New(rv.Type().Elem())
	if err := json.Unmarshal(data, scratch.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(scratch.Elem())
	return nil
}

// Write serializes v and stores it under key, overwriting prior content
// (last-write-wins). The local write is synchronous; the remote mirror is
// updated in the background and its failures are logged, never surfaced.
func (s *Store) Write(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshalling %q", key)
	}
	if err := s.local.Set(key, data); err != nil {
		return errors.Wrapf(err, "storing %q", key)
	}

	if s.remote != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.remote.Push(context.Background(), key, data); err != nil {
				s.logger.Warn("store: remote sync failed", errors.Wrap(err, key))
			}
		}()
	}
	return nil
}

// Flush blocks until all in-flight remote mirroring has settled.
func (s *Store) Flush() { s.wg.Wait() }
