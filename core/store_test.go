package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type kvMap map[string][]byte

func (m kvMap) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m kvMap) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

type failingKV struct{ kvMap }

func (failingKV) Set(string, []byte) error { return errors.New("disk full") }

type mirrorMock struct {
	data     kvMap
	fetchErr error
	pushErr  error
	pushes   int
}

func (m *mirrorMock) Fetch(_ context.Context, key string) ([]byte, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.data[key], nil
}

func (m *mirrorMock) Push(_ context.Context, key string, value []byte) error {
	m.pushes++
	if m.pushErr != nil {
		return m.pushErr
	}
	m.data[key] = value
	return nil
}

type fruit struct {
	Name string `json:"name"`
}

func TestStore_readNeverWrittenKeyKeepsDefault(t *testing.T) {
	store := NewStore(kvMap{}, nil, nil)

	fruits := make([]fruit, 0)
	store.Read(context.Background(), "fruits", &fruits)
	assert.Empty(t, fruits)
}

func TestStore_readAfterWrite(t *testing.T) {
	store := NewStore(kvMap{}, nil, nil)
	ctx := context.Background()

	want := []fruit{{Name: "date"}, {Name: "fig"}}
	assert.NoError(t, store.Write(ctx, "fruits", want))

	var got []fruit
	store.Read(ctx, "fruits", &got)
	assert.Equal(t, want, got)

	// last write wins
	want = []fruit{{Name: "olive"}}
	assert.NoError(t, store.Write(ctx, "fruits", want))
	got = nil
	store.Read(ctx, "fruits", &got)
	assert.Equal(t, want, got)
}

func TestStore_readTreatsCorruptValueAsAbsent(t *testing.T) {
	local := kvMap{"fruits": []byte("{nope")}
	store := NewStore(local, nil, nil)

	fruits := make([]fruit, 0)
	store.Read(context.Background(), "fruits", &fruits)
	assert.Empty(t, fruits)
}

func TestStore_readIgnoresMistypedValue(t *testing.T) {
	// valid JSON of the wrong shape must not leak partial decodes into dest
	local := kvMap{"fruits": []byte(`[{"name":"date"},{"name":42}]`)}
	store := NewStore(local, nil, nil)

	fruits := make([]fruit, 0)
	store.Read(context.Background(), "fruits", &fruits)
	assert.Empty(t, fruits)
}

func TestStore_writeSurfacesLocalFailure(t *testing.T) {
	store := NewStore(failingKV{}, nil, nil)

	err := store.Write(context.Background(), "fruits", []fruit{{Name: "date"}})
	assert.Error(t, err)
}

func TestStore_remoteWinsOverLocal(t *testing.T) {
	local := kvMap{"fruits": []byte(`[{"name":"stale"}]`)}
	mirror := &mirrorMock{data: kvMap{"fruits": []byte(`[{"name":"fresh"}]`)}}
	store := NewStore(local, mirror, nil)

	var got []fruit
	store.Read(context.Background(), "fruits", &got)
	assert.Equal(t, []fruit{{Name: "fresh"}}, got)

	// the remote hit refreshed the local copy
	assert.Equal(t, mirror.data["fruits"], local["fruits"])
}

func TestStore_remoteFailureFallsBackToLocal(t *testing.T) {
	local := kvMap{"fruits": []byte(`[{"name":"date"}]`)}
	mirror := &mirrorMock{data: kvMap{}, fetchErr: errors.New("gone fishing")}
	store := NewStore(local, mirror, nil)

	var got []fruit
	store.Read(context.Background(), "fruits", &got)
	assert.Equal(t, []fruit{{Name: "date"}}, got)
}

func TestStore_writeMirrorsInBackground(t *testing.T) {
	local := kvMap{}
	mirror := &mirrorMock{data: kvMap{}}
	store := NewStore(local, mirror, nil)
	ctx := context.Background()

	want := []fruit{{Name: "date"}}
	assert.NoError(t, store.Write(ctx, "fruits", want))
	store.Flush()

	assert.Equal(t, 1, mirror.pushes)
	assert.Equal(t, local["fruits"], mirror.data["fruits"])
}

func TestStore_mirrorFailureDoesNotSurface(t *testing.T) {
	local := kvMap{}
	mirror := &mirrorMock{data: kvMap{}, pushErr: errors.New("gone fishing")}
	store := NewStore(local, mirror, nil)
	ctx := context.Background()

	assert.NoError(t, store.Write(ctx, "fruits", []fruit{{Name: "date"}}))
	store.Flush()

	// the local commit stands
	var got []fruit
	mirror.fetchErr = errors.New("still gone")
	store.Read(ctx, "fruits", &got)
	assert.Equal(t, []fruit{{Name: "date"}}, got)
}
