package remotesvc

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mutqin/backend/core"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(&core.Config{
		Remote: core.RemoteConfig{
			BaseURL: srv.URL + "/", // trailing slash is tolerated
			APIKey:  "key-123",
			Timeout: time.Second,
		},
	})
	return client, srv
}

func TestClient_Fetch(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/sync/sessions", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":"s1"}]`))
	}))
	defer srv.Close()

	data, err := client.Fetch(context.Background(), "sessions")
	assert.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"s1"}]`), data)
}

func TestClient_Fetch_unknownCollectionIsNotAnError(t *testing.T) {
	client, srv := newTestClient(http.NotFoundHandler())
	defer srv.Close()

	data, err := client.Fetch(context.Background(), "sessions")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestClient_Fetch_serverError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := client.Fetch(context.Background(), "sessions")
	assert.Error(t, err)
}

func TestClient_Push(t *testing.T) {
	var got []byte
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/sync/payments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := client.Push(context.Background(), "payments", []byte(`[]`))
	assert.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
}

func TestClient_Push_rejected(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := client.Push(context.Background(), "payments", []byte(`[]`))
	assert.Error(t, err)
}
