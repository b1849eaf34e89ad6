// Package remotesvc is the HTTP client side of the optional remote mirror.
// It syncs whole collections against the hosted API's /v1/sync endpoints; the
// façade treats everything it says as advisory.
package remotesvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ core.RemoteMirror = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Remote.BaseURL, "/"),
		apiKey:  conf.Remote.APIKey,
		http:    &http.Client{Timeout: conf.Remote.Timeout},
	}
}

// Fetch returns the remote copy of the collection, or (nil, nil) when the
// remote has never seen it.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building sync request")
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching collection")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching collection: status %d", res.StatusCode)
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading collection")
	}
	return data, nil
}

func (c *Client) Push(ctx context.Context, key string, value []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(key), bytes.NewReader(value))
	if err != nil {
		return errors.Wrap(err, "building sync request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "pushing collection")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("pushing collection: status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) url(key string) string {
	return fmt.Sprintf("%s/v1/sync/%s", c.baseURL, key)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
