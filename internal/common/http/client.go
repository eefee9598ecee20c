// Package http wraps the stdlib client with the bounded timeout every
// registry lookup call runs under.
package http

import (
	"context"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

// NewClient builds a client whose every request is capped at timeout,
// covering connection, redirects and body read.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DoWithContext executes the request under the caller's context in
// addition to the client-level timeout, so a cancelled worker shutdown
// aborts an in-flight lookup.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}
