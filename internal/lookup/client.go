// internal/lookup/client.go
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cnpj-workers/internal/cnpj"
	"cnpj-workers/internal/common/config"
	apperrors "cnpj-workers/internal/common/errors"
	httpx "cnpj-workers/internal/common/http"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/common/metrics"
)

// Client performs one bounded-time lookup per identifier against the
// public registry API. It never retries; retry policy belongs to the
// worker (in practice: none, a failed task stays ERROR until
// re-enqueued).
type Client struct {
	baseURL string
	http    *httpx.Client
	logger  logger.Logger
}

func NewClient(cfg config.LookupConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpx.NewClient(cfg.Timeout()),
		logger:  log.WithFields(map[string]interface{}{"component": "lookup"}),
	}
}

// Lookup fetches the registry record for one canonical identifier.
// Malformed identifiers are rejected before any network call.
func (c *Client) Lookup(ctx context.Context, identifier string) *Result {
	if !cnpj.IsValid(identifier) {
		return &Result{
			Identifier: identifier,
			Failure:    apperrors.NewInvalidInputError(identifier),
		}
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, identifier)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &Result{
			Identifier: identifier,
			Failure:    apperrors.NewTransportError(identifier, err),
		}
	}

	start := time.Now()
	resp, err := c.http.DoWithContext(ctx, req)
	metrics.LookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return &Result{
			Identifier: identifier,
			Failure:    c.classifyTransport(identifier, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{
			Identifier: identifier,
			Failure:    apperrors.NewTransportError(identifier, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return &Result{
			Identifier: identifier,
			Failure:    c.classifyRemote(identifier, resp.StatusCode, body),
		}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Warn("unparsable success body", map[string]interface{}{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return &Result{
			Identifier: identifier,
			Failure:    apperrors.NewRemoteError(resp.StatusCode, "unparsable response body"),
		}
	}

	// Stamp the queried identifier into the payload for downstream
	// display, mirroring the stored document key.
	data["cnpj_consultado"] = identifier

	return &Result{Identifier: identifier, Data: data}
}

func (c *Client) classifyTransport(identifier string, err error) *apperrors.StandardError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(identifier)
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return apperrors.NewTimeoutError(identifier)
	}
	return apperrors.NewTransportError(identifier, err)
}

// classifyRemote extracts the remote-supplied status/message from a
// non-2xx body when one is present. An empty or unparsable body still
// yields a REMOTE_ERROR carrying the HTTP status code.
func (c *Client) classifyRemote(identifier string, status int, body []byte) *apperrors.StandardError {
	if len(body) > 0 {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
			remoteErr := apperrors.NewRemoteError(status, eb.Message)
			remoteErr.Details = fmt.Sprintf("identifier: %s, remote status: %s", identifier, eb.Status)
			return remoteErr
		}
	}
	remoteErr := apperrors.NewRemoteError(status, "")
	remoteErr.Details = fmt.Sprintf("identifier: %s", identifier)
	return remoteErr
}
