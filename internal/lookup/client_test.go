package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cnpj-workers/internal/common/config"
	apperrors "cnpj-workers/internal/common/errors"
	"cnpj-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string, timeoutSeconds int) *Client {
	return NewClient(config.LookupConfig{
		BaseURL:        serverURL,
		TimeoutSeconds: timeoutSeconds,
	}, logger.NewTestLogger(t))
}

func TestLookup_InvalidInput_NoNetworkCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)
	res := c.Lookup(context.Background(), "1234567800019")

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, res.Failure.Code)
	assert.False(t, called, "malformed identifier must never reach the network")
}

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345678000195", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","nome":"EMPRESA TESTE LTDA","situacao":"ATIVA"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)
	res := c.Lookup(context.Background(), "12345678000195")

	require.True(t, res.OK())
	assert.Equal(t, "EMPRESA TESTE LTDA", res.Data["nome"])
	assert.Equal(t, "12345678000195", res.Data["cnpj_consultado"])
}

func TestLookup_RemoteErrorWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":"ERROR","message":"too many requests, try again later"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)
	res := c.Lookup(context.Background(), "12345678000195")

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.ErrCodeRemoteError, res.Failure.Code)
	assert.Equal(t, http.StatusTooManyRequests, res.Failure.HTTPStatus)
	assert.Equal(t, "too many requests, try again later", res.Failure.Message)
}

func TestLookup_RemoteErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)
	res := c.Lookup(context.Background(), "12345678000195")

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.ErrCodeRemoteError, res.Failure.Code)
	assert.Equal(t, "Erro HTTP: 500", res.Failure.Message)
}

func TestLookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := c.Lookup(ctx, "12345678000195")

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.ErrCodeTimeout, res.Failure.Code)
}

func TestLookup_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(t, srv.URL, 10)
	res := c.Lookup(context.Background(), "12345678000195")

	require.NotNil(t, res.Failure)
	assert.Equal(t, apperrors.ErrCodeTransportError, res.Failure.Code)
}
