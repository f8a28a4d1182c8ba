package ragapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchagent/internal/domain"
)

func TestRetrieve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/retrieve-and-generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "return policy", body.Query)
		assert.Equal(t, "claude", body.Model)
		assert.Equal(t, 10, body.NumberOfResults)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"Returns accepted within 30 days.","citations":["https://kb/a","https://kb/b","https://kb/a"]}`))
	}))
	defer srv.Close()

	r := NewRetriever(Config{Endpoint: srv.URL + "/", Model: "claude", APIKey: "secret"})
	res, err := r.Retrieve(context.Background(), "return policy")
	require.NoError(t, err)
	assert.Equal(t, "Returns accepted within 30 days", res.Summary())
	assert.Equal(t, []string{"https://kb/a", "https://kb/b"}, res.Citations())
}

func TestRetrieve_NoAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"no relevant information","citations":[]}`))
	}))
	defer srv.Close()

	res, err := NewRetriever(Config{Endpoint: srv.URL}).Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestRetrieve_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusServiceUnavailable, domain.ErrUpstreamUnavailable},
		{http.StatusInternalServerError, domain.ErrUpstreamUnavailable},
		{http.StatusTooManyRequests, domain.ErrUpstreamUnavailable},
		{http.StatusBadRequest, domain.ErrUpstreamRejected},
		{http.StatusForbidden, domain.ErrUpstreamRejected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			_, err := NewRetriever(Config{Endpoint: srv.URL}).Retrieve(context.Background(), "q")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestRetrieve_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewRetriever(Config{Endpoint: url}).Retrieve(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, domain.Retryable(err))
}

func TestRetrieve_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRetriever(Config{Endpoint: srv.URL}).Retrieve(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestHealthCheck(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	r := NewRetriever(Config{Endpoint: srv.URL})
	require.NoError(t, r.HealthCheck(context.Background()))

	healthy = false
	require.Error(t, r.HealthCheck(context.Background()))
}
