package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entitiesJSON = `[
  {"entity_group":"NAME","score":0.98,"word":"Kay Mann","start":5,"end":13},
  {"entity_group":"PHONE","score":0.41,"word":"5555","start":17,"end":21}
]`

func fastRetries(n int) Option {
	return WithRetries(n, time.Millisecond)
}

func TestTagSuccess(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(entitiesJSON))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token-123")
	entities, err := c.Tag(context.Background(), "Call Kay Mann at 5555")
	require.NoError(t, err)

	assert.Equal(t, "Call Kay Mann at 5555", got.Inputs)
	assert.Equal(t, "simple", got.Parameters.AggregationStrategy)
	require.Len(t, entities, 2)
	assert.Equal(t, "NAME", entities[0].Group)
	assert.Equal(t, "Kay Mann", entities[0].Word)
	assert.Equal(t, 5, entities[0].Start)
	assert.Equal(t, 13, entities[0].End)
}

func TestTagMinScoreAndNoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(entitiesJSON))
	}))
	defer srv.Close()

	entities, err := New(srv.URL, "", WithMinScore(0.5)).Tag(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "NAME", entities[0].Group)
}

func TestTagEmptyTextSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	entities, err := New(srv.URL, "tok").Tag(context.Background(), "  \n ")
	require.NoError(t, err)
	assert.NotNil(t, entities)
	assert.Empty(t, entities)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTagRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	entities, err := New(srv.URL, "tok", fastRetries(3)).Tag(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTagGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", fastRetries(2)).Tag(context.Background(), "hello")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Body)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTagClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", fastRetries(3)).Tag(context.Background(), "hello")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTagBadJSONNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", fastRetries(3)).Tag(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTagCircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", fastRetries(0), WithBreakerThreshold(2))
	for i := 0; i < 2; i++ {
		_, err := c.Tag(context.Background(), "hello")
		require.Error(t, err)
	}

	_, err := c.Tag(context.Background(), "hello")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTagContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, "tok").Tag(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTagRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", WithRateLimit(1000))
	for i := 0; i < 3; i++ {
		_, err := c.Tag(context.Background(), "hello")
		require.NoError(t, err)
	}
	assert.NoError(t, c.Close())
}
