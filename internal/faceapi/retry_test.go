package faceapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Face mismatch"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.retryDelay = 0

	err := c.Register(context.Background(), "tok", []byte("img"))
	require.Error(t, err)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusForbidden, serverErr.Status)
	assert.Equal(t, "Face mismatch", serverErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "terminal status must consume exactly one attempt")
}

func TestEachTerminalStatusSurfacesImmediately(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 500} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"rejected"}`))
		}))

		c := New(srv.URL, nil)
		c.retryDelay = 0
		err := c.Register(context.Background(), "tok", []byte("img"))

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr, "status %d", status)
		assert.Equal(t, status, serverErr.Status)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		srv.Close()
	}
}

func TestTransportFailureRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Drop the connection without a response.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.retryDelay = 0

	err := c.Register(context.Background(), "tok", []byte("img"))
	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "two transport failures then success means three calls")
}

func TestExhaustedRetriesSurfaceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.retryDelay = 0

	err := c.Register(context.Background(), "tok", []byte("img"))
	assert.ErrorIs(t, err, ErrServerUnreachable)
}

func TestNonTerminalStatusIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.retryDelay = 0

	err := c.Register(context.Background(), "tok", []byte("img"))
	assert.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
