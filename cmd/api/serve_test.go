package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln := listen(t)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	var closed atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, func() { closed.Add(1) }, time.Second, discardLogger())
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	assert.Equal(t, int32(1), closed.Load())
}

func TestServe_ShutdownTimeoutIsReturned(t *testing.T) {
	ln := listen(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})}
	t.Cleanup(func() { _ = srv.Close() })

	var closed atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, srv, ln, func() { closed.Add(1) }, 50*time.Millisecond, discardLogger())
	}()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	cancel()
	select {
	case err := <-done:
		// The error comes back to the caller instead of exiting, so run's
		// deferred cleanup still executes.
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the shutdown timeout")
	}
	assert.Equal(t, int32(1), closed.Load())
	close(release)
}

func TestServe_ListenerFailure(t *testing.T) {
	ln := listen(t)
	require.NoError(t, ln.Close())

	var closed atomic.Int32
	err := serve(context.Background(), &http.Server{}, ln, func() { closed.Add(1) }, time.Second, discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
	assert.Zero(t, closed.Load(), "streams are only closed on shutdown")
}
