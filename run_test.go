package waiton

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunFileBecomesStable(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "data")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(path, []byte("hello"), 0o644)
	}()

	err := Run(context.Background(), Options{
		Resources: []string{path},
		Interval:  durationPtr(10 * time.Millisecond),
		Window:    durationPtr(20 * time.Millisecond),
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
}

func TestRunTCPPortBecomesAvailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	go func() {
		time.Sleep(30 * time.Millisecond)
		l, err := net.Listen("tcp", addr)
		if err == nil {
			defer l.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	err = Run(context.Background(), Options{
		Resources: []string{"tcp:" + addr},
		Interval:  durationPtr(10 * time.Millisecond),
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
}

func TestRunMultipleHTTPEndpoints(t *testing.T) {
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	defer srvA.Close()
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	defer srvB.Close()

	err := Run(context.Background(), Options{
		Resources: []string{srvA.URL, srvB.URL},
		Interval:  durationPtr(10 * time.Millisecond),
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
}

func TestRunTimesOut(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "never-appears")

	err := Run(context.Background(), Options{
		Resources: []string{missing},
		Interval:  durationPtr(10 * time.Millisecond),
		Window:    durationPtr(10 * time.Millisecond),
		Timeout:   50 * time.Millisecond,
	})
	require.Error(t, err)
	werr, ok := err.(*Error)
	require.True(t, ok, "error type = %T, want *Error", err)
	require.Equal(t, KindTimeout, werr.Kind())
}

func TestRunHTTPRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Run(context.Background(), Options{
		Resources:   []string{srv.URL},
		Interval:    durationPtr(20 * time.Millisecond),
		HTTPTimeout: 10 * time.Millisecond,
		Timeout:     100 * time.Millisecond,
	})
	require.Error(t, err, "expected a timeout error when every request exceeds HTTPTimeout")
}

func TestRunReverseUnreachableHostSucceeds(t *testing.T) {
	err := Run(context.Background(), Options{
		Resources:  []string{"tcp:127.0.0.1:1"},
		Reverse:    true,
		Interval:   durationPtr(10 * time.Millisecond),
		TCPTimeout: durationPtr(10 * time.Millisecond),
		Timeout:    time.Second,
	})
	require.NoError(t, err)
}

func TestRunReverseFileDeletionSucceeds(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lockfile")
	require.NoError(t, os.WriteFile(path, []byte("locked"), 0o644))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.Remove(path)
	}()

	err := Run(context.Background(), Options{
		Resources: []string{path},
		Reverse:   true,
		Interval:  durationPtr(10 * time.Millisecond),
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
}

func TestRunEmptyResourcesIsConfigInvalid(t *testing.T) {
	err := Run(context.Background(), Options{})
	require.Error(t, err)
	werr, ok := err.(*Error)
	require.True(t, ok, "error type = %T, want *Error", err)
	require.Equal(t, KindConfigInvalid, werr.Kind())
}

func TestRunCallbackDeliversOnce(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "data")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	results := make(chan error, 2)
	RunCallback(context.Background(), Options{
		Resources: []string{path},
		Interval:  durationPtr(10 * time.Millisecond),
		Window:    durationPtr(10 * time.Millisecond),
		Timeout:   time.Second,
	}, func(err error) {
		results <- err
	})

	select {
	case err := <-results:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunCallback never delivered a result")
	}

	select {
	case <-results:
		t.Fatal("RunCallback delivered more than once")
	case <-time.After(50 * time.Millisecond):
	}
}
