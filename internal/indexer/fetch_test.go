package indexer

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = "#EXTM3U\n#EXTINF:-1,CCTV1\nhttp://example.com/1.m3u8\n#EXTINF:-1,湖南卫视\nhttp://example.com/2.m3u8\n"

func fastOpts() Options {
	return Options{Timeout: 2 * time.Second, Retries: 2, RetryPause: time.Millisecond}
}

func TestFetch_plainAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		assert.Equal(t, "br, gzip", r.Header.Get("Accept-Encoding"))
		_, _ = w.Write([]byte(samplePlaylist))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.URL, fastOpts())
	require.NoError(t, err)
	assert.Equal(t, samplePlaylist, string(body))
}

func TestFetch_decodesBrotliAndGzip(t *testing.T) {
	var brBuf, gzBuf bytes.Buffer
	bw := brotli.NewWriter(&brBuf)
	_, _ = bw.Write([]byte(samplePlaylist))
	require.NoError(t, bw.Close())
	gw := gzip.NewWriter(&gzBuf)
	_, _ = gw.Write([]byte(samplePlaylist))
	require.NoError(t, gw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(brBuf.Bytes())
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gzBuf.Bytes())
		}
	}))
	defer srv.Close()

	for _, path := range []string{"/br", "/gz"} {
		entries, err := FetchPlaylist(context.Background(), srv.URL+path, "origin", fastOpts())
		require.NoError(t, err, path)
		require.Len(t, entries, 2, path)
		assert.Equal(t, "湖南卫视", entries[1].OriginalName)
		assert.Equal(t, "origin", entries[1].Origin)
	}
}

func TestFetch_retriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(samplePlaylist))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, fastOpts())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_statusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	opts := fastOpts()
	opts.Retries = 0
	_, err := Fetch(context.Background(), srv.URL, opts)
	var se *StatusError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestFetchAll_partialFailureKeepsOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(samplePlaylist))
	}))
	defer srv.Close()

	opts := fastOpts()
	opts.Retries = 0
	opts.Retry.Retry5xx = false
	opts.Retry.Retry429 = true
	sources := []string{srv.URL + "/a", srv.URL + "/bad", srv.URL + "/c"}
	results := FetchAll(context.Background(), sources, opts)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, sources[i], r.URL)
	}
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
	assert.Len(t, results[2].Entries, 2)
	assert.Equal(t, sources[2], results[2].Entries[0].Origin)
}
