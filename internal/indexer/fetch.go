package indexer

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/sync/errgroup"

	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/httpclient"
	"github.com/plextuner/iptv-collector/internal/log"
)

// maxPlaylistSize caps a decoded playlist body.
const maxPlaylistSize = 64 << 20

// StatusError is a non-200 playlist response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return "fetch " + e.URL + ": unexpected status " + strconv.Itoa(e.Code)
}

// Options tunes playlist downloads.
type Options struct {
	Client      *http.Client // nil: httpclient.WithTimeout(Timeout)
	Timeout     time.Duration
	Retries     int           // extra attempts after the first
	RetryPause  time.Duration // between attempts
	Concurrency int           // FetchAll parallelism
	Retry       httpclient.RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.Client == nil {
		o.Client = httpclient.WithTimeout(o.Timeout)
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryPause < 0 {
		o.RetryPause = 0
	}
	if o.Concurrency < 1 {
		o.Concurrency = 4
	}
	if o.Retry == (httpclient.RetryPolicy{}) {
		o.Retry = httpclient.PlaylistRetryPolicy
	}
	return o
}

// Fetch downloads one playlist body, retrying transport errors and bad statuses.
// Brotli and gzip encodings are decoded.
func Fetch(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	logger := log.WithComponent("indexer")
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.RetryPause):
			}
		}
		body, err := fetchOnce(ctx, rawURL, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn().Err(err).
			Str(log.FieldSource, rawURL).
			Int(log.FieldAttempt, attempt+1).
			Int("attempts", opts.Retries+1).
			Msg("playlist fetch failed")
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: build request: %w", rawURL, err)
	}
	httpclient.SetPlaylistHeaders(req)
	resp, err := httpclient.DoWithRetry(ctx, opts.Client, req, opts.Retry)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	r, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	body, err := io.ReadAll(io.LimitReader(r, maxPlaylistSize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	return body, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "", "identity":
		return resp.Body, nil
	default:
		return nil, errors.New("unsupported content encoding " + resp.Header.Get("Content-Encoding"))
	}
}

// FetchPlaylist downloads and parses one playlist, tagging entries with origin.
func FetchPlaylist(ctx context.Context, rawURL, origin string, opts Options) ([]catalog.RawEntry, error) {
	body, err := Fetch(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	entries, err := ParseM3U(bytes.NewReader(body), origin)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return entries, nil
}

// SourceResult is the outcome of fetching one source playlist.
type SourceResult struct {
	URL     string
	Entries []catalog.RawEntry
	Err     error
	Elapsed time.Duration
}

// OK reports whether the source produced a playlist.
func (r SourceResult) OK() bool { return r.Err == nil }

// FetchAll fetches every source with bounded parallelism. A failing source is
// recorded on its result and never stops the others; results keep input order.
func FetchAll(ctx context.Context, sources []string, opts Options) []SourceResult {
	opts = opts.withDefaults()
	logger := log.WithComponent("indexer")
	results := make([]SourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			entries, err := FetchPlaylist(gctx, src, src, opts)
			results[i] = SourceResult{URL: src, Entries: entries, Err: err, Elapsed: time.Since(start)}
			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			ev.Str(log.FieldSource, src).
				Int(log.FieldEntries, len(entries)).
				Int64(log.FieldLatency, time.Since(start).Milliseconds()).
				Msg("source fetched")
			return nil
		})
	}
	_ = g.Wait()
	return results
}
