// Package health checks whether configured source playlists are reachable.
package health

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plextuner/iptv-collector/internal/httpclient"
	"github.com/plextuner/iptv-collector/internal/log"
)

// Status is the outcome of checking one source.
type Status struct {
	URL      string
	Code     int
	Playlist bool // body starts with #EXTM3U or looks like a name,url list
	Elapsed  time.Duration
	Err      error
}

// OK reports whether the source answered 200.
func (s Status) OK() bool { return s.Err == nil }

// CheckSource fetches the head of a source playlist. Some servers reject HEAD,
// so it uses GET and reads only the first line.
func CheckSource(ctx context.Context, client *http.Client, sourceURL string) (st Status) {
	st.URL = sourceURL
	if sourceURL == "" {
		st.Err = errors.New("no source URL")
		return st
	}
	if client == nil {
		client = httpclient.WithTimeout(15 * time.Second)
	}
	start := time.Now()
	defer func() { st.Elapsed = time.Since(start) }()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		st.Err = err
		return st
	}
	httpclient.SetPlaylistHeaders(req)
	// only the first line is inspected, so skip compressed bodies
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := client.Do(req)
	if err != nil {
		st.Err = fmt.Errorf("source unreachable: %w", err)
		return st
	}
	defer resp.Body.Close()
	st.Code = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		st.Err = fmt.Errorf("source returned HTTP %d", resp.StatusCode)
		return st
	}
	line, _ := bufio.NewReader(io.LimitReader(resp.Body, 4096)).ReadBytes('\n')
	line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("\xef\xbb\xbf")))
	st.Playlist = bytes.HasPrefix(line, []byte("#EXTM3U")) || bytes.Contains(line, []byte(","))
	return st
}

// CheckSources checks every URL with at most concurrency requests in flight.
// Results keep input order.
func CheckSources(ctx context.Context, client *http.Client, urls []string, concurrency int) []Status {
	if concurrency < 1 {
		concurrency = 4
	}
	logger := log.WithComponent("health")
	out := make([]Status, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = CheckSource(gctx, client, u)
			ev := logger.Debug().Str(log.FieldSource, u).Int(log.FieldStatus, out[i].Code)
			if out[i].Err != nil {
				ev = ev.Err(out[i].Err)
			}
			ev.Msg("source checked")
			return nil
		})
	}
	_ = g.Wait()
	return out
}
