// Package speedtest probes stream URLs and scores their responsiveness on a
// normalized [0,1] scale.
package speedtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"golang.org/x/time/rate"

	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/httpclient"
	"github.com/plextuner/iptv-collector/internal/safeurl"
)

const (
	// sampleSize is how much of an HLS response the probe asks for.
	sampleSize = 10 * 1024
	// minSample is how much must arrive for a stream to count as playing.
	minSample = 1024
)

// Config tunes the prober.
type Config struct {
	ConnectTimeout     time.Duration // HEAD and dial timeout for IPv4 hosts
	IPv6ConnectTimeout time.Duration // the same for IPv6 hosts, which are often slower to dial
	StreamTimeout      time.Duration // ranged GET timeout
	Workers            int
	PerHost            int     // concurrent probes against one host
	Rate               float64 // probes started per second; 0 is unlimited
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	if c.IPv6ConnectTimeout <= 0 {
		c.IPv6ConnectTimeout = 5 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 10 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 20
	}
	if c.PerHost <= 0 {
		c.PerHost = 4
	}
	return c
}

// Result is one probe outcome. A failed probe has Success false, Score 0 and Err set.
type Result struct {
	URL           string        `json:"url"`
	Success       bool          `json:"success"`
	Score         float64       `json:"score"`
	Err           string        `json:"error,omitempty"`
	Status        int           `json:"status,omitempty"`
	IPv6          bool          `json:"is_ipv6"`
	Connect       time.Duration `json:"connect"`
	Response      time.Duration `json:"response"`
	Total         time.Duration `json:"total"`
	Playlist      string        `json:"playlist,omitempty"`
	ContentType   string        `json:"content_type,omitempty"`
	ContentLength int64         `json:"content_length,omitempty"`
	Cached        bool          `json:"cached,omitempty"`
}

// Detail converts r to the form carried on merged sources.
func (r Result) Detail() catalog.ProbeDetail {
	return catalog.ProbeDetail{
		Success:        r.Success,
		Score:          r.Score,
		Error:          r.Err,
		ConnectSeconds: r.Connect.Seconds(),
		ResponseSecs:   r.Response.Seconds(),
		TotalSeconds:   r.Total.Seconds(),
		Playlist:       r.Playlist,
		Cached:         r.Cached,
	}
}

// Prober runs probes. It is safe for concurrent use.
type Prober struct {
	cfg     Config
	client  *http.Client
	hosts   *httpclient.HostSemaphore
	limiter *rate.Limiter
}

// New returns a Prober for cfg.
func New(cfg Config) *Prober {
	cfg = cfg.withDefaults()
	dial := cfg.ConnectTimeout
	if cfg.IPv6ConnectTimeout > dial {
		dial = cfg.IPv6ConnectTimeout
	}
	p := &Prober{
		cfg:    cfg,
		client: httpclient.NewProbeClient(dial),
		hosts:  httpclient.NewHostSemaphore(cfg.PerHost),
	}
	if cfg.Rate > 0 {
		burst := int(cfg.Rate)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return p
}

// Config returns the effective configuration.
func (p *Prober) Config() Config { return p.cfg }

func (p *Prober) connectTimeout(ipv6 bool) time.Duration {
	if ipv6 {
		return p.cfg.IPv6ConnectTimeout
	}
	return p.cfg.ConnectTimeout
}

// Probe measures one URL. It never returns an error; failures are folded into
// the Result. Only http and https URLs can be probed.
func (p *Prober) Probe(ctx context.Context, u string) Result {
	start := time.Now()
	ipv6 := safeurl.IsIPv6URL(u)
	var r Result
	switch {
	case !safeurl.IsHTTPOrHTTPS(u):
		r = Result{Err: "unsupported scheme"}
	case IsHLS(u):
		r = p.probeHLS(ctx, u, ipv6)
	default:
		r = p.probeHead(ctx, u, ipv6)
	}
	r.URL = u
	r.IPv6 = ipv6
	r.Total = time.Since(start)
	if !r.Success {
		r.Score = 0
	}
	return r
}

func (p *Prober) probeHLS(ctx context.Context, u string, ipv6 bool) Result {
	start := time.Now()

	// Warm-up HEAD; its outcome only feeds the connect timing.
	hctx, cancel := context.WithTimeout(ctx, p.connectTimeout(ipv6))
	if req, err := http.NewRequestWithContext(hctx, http.MethodHead, u, nil); err == nil {
		httpclient.SetProbeHeaders(req)
		if resp, err := p.client.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	cancel()

	partial := time.Now()
	gctx, cancel := context.WithTimeout(ctx, p.cfg.StreamTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(gctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{Err: err.Error()}
	}
	httpclient.SetProbeHeaders(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", sampleSize-1))
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Err: describe(err)}
	}
	defer resp.Body.Close()

	r := Result{
		Status:        resp.StatusCode,
		Connect:       partial.Sub(start),
		Response:      time.Since(partial),
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		r.Err = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return r
	}
	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(resp.Body, buf)
	complete := errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
	if err != nil && !complete {
		r.Err = describe(err)
		return r
	}
	body := buf[:n]
	r.Playlist = playlistKind(body)
	// A short body still plays when it is a whole playlist rather than a truncated read.
	if n < minSample && !(complete && r.Playlist != "") {
		r.Err = fmt.Sprintf("short read: %d bytes", n)
		return r
	}
	r.Success = true
	r.Score = HLSScore(u, HLSSample{
		Connect:       r.Connect,
		Response:      r.Response,
		ContentType:   r.ContentType,
		ContentLength: r.ContentLength,
	}, p.cfg.ConnectTimeout, ipv6)
	return r
}

func (p *Prober) probeHead(ctx context.Context, u string, ipv6 bool) Result {
	hctx, cancel := context.WithTimeout(ctx, p.connectTimeout(ipv6))
	defer cancel()
	req, err := http.NewRequestWithContext(hctx, http.MethodHead, u, nil)
	if err != nil {
		return Result{Err: err.Error()}
	}
	httpclient.SetProbeHeaders(req)
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Err: describe(err)}
	}
	resp.Body.Close()
	rt := time.Since(start)
	r := Result{
		Status:        resp.StatusCode,
		Connect:       rt,
		Response:      rt,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if resp.StatusCode >= 400 {
		r.Err = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return r
	}
	r.Success = true
	r.Score = HeadScore(rt, ipv6)
	return r
}

// playlistKind decodes body as HLS and names its type, or returns "".
func playlistKind(body []byte) string {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("#EXTM3U")) {
		return ""
	}
	pl, kind, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil || pl == nil {
		return ""
	}
	switch kind {
	case m3u8.MASTER:
		if master, ok := pl.(*m3u8.MasterPlaylist); ok && len(master.Variants) > 0 {
			return "master"
		}
	case m3u8.MEDIA:
		if media, ok := pl.(*m3u8.MediaPlaylist); ok && media.Count() > 0 {
			return "media"
		}
	}
	return ""
}

func describe(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		msg = msg[i+2:]
	}
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return "connection error: " + msg
}
