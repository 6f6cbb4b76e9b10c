package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plextuner/iptv-collector/internal/collector"
	"github.com/plextuner/iptv-collector/internal/health"
	"github.com/plextuner/iptv-collector/internal/speedtest"
)

func TestGlobalFlagsPaths(t *testing.T) {
	g := globalFlags{dir: "/srv/iptv"}
	assert.Equal(t, "/srv/iptv/config.txt", g.configPath())
	assert.Equal(t, "/srv/iptv/sources.txt", g.path("sources.txt"))
	assert.Equal(t, "/etc/blacklist.txt", g.path("/etc/blacklist.txt"))
	assert.Empty(t, g.path(""))
	g.config = "other.txt"
	assert.Equal(t, "other.txt", g.configPath())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.txt"),
		[]byte("MIN_SPEED_SCORE=0.6\nMAX_WORKERS=abc\n"), 0o644))
	t.Setenv("IPTV_COLLECTOR_OUTPUT_DIR", "public")

	g := globalFlags{dir: dir}
	cfg, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.MinSpeedScore)
	assert.Equal(t, 20, cfg.MaxWorkers, "bad value keeps the default")
	assert.Equal(t, "public", cfg.OutputDir)
}

func TestPrintReport(t *testing.T) {
	start := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printReport(&buf, &collector.Report{
		RunID:          "run-1",
		Started:        start,
		Finished:       start.Add(1500 * time.Millisecond),
		Sources:        2,
		SuccessSources: 1,
		FailedSources:  []string{"http://bad/list.m3u"},
		Channels:       7,
		Warnings:       []string{"save blacklist: disk full"},
	})
	out := buf.String()
	assert.Contains(t, out, "run run-1 finished in 1.5s")
	assert.Contains(t, out, "1 ok, 1 failed of 2")
	assert.Contains(t, out, "failed:  http://bad/list.m3u")
	assert.Contains(t, out, "channels:  7")
	assert.Contains(t, out, "warning:   save blacklist: disk full")
}

func TestPrintStatuses(t *testing.T) {
	var buf bytes.Buffer
	failed := printStatuses(&buf, []health.Status{
		{URL: "http://a/list.m3u", Code: 200, Playlist: true},
		{URL: "http://b/list.m3u", Code: 200},
		{URL: "http://c/list.m3u", Err: errors.New("HTTP 404")},
	})
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "does not look like a playlist")
	assert.Contains(t, buf.String(), "HTTP 404")
}

func TestPrintProbes(t *testing.T) {
	var buf bytes.Buffer
	printProbes(&buf, []speedtest.Result{
		{URL: "http://a/1.m3u8", Success: true, Score: 0.9, Status: 200, Playlist: "media"},
		{URL: "http://a/2.m3u8", Success: true, Score: 0.3, Status: 206},
		{URL: "http://a/3.m3u8", Err: "timeout"},
	}, 0.5)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.True(t, bytes.HasPrefix(lines[1], []byte("ok ")))
	assert.True(t, bytes.HasPrefix(lines[2], []byte("slow ")))
	assert.True(t, bytes.HasPrefix(lines[3], []byte("fail ")))
	assert.Contains(t, string(lines[3]), "timeout")
}
