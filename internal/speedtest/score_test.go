package speedtest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIsHLS(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://a/live.m3u8", true},
		{"http://a/LIVE.M3U8", true},
		{"http://a/live.m3u8?token=1", true},
		{"http://a/live.m3u", false},
		{"http://a/live.ts", false},
		{"http://a/m3u8/live.flv", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHLS(tt.url), tt.url)
	}
}

func TestHLSScore(t *testing.T) {
	best := HLSSample{ContentType: "application/vnd.apple.mpegurl", ContentLength: 100}
	assert.InDelta(t, 1.0, HLSScore("http://a/b.m3u8", best, 3*time.Second, false), 1e-9)

	mid := HLSSample{Connect: 3 * time.Second, Response: 2 * time.Second}
	assert.InDelta(t, 0.38, HLSScore("http://a/b.m3u8", mid, 3*time.Second, false), 1e-9)
	assert.InDelta(t, 0.58, HLSScore("http://a/b.m3u8", mid, 3*time.Second, true), 1e-9)

	worst := HLSSample{Connect: time.Minute, Response: time.Minute}
	assert.InDelta(t, 0.08, HLSScore("http://a/b.M3U8", worst, 3*time.Second, false), 1e-9)
	assert.InDelta(t, 1.0, HLSScore("http://a/b.m3u8", best, 3*time.Second, true), 1e-9, "clamped")
}

func TestHeadScore(t *testing.T) {
	assert.InDelta(t, 0.7, HeadScore(0, false), 1e-9)
	assert.InDelta(t, 0.5, HeadScore(time.Second, false), 1e-9)
	assert.InDelta(t, 0.0, HeadScore(10*time.Second, false), 1e-9)
	assert.InDelta(t, 0.9, HeadScore(0, true), 1e-9)
	assert.InDelta(t, 0.2, HeadScore(time.Minute, true), 1e-9)
}

func TestOrder(t *testing.T) {
	white := map[string]bool{"http://w/a.m3u8": true, "http://w/b": true}
	in := []string{"http://p/c", "http://p/d.m3u8", "http://w/b", "http://w/a.m3u8", "http://p/e.m3u8?x=1", "http://p/f"}
	want := []string{"http://w/a.m3u8", "http://p/d.m3u8", "http://p/e.m3u8?x=1", "http://w/b", "http://p/c", "http://p/f"}
	got := Order(in, func(u string) bool { return white[u] })
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"http://p/d.m3u8", "http://p/c"}, Order([]string{"http://p/c", "http://p/d.m3u8"}, nil)); diff != "" {
		t.Errorf("Order(nil) mismatch (-want +got):\n%s", diff)
	}
}
