package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plextuner/iptv-collector/internal/catalog"
)

func policy(t *testing.T, white string, black []string, cfg Config) Policy {
	t.Helper()
	w, err := ParseWhitelist(strings.NewReader(white))
	require.NoError(t, err)
	return Policy{Config: cfg, Whitelist: w, Blacklist: NewBlacklist(black...)}
}

var allOn = Config{EnableBlacklist: true, EnableWhitelist: true, WhitelistOverridesBlack: true, WhitelistIgnoresSpeedTest: true, MinSpeedScore: 0.5}

func TestDecide(t *testing.T) {
	const u = "http://a.example.com/live.m3u8"
	tests := []struct {
		name  string
		white string
		black []string
		cfg   Config
		want  Decision
	}{
		{"neither", "", nil, allOn, Allowed},
		{"blacklisted", "", []string{u}, allOn, Denied},
		{"whitelisted", "*example.com*", nil, allOn, Allowed},
		{"both with override", "*example.com*", []string{u}, allOn, AllowedByWhitelist},
		{"both without override", "*example.com*", []string{u}, Config{EnableBlacklist: true, EnableWhitelist: true}, Denied},
		{"blacklist disabled", "", []string{u}, Config{EnableWhitelist: true}, Allowed},
		{"whitelist disabled", "*example.com*", []string{u}, Config{EnableBlacklist: true, WhitelistOverridesBlack: true}, Denied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := policy(t, tt.white, tt.black, tt.cfg)
			assert.Equal(t, tt.want, p.Decide(u))
			assert.Equal(t, tt.want != Denied, p.IsAllowed(u))
		})
	}
}

func TestSlow(t *testing.T) {
	p := policy(t, "*keep*", nil, allOn)
	assert.True(t, p.Slow("http://x/a", false, 0))
	assert.True(t, p.Slow("http://x/a", true, 0.49))
	assert.False(t, p.Slow("http://x/a", true, 0.5))
	assert.False(t, p.Slow("http://keep/a", false, 0), "whitelist waives speed test")

	p.Config.WhitelistIgnoresSpeedTest = false
	assert.True(t, p.Slow("http://keep/a", false, 0))
}

func TestApply(t *testing.T) {
	p := policy(t, "https://w.example/keep.m3u8", []string{"http://b/1", "https://w.example/keep.m3u8"}, allOn)
	in := []catalog.RawEntry{
		{OriginalName: "a", URL: "http://ok/1"},
		{OriginalName: "b", URL: "http://b/1"},
		{OriginalName: "c", URL: "https://w.example/keep.m3u8"},
	}
	out, st := p.Apply(in)
	require.Len(t, out, 2)
	assert.Equal(t, "http://ok/1", out[0].URL)
	assert.True(t, out[1].Whitelisted)
	assert.Equal(t, Stats{Kept: 2, Blacklisted: 1, Rescued: 1, Whitelisted: 1}, st)
}
