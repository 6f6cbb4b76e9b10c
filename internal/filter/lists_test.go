package filter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plextuner/iptv-collector/internal/catalog"
)

const sampleWhitelist = `# comment
url=http://w.example/cctv1.m3u8, name=CCTV1, group=央视, logo=http://l/1.png, quality=高清
url=http://w.example/bare.m3u8
https://cdn.example.org/live/stream.flv
https://portal.example.org/index.html
/.*4k.*\.m3u8/
*Keep.Me*
partial-host
/([bad/
`

func TestParseWhitelist(t *testing.T) {
	w, err := ParseWhitelist(strings.NewReader(sampleWhitelist))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://w.example/cctv1.m3u8",
		"http://w.example/bare.m3u8",
		"https://cdn.example.org/live/stream.flv",
		"https://portal.example.org/index.html",
	}, w.URLs())
	assert.Equal(t, []string{`/.*4k.*\.m3u8/`, "*Keep.Me*", "partial-host", "/([bad/"}, w.Patterns())
	assert.Equal(t, []string{"/([bad/"}, w.Invalid)

	require.Len(t, w.Channels, 3)
	assert.Equal(t, Channel{URL: "http://w.example/cctv1.m3u8", Name: "CCTV1", Group: "央视", Logo: "http://l/1.png", Quality: catalog.QualityHD}, w.Channels[0])
	assert.Equal(t, DefaultChannelName, w.Channels[1].Name)
	assert.Equal(t, DefaultChannelGroup, w.Channels[1].Group)
	assert.Equal(t, "白名单-cdn.example.org", w.Channels[2].Name)
}

func TestWhitelistMatch(t *testing.T) {
	w, err := ParseWhitelist(strings.NewReader(sampleWhitelist))
	require.NoError(t, err)
	tests := []struct {
		url  string
		want bool
	}{
		{"http://w.example/cctv1.m3u8", true},
		{"http://w.example/CCTV1.m3u8", false},
		{"http://x/CCTV-4K/index.m3u8", true},
		{"http://x/4k/index.ts", false},
		{"http://KEEP.me/a", true},
		{"http://a.partial-host.net/x", true},
		{"http://nothing/x", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Match(tt.url), tt.url)
	}
	var nilList *Whitelist
	assert.False(t, nilList.Match("http://w.example/cctv1.m3u8"))
}

func TestWhitelistEntriesAndPlaylists(t *testing.T) {
	w, err := ParseWhitelist(strings.NewReader(sampleWhitelist))
	require.NoError(t, err)
	entries := w.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.True(t, e.Whitelisted)
		assert.Equal(t, OriginWhitelist, e.Origin)
	}
	assert.Equal(t, []string{"http://w.example/cctv1.m3u8", "http://w.example/bare.m3u8"}, w.PlaylistURLs())
}

func TestLoadWhitelist_createsTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	w, created, err := LoadWhitelist(path, "2026-01-02 03:04:05")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, w.URLs())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# 生成时间: 2026-01-02 03:04:05")

	w, created, err = LoadWhitelist(path, "later")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, w.URLs())
	assert.Empty(t, w.Patterns())
}

func TestBlacklistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	b, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())

	assert.Equal(t, 4, b.Add(
		"http://b.cdn.example.com/x.m3u8",
		"http://a.example.com/y.m3u8",
		"http://10.0.0.1:8080/z",
		"not a url",
	))
	assert.Equal(t, 0, b.Add("http://a.example.com/y.m3u8"))
	require.NoError(t, SaveBlacklist(path, b, Header{Generated: "2026-01-02 03:04:05", Reason: "超时", Enabled: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# 过滤原因: 超时")
	assert.Contains(t, text, "# 黑名单功能: 启用")
	assert.Contains(t, text, "# 域名: example.com\nhttp://a.example.com/y.m3u8\nhttp://b.cdn.example.com/x.m3u8\n")
	assert.Contains(t, text, "# 域名: 10.0.0.1:8080\nhttp://10.0.0.1:8080/z\n")
	assert.Contains(t, text, "# 未知域名\nnot a url\n")
	assert.Less(t, strings.Index(text, "# 未知域名"), strings.Index(text, "# 域名: 10.0.0.1"))

	again, err := LoadBlacklist(path)
	require.NoError(t, err)
	assert.Equal(t, b.URLs(), again.URLs())
}

func TestBlacklistUnion(t *testing.T) {
	b := NewBlacklist("http://a/1")
	u := b.Union("http://b/2", "http://a/1")
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, []string{"http://a/1", "http://b/2"}, u.URLs())
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.co.uk", Domain("http://live.tv.example.co.uk/a"))
	assert.Equal(t, "[2409::1]:80", Domain("http://[2409::1]:80/a"))
	assert.Equal(t, "", Domain("::::"))
}

func TestWriteBlacklist_disabledHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlacklist(&buf, NewBlacklist(), Header{}))
	assert.Contains(t, buf.String(), "# 黑名单功能: 禁用")
}
