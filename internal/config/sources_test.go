package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plextuner/iptv-collector/internal/category"
)

func TestParseSources(t *testing.T) {
	in := `# feeds
https://a.example/live.m3u

ftp://b.example/x.m3u
http://c.example/tv.txt
https://a.example/live.m3u
`
	urls, warns, err := ParseSources(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/live.m3u", "http://c.example/tv.txt"}, urls)
	require.Len(t, warns, 1)
	assert.Equal(t, 4, warns[0].Line)
}

func TestLoadSources_missing(t *testing.T) {
	_, _, err := LoadSources(filepath.Join(t.TempDir(), "sources.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist), err)
}

func TestParseRules(t *testing.T) {
	doc := `categories:
  - name: 购物
    patterns: ["购物$", "导视"]
  - name: 地方新闻
    before: true
    patterns: ["新闻综合$"]
`
	rules, err := ParseRules([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []category.Rule{
		{Label: "购物", Patterns: []string{"购物$", "导视"}},
		{Label: "地方新闻", Patterns: []string{"新闻综合$"}, Before: true},
	}, rules)

	_, err = ParseRules([]byte("categories:\n  - patterns: [x]\n"))
	assert.ErrorContains(t, err, "missing name")
	_, err = ParseRules([]byte("categories:\n  - name: x\n"))
	assert.ErrorContains(t, err, "no patterns")
	_, err = ParseRules([]byte("categories: [\n"))
	assert.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Nil(t, rules)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: 购物\n    patterns: [购物]\n"), 0o644))
	rules, err = LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "购物", rules[0].Label)
}
