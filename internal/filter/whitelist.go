package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/plextuner/iptv-collector/internal/atomicfile"
	"github.com/plextuner/iptv-collector/internal/catalog"
)

// Defaults for whitelist channel definitions that omit a field.
const (
	DefaultChannelName  = "白名单频道"
	DefaultChannelGroup = "白名单"
	OriginWhitelist     = "whitelist"
)

// Channel is a stream the whitelist defines outright.
type Channel struct {
	URL     string
	Name    string
	Group   string
	Logo    string
	Quality catalog.Quality
}

type patternKind int

const (
	kindWildcard patternKind = iota
	kindRegex
	kindSubstring
)

type pattern struct {
	raw  string
	kind patternKind
	lit  string         // lower-cased needle for wildcard and substring
	re   *regexp.Regexp // nil for a regex that did not compile
}

// Whitelist holds user-curated URLs and URL patterns that are always kept.
type Whitelist struct {
	urls     map[string]struct{}
	urlOrder []string
	patterns []pattern
	seen     map[string]struct{}
	Channels []Channel
	// Invalid lists /regex/ patterns that did not compile; they never match.
	Invalid []string
}

// NewWhitelist returns an empty whitelist.
func NewWhitelist() *Whitelist {
	return &Whitelist{urls: make(map[string]struct{}), seen: make(map[string]struct{})}
}

var streamExts = []string{".m3u8", ".m3u", ".ts", ".flv", ".rtmp", ".rtsp"}

// ParseWhitelist reads the line format:
//
//	url=<u>, name=<n>, group=<g>, logo=<l>, quality=<q>   channel definition
//	http(s)://...                                         exact URL
//	/regex/                                               regex over the lower-cased URL
//	*text* or text                                        substring
//
// Blank lines and lines starting with # are skipped.
func ParseWhitelist(r io.Reader) (*Whitelist, error) {
	w := NewWhitelist()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "url="):
			w.addDefinition(line)
		case strings.HasPrefix(line, "http://"), strings.HasPrefix(line, "https://"):
			w.AddURL(line)
			lower := strings.ToLower(line)
			for _, ext := range streamExts {
				if strings.Contains(lower, ext) {
					w.Channels = append(w.Channels, Channel{
						URL:   line,
						Name:  "白名单-" + netloc(line),
						Group: DefaultChannelGroup,
					})
					break
				}
			}
		default:
			w.AddPattern(line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}
	return w, nil
}

func (w *Whitelist) addDefinition(line string) {
	params := make(map[string]string)
	for _, part := range strings.Split(line, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	u := params["url"]
	if u == "" {
		return
	}
	ch := Channel{
		URL:     u,
		Name:    params["name"],
		Group:   params["group"],
		Logo:    params["logo"],
		Quality: catalog.ParseQuality(params["quality"]),
	}
	if ch.Name == "" {
		ch.Name = DefaultChannelName
	}
	if ch.Group == "" {
		ch.Group = DefaultChannelGroup
	}
	w.Channels = append(w.Channels, ch)
	w.AddURL(u)
}

// AddURL whitelists one exact URL.
func (w *Whitelist) AddURL(u string) {
	if _, ok := w.urls[u]; ok {
		return
	}
	w.urls[u] = struct{}{}
	w.urlOrder = append(w.urlOrder, u)
}

// AddPattern whitelists a wildcard, /regex/ or substring pattern. Duplicates are ignored.
func (w *Whitelist) AddPattern(raw string) {
	if _, ok := w.seen[raw]; ok {
		return
	}
	w.seen[raw] = struct{}{}
	p := pattern{raw: raw, kind: kindSubstring, lit: strings.ToLower(raw)}
	switch {
	case len(raw) >= 2 && strings.HasPrefix(raw, "*") && strings.HasSuffix(raw, "*"):
		p.kind = kindWildcard
		p.lit = strings.ToLower(raw[1 : len(raw)-1])
	case len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/"):
		p.kind = kindRegex
		re, err := regexp.Compile(raw[1 : len(raw)-1])
		if err != nil {
			w.Invalid = append(w.Invalid, raw)
		} else {
			p.re = re
		}
	}
	w.patterns = append(w.patterns, p)
}

// Match reports whether u is whitelisted: an exact URL first, then each pattern
// in file order.
func (w *Whitelist) Match(u string) bool {
	if w == nil {
		return false
	}
	if _, ok := w.urls[u]; ok {
		return true
	}
	lower := strings.ToLower(u)
	for _, p := range w.patterns {
		switch p.kind {
		case kindWildcard, kindSubstring:
			if strings.Contains(lower, p.lit) {
				return true
			}
		case kindRegex:
			if p.re != nil && p.re.MatchString(lower) {
				return true
			}
		}
	}
	return false
}

// URLs returns the exact URLs in file order.
func (w *Whitelist) URLs() []string {
	if w == nil {
		return nil
	}
	return append([]string(nil), w.urlOrder...)
}

// Patterns returns the raw patterns in file order.
func (w *Whitelist) Patterns() []string {
	if w == nil {
		return nil
	}
	out := make([]string, len(w.patterns))
	for i, p := range w.patterns {
		out[i] = p.raw
	}
	return out
}

// Entries turns the channel definitions into raw entries flagged as whitelisted.
func (w *Whitelist) Entries() []catalog.RawEntry {
	if w == nil {
		return nil
	}
	out := make([]catalog.RawEntry, 0, len(w.Channels))
	for _, ch := range w.Channels {
		out = append(out, catalog.RawEntry{
			OriginalName: ch.Name,
			URL:          ch.URL,
			Group:        ch.Group,
			Logo:         ch.Logo,
			Quality:      ch.Quality,
			Origin:       OriginWhitelist,
			Whitelisted:  true,
		})
	}
	return out
}

// PlaylistURLs returns whitelisted URLs that point at playlists worth fetching.
func (w *Whitelist) PlaylistURLs() []string {
	var out []string
	for _, u := range w.URLs() {
		if strings.Contains(strings.ToLower(u), ".m3u") {
			out = append(out, u)
		}
	}
	return out
}

const whitelistTemplate = `# 直播源白名单
# 该文件包含永不删除的直播源
# 支持格式:
# 1. 规则匹配: *example.com* (匹配所有包含example.com的URL)
# 2. 完整URL: https://example.com/live.m3u8
# 3. 频道定义: url=https://example.com/live.m3u8, name=频道名称, group=分组, logo=logo.png
# 4. 正则表达式: /.*cctv.*\.m3u8/
# 生成时间: %s
# 配置文件: config.txt

# 示例:
# *cctv.com*
# https://example.com/important-stream.m3u8
# url=https://example.com/live.m3u8, name=测试频道, group=测试分组, logo=http://example.com/logo.png
# /.*4k.*\.m3u8/

`

// LoadWhitelist reads path. A missing file is created from a commented template
// stamped with now, and an empty whitelist is returned with created set.
func LoadWhitelist(path, now string) (w *Whitelist, created bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := atomicfile.WriteBytes(path, []byte(fmt.Sprintf(whitelistTemplate, now))); err != nil {
			return NewWhitelist(), false, fmt.Errorf("create whitelist %s: %w", path, err)
		}
		return NewWhitelist(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open whitelist %s: %w", path, err)
	}
	defer f.Close()
	w, err = ParseWhitelist(f)
	if err != nil {
		return nil, false, fmt.Errorf("whitelist %s: %w", path, err)
	}
	return w, false, nil
}

func netloc(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
