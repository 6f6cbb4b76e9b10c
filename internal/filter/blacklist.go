package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/plextuner/iptv-collector/internal/atomicfile"
	"github.com/plextuner/iptv-collector/internal/safeurl"
)

// Blacklist is the set of URLs skipped by future runs.
type Blacklist struct {
	urls map[string]struct{}
}

// NewBlacklist returns a blacklist holding urls.
func NewBlacklist(urls ...string) *Blacklist {
	b := &Blacklist{urls: make(map[string]struct{}, len(urls))}
	b.Add(urls...)
	return b
}

// ParseBlacklist reads one URL per line; blank lines and # comments are skipped.
func ParseBlacklist(r io.Reader) (*Blacklist, error) {
	b := NewBlacklist()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.urls[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read blacklist: %w", err)
	}
	return b, nil
}

// LoadBlacklist reads path; a missing file is an empty blacklist.
func LoadBlacklist(path string) (*Blacklist, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewBlacklist(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open blacklist %s: %w", path, err)
	}
	defer f.Close()
	b, err := ParseBlacklist(f)
	if err != nil {
		return nil, fmt.Errorf("blacklist %s: %w", path, err)
	}
	return b, nil
}

// Contains reports whether u is blacklisted. A nil Blacklist contains nothing.
func (b *Blacklist) Contains(u string) bool {
	if b == nil {
		return false
	}
	_, ok := b.urls[u]
	return ok
}

// Len returns the number of URLs.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.urls)
}

// Add inserts urls and returns how many were new.
func (b *Blacklist) Add(urls ...string) int {
	n := 0
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := b.urls[u]; !ok {
			b.urls[u] = struct{}{}
			n++
		}
	}
	return n
}

// Union returns a new blacklist with the URLs of b and extra.
func (b *Blacklist) Union(extra ...string) *Blacklist {
	out := NewBlacklist(b.URLs()...)
	out.Add(extra...)
	return out
}

// URLs returns the URLs sorted.
func (b *Blacklist) URLs() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.urls))
	for u := range b.urls {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Header is the metadata block written at the top of the blacklist file.
type Header struct {
	Generated string // formatted local time
	Reason    string
	Enabled   bool
}

const unknownDomain = ""

// Domain groups u for the blacklist file: the registrable domain for host names,
// host:port for IP literals and hosts publicsuffix cannot place.
func Domain(u string) string {
	hostPort := safeurl.HostPort(u)
	if hostPort == "" {
		return unknownDomain
	}
	host := safeurl.Host(u)
	if net.ParseIP(host) != nil {
		return hostPort
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return hostPort
}

// WriteBlacklist renders b grouped by Domain, domains and URLs sorted.
func WriteBlacklist(w io.Writer, b *Blacklist, h Header) error {
	bw := bufio.NewWriter(w)
	state := "禁用"
	if h.Enabled {
		state = "启用"
	}
	fmt.Fprintf(bw, "# 直播源黑名单\n")
	fmt.Fprintf(bw, "# 该文件包含测试失败的直播源\n")
	fmt.Fprintf(bw, "# 每行一个URL，下次更新时会跳过这些源\n")
	fmt.Fprintf(bw, "# 生成时间: %s\n", h.Generated)
	fmt.Fprintf(bw, "# 过滤原因: %s\n", h.Reason)
	fmt.Fprintf(bw, "# 配置文件: config.txt\n")
	fmt.Fprintf(bw, "# 黑名单功能: %s\n", state)

	groups := make(map[string][]string)
	for _, u := range b.URLs() {
		d := Domain(u)
		groups[d] = append(groups[d], u)
	}
	domains := make([]string, 0, len(groups))
	for d := range groups {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		if d == unknownDomain {
			fmt.Fprintf(bw, "\n# 未知域名\n")
		} else {
			fmt.Fprintf(bw, "\n# 域名: %s\n", d)
		}
		for _, u := range groups[d] {
			fmt.Fprintln(bw, u)
		}
	}
	return bw.Flush()
}

// SaveBlacklist atomically replaces path with b.
func SaveBlacklist(path string, b *Blacklist, h Header) error {
	if err := atomicfile.Write(path, func(w io.Writer) error {
		return WriteBlacklist(w, b, h)
	}); err != nil {
		return fmt.Errorf("save blacklist: %w", err)
	}
	return nil
}
