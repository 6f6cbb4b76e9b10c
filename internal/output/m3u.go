package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/plextuner/iptv-collector/internal/catalog"
)

// Mode selects how a channel's sources are laid out in a playlist.
type Mode int

const (
	// Multi writes one entry per channel with every URL joined by "|".
	Multi Mode = iota
	// Separate writes one entry per source under the same channel name.
	Separate
	// Single writes one entry per channel with its best source.
	Single
)

func (m Mode) String() string {
	switch m {
	case Multi:
		return "multi"
	case Separate:
		return "separate"
	case Single:
		return "single"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

var modeTitles = map[Mode][]string{
	Multi: {
		"电视直播源 - IPv6优先多源合并版",
		"每个电视台只显示一个条目，IPv6源优先排列，白名单源标记",
		"播放器切换源方法：PotPlayer按Alt+W，VLC右键选择源",
		"排序规则：IPv6源 > 白名单源 > 4K > 高清 > 标清 > 流畅",
	},
	Separate: {
		"电视直播源 - IPv6优先多源分离版",
		"同名电视台显示为多个条目，IPv6源优先，播放器自动合并",
	},
	Single: {
		"电视直播源 - IPv6优先精简版",
		"每个电视台只保留最佳源（IPv6优先，白名单优先）",
	},
}

func onOff(b bool) string {
	if b {
		return "启用"
	}
	return "禁用"
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// WritePlaylist renders sections as one playlist in the given mode.
func WritePlaylist(w io.Writer, mode Mode, sections []Section, meta Meta) error {
	bw := bufio.NewWriter(w)
	cfg := meta.Config
	total := 0
	for _, s := range sections {
		total += len(s.Channels)
	}

	bw.WriteString("#EXTM3U\n")
	for _, line := range modeTitles[mode] {
		fmt.Fprintf(bw, "# %s\n", line)
	}
	fmt.Fprintf(bw, "# 更新时间: %s\n", meta.Timestamp())
	fmt.Fprintf(bw, "# 电视台总数: %d\n", total)
	fmt.Fprintf(bw, "# 数据源: %d 个 (成功: %d, 失败: %d)\n", meta.Sources, meta.SuccessSources, len(meta.FailedSources))
	fmt.Fprintf(bw, "# 黑名单功能: %s\n", onOff(cfg.EnableBlacklist))
	fmt.Fprintf(bw, "# 白名单功能: %s\n", onOff(cfg.EnableWhitelist))
	fmt.Fprintf(bw, "# 测速功能: %s\n", onOff(cfg.EnableSpeedTest))
	if cfg.EnableWhitelist {
		fmt.Fprintf(bw, "# 白名单文件: %s\n", cfg.WhitelistFile)
		fmt.Fprintf(bw, "# 覆盖黑名单: %s\n", yesNo(cfg.WhitelistOverrideBlacklist))
		fmt.Fprintf(bw, "# 忽略测速: %s\n", yesNo(cfg.WhitelistIgnoreSpeedTest))
		fmt.Fprintf(bw, "# 自动加入: %s\n", yesNo(cfg.WhitelistAutoAdd))
	}
	if cfg.EnableSpeedTest {
		fmt.Fprintf(bw, "# 已过滤低质量源（评分 < %g）\n", cfg.MinSpeedScore)
	}
	bw.WriteString("\n")

	for _, s := range sections {
		if len(s.Channels) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n# 分类: %s (%d个频道)\n", s.Label, len(s.Channels))
		for _, ch := range s.Channels {
			if len(ch.Sources) == 0 {
				continue
			}
			switch mode {
			case Multi:
				writeMulti(bw, s.Label, ch, cfg.EnableSpeedTest)
			case Separate:
				writeSeparate(bw, s.Label, ch, cfg.EnableSpeedTest)
			default:
				writeSingle(bw, s.Label, ch, cfg.EnableSpeedTest)
			}
		}
	}
	return bw.Flush()
}

// WriteCategory renders one category in multi mode with a short header.
func WriteCategory(w io.Writer, s Section, meta Meta) error {
	bw := bufio.NewWriter(w)
	cfg := meta.Config
	bw.WriteString("#EXTM3U\n")
	fmt.Fprintf(bw, "# %s频道列表（IPv6优先多源合并版）\n", s.Label)
	fmt.Fprintf(bw, "# 更新时间: %s\n", meta.Timestamp())
	fmt.Fprintf(bw, "# 电视台数量: %d\n", len(s.Channels))
	if cfg.EnableSpeedTest {
		fmt.Fprintf(bw, "# 已过滤低质量源（评分 < %g）\n", cfg.MinSpeedScore)
	}
	fmt.Fprintf(bw, "# 黑名单功能: %s\n", onOff(cfg.EnableBlacklist))
	fmt.Fprintf(bw, "# 白名单功能: %s\n", onOff(cfg.EnableWhitelist))
	fmt.Fprintf(bw, "# 测速功能: %s\n\n", onOff(cfg.EnableSpeedTest))
	for _, ch := range s.Channels {
		if len(ch.Sources) > 0 {
			writeMulti(bw, s.Label, ch, cfg.EnableSpeedTest)
		}
	}
	return bw.Flush()
}

// extinf builds the attribute part of an #EXTINF line.
type extinf struct {
	b strings.Builder
}

func newEXTINF(name, group, logo string) *extinf {
	e := &extinf{}
	e.b.WriteString("#EXTINF:-1")
	e.attr("tvg-name", name)
	e.attr("group-title", group)
	if logo != "" {
		e.attr("tvg-logo", logo)
	}
	return e
}

func (e *extinf) attr(key, value string) {
	fmt.Fprintf(&e.b, ` %s="%s"`, key, strings.ReplaceAll(value, `"`, "'"))
}

func (e *extinf) flags(s catalog.SourceRecord) {
	if s.IsIPv6 {
		e.attr("tvg-ipv6", "true")
	}
	if s.Whitelisted {
		e.attr("tvg-whitelist", "true")
	}
}

func (e *extinf) write(w *bufio.Writer, title, url string) {
	fmt.Fprintf(w, "%s,%s\n%s\n", e.b.String(), title, url)
}

// SourceTag summarizes a channel's sources, for example "2IPv6+1白名单+3源".
func SourceTag(ch *catalog.LogicalChannel, speedTest bool) string {
	total := len(ch.Sources)
	v6, white := ch.CountIPv6(), ch.CountWhitelisted()
	var parts []string
	if v6 > 0 {
		parts = append(parts, fmt.Sprintf("%dIPv6", v6))
	}
	if white > 0 {
		parts = append(parts, fmt.Sprintf("%d白名单", white))
	}
	if fast := ch.CountFast(FastScore); fast > 0 && speedTest {
		parts = append(parts, fmt.Sprintf("%d高速", fast))
	}
	if total > v6+white {
		parts = append(parts, fmt.Sprintf("%d源", total))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d源", total)
	}
	return strings.Join(parts, "+")
}

// qualitySummary lists the distinct known qualities, best first, "/"-joined.
func qualitySummary(sources []catalog.SourceRecord) string {
	seen := make(map[catalog.Quality]bool)
	var qs []catalog.Quality
	for _, s := range sources {
		if s.Quality != catalog.QualityUnknown && !seen[s.Quality] {
			seen[s.Quality] = true
			qs = append(qs, s.Quality)
		}
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i] > qs[j] })
	labels := make([]string, len(qs))
	for i, q := range qs {
		labels[i] = q.Label()
	}
	return strings.Join(labels, "/")
}

func writeMulti(w *bufio.Writer, label string, ch *catalog.LogicalChannel, speedTest bool) {
	sources := renderOrder(ch)
	urls := make([]string, len(sources))
	for i, s := range sources {
		urls[i] = s.URL
	}
	e := newEXTINF(ch.CleanName, label, ch.MainLogo())
	if q := qualitySummary(sources); q != "" {
		e.attr("tvg-quality", q)
	}
	if ch.CountIPv6() > 0 {
		e.attr("tvg-ipv6", "true")
	}
	if ch.CountWhitelisted() > 0 {
		e.attr("tvg-whitelist", "true")
	}
	e.write(w, fmt.Sprintf("%s [%s]", ch.CleanName, SourceTag(ch, speedTest)), strings.Join(urls, "|"))
}

func scoreSuffix(s catalog.SourceRecord, speedTest bool) string {
	if !speedTest || s.Score() <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%.2f)", s.Score())
}

func writeSeparate(w *bufio.Writer, label string, ch *catalog.LogicalChannel, speedTest bool) {
	sources := renderOrder(ch)
	for i, s := range sources {
		e := newEXTINF(ch.CleanName, label, ch.MainLogo())
		if s.Quality != catalog.QualityUnknown {
			e.attr("tvg-quality", s.Quality.Label())
		}
		e.flags(s)
		title := ch.CleanName + scoreSuffix(s, speedTest)
		if len(sources) > 1 {
			kind := ""
			if s.IsIPv6 {
				kind += "IPv6"
			}
			if s.Whitelisted {
				kind += "白名单"
			}
			if kind == "" {
				kind = "普通"
			}
			title = fmt.Sprintf("%s [%s源%d%s]", ch.CleanName, kind, i+1, scoreSuffix(s, speedTest))
		}
		e.write(w, title, s.URL)
	}
}

func writeSingle(w *bufio.Writer, label string, ch *catalog.LogicalChannel, speedTest bool) {
	s := Best(ch, speedTest)
	e := newEXTINF(ch.CleanName, label, ch.MainLogo())
	if s.Quality != catalog.QualityUnknown {
		e.attr("tvg-quality", s.Quality.Label())
	}
	title := ch.CleanName
	e.flags(s)
	if s.IsIPv6 {
		title += " [IPv6]"
	}
	if s.Whitelisted {
		title += " [白名单]"
	}
	if suffix := scoreSuffix(s, speedTest); suffix != "" {
		e.attr("tvg-score", fmt.Sprintf("%.2f", s.Score()))
		title += suffix
	}
	e.write(w, title, s.URL)
}
