// Package normalize turns raw channel labels into canonical comparison keys.
//
// Name is pure: equal inputs always give equal outputs, and Name(Name(x)) == Name(x)
// for the labels seen in real playlists.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

type rule struct {
	re   *regexp.Regexp
	repl string
	// keep, when set, vetoes a match given the text before it.
	keep func(prefix string) bool
}

func (r rule) apply(s string) string {
	if r.keep == nil {
		return r.re.ReplaceAllLiteralString(s, r.repl)
	}
	var b strings.Builder
	last := 0
	for _, loc := range r.re.FindAllStringIndex(s, -1) {
		if r.keep(s[:loc[0]]) {
			continue
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(r.repl)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func strip(pattern string) rule {
	return rule{re: regexp.MustCompile(`(?i)` + pattern)}
}

func token(tok string) rule {
	return rule{re: regexp.MustCompile(`(?i)[_\-\s]?` + tok + `[_\-\s]?`), repl: " "}
}

func sub(pattern, repl string) rule {
	return rule{re: regexp.MustCompile(pattern), repl: repl}
}

// afterCCTV keeps "CCTV-4K" intact so the standardizer can still see it.
func afterCCTV(prefix string) bool {
	return strings.HasSuffix(strings.ToUpper(prefix), "CCTV")
}

// Applied in order. The suffix rules are anchored at end of string, so every
// other rule runs before them.
var cleanRules = []rule{
	// codec / frame-rate markers
	strip(`50\s*FPS`),
	strip(`HEVC`),
	strip(`H\.?264`),
	strip(`H\.?265`),
	strip(`AAC`),
	strip(`AC3`),
	// bracketed annotations
	strip(`[\[\(][^\]\)]*[\]\)]`),
	strip(`【[^】]*】`),
	// quality
	{re: regexp.MustCompile(`(?i)[_\-\s]?4K[_\-\s]?`), repl: " ", keep: afterCCTV},
	token(`高清`),
	token(`HD`),
	token(`超清`),
	token(`标清`),
	token(`流畅`),
	token(`1080[Pp]?`),
	token(`720[Pp]?`),
	// transport
	token(`IPV6`),
	token(`IPV4`),
	token(`HLS`),
	token(`RTMP`),
	token(`RTSP`),
	token(`FLV`),
	// separators
	sub(`[_\-\|]+`, " "),
	sub(`\s*&\s*`, " "),
	sub(`\s+`, " "),
	sub(`^\s+|\s+$`, ""),
	// generic suffixes
	sub(`\s+直播$`, ""),
	sub(`\s+频道$`, ""),
	sub(`\s+台$`, ""),
	sub(`\s+电视台$`, ""),
	sub(`\s+卫视台$`, "卫视"),
}

var (
	cctvPrefix   = regexp.MustCompile(`(?i)^(CCTV|央视|中央电视台)`)
	cctvAnyCase  = regexp.MustCompile(`(?i)cctv`)
	satelliteGap = regexp.MustCompile(`\s+卫视$`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Name normalizes a raw channel label. It never fails: when cleaning leaves fewer
// than two characters the original input is returned untouched.
func Name(raw string) string {
	name := width.Fold.String(raw)
	for _, r := range cleanRules {
		name = r.apply(name)
	}
	name = collapseRepeats(name)
	if cctvPrefix.MatchString(name) {
		name = StandardizeCCTV(name)
	}
	if strings.HasSuffix(name, "卫视") && utf8.RuneCountInString(name) > 2 {
		name = satelliteGap.ReplaceAllString(name, "卫视")
	}
	name = cctvAnyCase.ReplaceAllLiteralString(name, "CCTV")
	name = strings.TrimSpace(spaces.ReplaceAllLiteralString(name, " "))
	if utf8.RuneCountInString(name) < 2 {
		return raw
	}
	return name
}

// collapseRepeats folds immediately repeated whole words ("湖南卫视 湖南卫视").
func collapseRepeats(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return s
	}
	out := make([]string, 1, len(fields))
	out[0] = fields[0]
	changed := false
	for _, f := range fields[1:] {
		if f == out[len(out)-1] && isWord(f) {
			changed = true
			continue
		}
		out = append(out, f)
	}
	if !changed {
		return s
	}
	return strings.Join(out, " ")
}

func isWord(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) {
			return false
		}
	}
	return s != ""
}
