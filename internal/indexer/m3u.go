package indexer

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/plextuner/iptv-collector/internal/catalog"
)

const (
	maxLineSize = 1 << 20 // 1 MiB per line

	// DefaultName is used for an #EXTINF line without a title.
	DefaultName = "未知频道"

	genreMarker = ",#genre#"
)

// hlsTags mark a stream's own HLS playlist rather than a channel list.
var hlsTags = []string{"#EXT-X-TARGETDURATION", "#EXT-X-STREAM-INF", "#EXT-X-MEDIA-SEQUENCE"}

func isHLSTag(line string) bool {
	for _, tag := range hlsTags {
		if strings.HasPrefix(line, tag) {
			return true
		}
	}
	return false
}

// ParseM3U parses an extended M3U playlist in a streaming fashion. Each #EXTINF
// line pairs with the next non-comment line as its URL. The plain "name,url"
// text format, with "group,#genre#" headers, is accepted in the same stream.
// origin is recorded on every entry. An HLS media or master playlist yields no
// entries, and so does an #EXTINF whose URL has no scheme.
func ParseM3U(r io.Reader, origin string) ([]catalog.RawEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	var (
		out    []catalog.RawEntry
		extinf map[string]string
		pend   bool
		genre  string
	)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			extinf = parseEXTINF(line)
			pend = true
			continue
		}
		if isHLSTag(line) {
			return nil, nil
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pend {
			if strings.Contains(line, "://") {
				out = append(out, entryFromEXTINF(extinf, line, origin))
			}
			extinf, pend = nil, false
			continue
		}
		if strings.HasSuffix(line, genreMarker) {
			genre = strings.TrimSpace(strings.TrimSuffix(line, genreMarker))
			continue
		}
		if e, ok := entryFromText(line, genre, origin); ok {
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseM3UBytes parses an in-memory playlist.
func ParseM3UBytes(data []byte, origin string) ([]catalog.RawEntry, error) {
	return ParseM3U(bytes.NewReader(data), origin)
}

func entryFromEXTINF(attrs map[string]string, url, origin string) catalog.RawEntry {
	name := attrs["name"]
	if name == "" {
		name = attrs["tvg-name"]
	}
	if name == "" {
		name = DefaultName
	}
	return catalog.RawEntry{
		OriginalName: name,
		URL:          url,
		Group:        attrs["group-title"],
		Logo:         attrs["tvg-logo"],
		Quality:      catalog.DetectQuality(name),
		Origin:       origin,
	}
}

func entryFromText(line, genre, origin string) (catalog.RawEntry, bool) {
	name, url, ok := strings.Cut(line, ",")
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if !ok || name == "" || !strings.Contains(url, "://") {
		return catalog.RawEntry{}, false
	}
	// some lists carry alternates as url#url
	if i := strings.Index(url, "#"); i > 0 && strings.Contains(url[i:], "://") {
		url = url[:i]
	}
	return catalog.RawEntry{
		OriginalName: name,
		URL:          url,
		Group:        genre,
		Quality:      catalog.DetectQuality(name),
		Origin:       origin,
	}, true
}

// parseEXTINF returns the quoted attributes of an #EXTINF line plus "name" for the
// title after the last comma.
func parseEXTINF(line string) map[string]string {
	m := make(map[string]string)
	line = strings.TrimPrefix(line, "#EXTINF:")
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		if idx+1 < len(line) {
			m["name"] = strings.TrimSpace(line[idx+1:])
		}
		line = line[:idx]
	}
	for {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			break
		}
		before := strings.TrimSpace(line[:eq])
		key := before
		if idx := strings.LastIndex(before, " "); idx >= 0 {
			key = strings.TrimSpace(before[idx+1:])
		}
		line = strings.TrimSpace(line[eq+1:])
		if len(line) < 2 {
			break
		}
		quote := line[0]
		if quote != '"' && quote != '\'' {
			break
		}
		line = line[1:]
		end := strings.IndexByte(line, quote)
		if end < 0 {
			break
		}
		m[strings.ToLower(key)] = strings.TrimSpace(line[:end])
		line = line[end+1:]
	}
	return m
}
