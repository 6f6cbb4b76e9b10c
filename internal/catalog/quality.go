package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Quality is a stream's resolution tier. Higher is better.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityFluent
	QualitySD
	QualityHD
	Quality4K
)

var qualityNames = [...]string{"Unknown", "Fluent", "SD", "HD", "4K"}

// Display labels used in rendered playlists.
var qualityLabels = [...]string{"未知", "流畅", "标清", "高清", "4K"}

func (q Quality) String() string {
	if q < QualityUnknown || q > Quality4K {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// Label is the playlist-facing name (高清, 标清, ...).
func (q Quality) Label() string {
	if q < QualityUnknown || q > Quality4K {
		return qualityLabels[QualityUnknown]
	}
	return qualityLabels[q]
}

// Bonus is the priority contribution of the tier.
func (q Quality) Bonus() int {
	switch q {
	case Quality4K:
		return 40
	case QualityHD:
		return 30
	case QualitySD:
		return 20
	case QualityFluent:
		return 10
	}
	return 0
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.Label()), nil
}

func (q *Quality) UnmarshalText(b []byte) error {
	*q = ParseQuality(string(b))
	return nil
}

// ParseQuality accepts either the English or the display name; anything else is Unknown.
func ParseQuality(s string) Quality {
	s = strings.TrimSpace(s)
	for i := range qualityNames {
		if strings.EqualFold(s, qualityNames[i]) || s == qualityLabels[i] {
			return Quality(i)
		}
	}
	return QualityUnknown
}

var qualityPatterns = []struct {
	q  Quality
	re *regexp.Regexp
}{
	{Quality4K, regexp.MustCompile(`(?i)4K|超清|UHD|2160`)},
	{QualityHD, regexp.MustCompile(`(?i)高清|HD|1080|FHD`)},
	{QualitySD, regexp.MustCompile(`(?i)标清|SD|720`)},
	{QualityFluent, regexp.MustCompile(`(?i)流畅|360|480`)},
}

// DetectQuality infers the tier from a raw channel label; first matching tier wins.
func DetectQuality(name string) Quality {
	for _, p := range qualityPatterns {
		if p.re.MatchString(name) {
			return p.q
		}
	}
	return QualityUnknown
}
