package speedtest

import (
	"math"
	"strings"
	"time"
)

// Score weights and bonuses, all on the normalized [0,1] scale.
const (
	weightConnect  = 0.3
	weightResponse = 0.3
	weightContent  = 0.4
	ipv6Bonus      = 0.2

	// idealResponse is the response time that scores zero on the response component.
	idealResponse = 4 * time.Second
	// headCeiling is the best score a HEAD-only probe can earn before the IPv6 bonus.
	headCeiling = 0.7
	headSpan    = 5 * time.Second
)

// IsHLS reports whether u should get the full stream probe: it ends in .m3u8
// or carries a query after .m3u8.
func IsHLS(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasSuffix(lower, ".m3u8") || strings.Contains(lower, ".m3u8?")
}

// HLSSample is what the ranged GET measured.
type HLSSample struct {
	Connect       time.Duration
	Response      time.Duration
	ContentType   string
	ContentLength int64
}

// HLSScore scores a successful stream probe. connectTimeout scales the
// connect component: twice the timeout scores zero.
func HLSScore(url string, s HLSSample, connectTimeout time.Duration, ipv6 bool) float64 {
	score := 0.0
	if connectTimeout > 0 {
		score += weightConnect * (1 - math.Min(s.Connect.Seconds()/(2*connectTimeout.Seconds()), 1))
	}
	score += weightResponse * (1 - math.Min(s.Response.Seconds()/idealResponse.Seconds(), 1))

	content := 0.0
	ct := strings.ToLower(s.ContentType)
	for _, marker := range []string{"video", "mpegurl", "m3u8"} {
		if strings.Contains(ct, marker) {
			content += 0.5
			break
		}
	}
	if s.ContentLength > 0 {
		content += 0.3
	}
	lower := strings.ToLower(url)
	if strings.Contains(lower, "m3u8") || strings.Contains(lower, "ts") {
		content += 0.2
	}
	score += weightContent * content
	if ipv6 {
		score += ipv6Bonus
	}
	return clamp(score)
}

// HeadScore scores a successful HEAD-only probe from its round trip.
func HeadScore(rt time.Duration, ipv6 bool) float64 {
	score := headCeiling - math.Min(rt.Seconds()/headSpan.Seconds(), headCeiling)
	if ipv6 {
		score += ipv6Bonus
	}
	return clamp(score)
}

func clamp(f float64) float64 {
	return math.Min(math.Max(f, 0), 1)
}
