package catalog

import (
	"strings"

	"github.com/plextuner/iptv-collector/internal/safeurl"
)

// Priority bonuses. Only used to order sources within a channel.
const (
	BonusIPv6      = 100
	BonusWhitelist = 80
	BonusCDN       = 5
	BonusHTTPS     = 3
	BonusHLS       = 2
)

var cdnMarkers = []string{"cdn", "akamai", "cloudfront"}

// SpeedBonus maps a normalized [0,1] probe score to its priority tier.
func SpeedBonus(score float64) int {
	switch {
	case score >= 0.9:
		return 50
	case score >= 0.7:
		return 30
	case score >= 0.5:
		return 10
	}
	return 0
}

// Priority scores s for ordering and records the IPv6 flag on it as it goes.
func Priority(s *SourceRecord) int {
	p := 0
	s.IsIPv6 = safeurl.IsIPv6URL(s.URL)
	if s.IsIPv6 {
		p += BonusIPv6
	}
	if s.Whitelisted {
		p += BonusWhitelist
	}
	p += s.Quality.Bonus()
	lower := strings.ToLower(s.URL)
	for _, m := range cdnMarkers {
		if strings.Contains(lower, m) {
			p += BonusCDN
			break
		}
	}
	if strings.HasPrefix(lower, "https://") {
		p += BonusHTTPS
	}
	if strings.Contains(lower, "m3u8") {
		p += BonusHLS
	}
	if s.SpeedScore != nil {
		p += SpeedBonus(*s.SpeedScore)
	}
	return p
}
