package catalog

// RawEntry is one #EXTINF + URL pair as parsed from a fetched playlist.
type RawEntry struct {
	OriginalName string  `json:"original_name"`
	URL          string  `json:"url"`
	Group        string  `json:"group,omitempty"`
	Logo         string  `json:"logo,omitempty"`
	Quality      Quality `json:"quality"`
	Origin       string  `json:"origin"` // source playlist URL, "whitelist", or "whitelist:<url>"
	Whitelisted  bool    `json:"whitelisted,omitempty"`
}

// SourceRecord is one physical stream URL behind a LogicalChannel.
// SpeedScore is nil when no probe result exists for the URL.
type SourceRecord struct {
	URL         string       `json:"url"`
	Quality     Quality      `json:"quality"`
	Origin      string       `json:"source"`
	Logo        string       `json:"logo"`
	IsIPv6      bool         `json:"is_ipv6"`
	Whitelisted bool         `json:"is_whitelist"`
	SpeedScore  *float64     `json:"speed_score"`
	Priority    int          `json:"priority"`
	Probe       *ProbeDetail `json:"test_details,omitempty"`
}

// Score returns the speed score, or 0 when the source was never probed.
func (s SourceRecord) Score() float64 {
	if s.SpeedScore == nil {
		return 0
	}
	return *s.SpeedScore
}

// ProbeDetail is the per-URL probe outcome carried through to channels.json.
type ProbeDetail struct {
	Success        bool    `json:"success"`
	Score          float64 `json:"score"`
	Error          string  `json:"error,omitempty"`
	ConnectSeconds float64 `json:"connect_time,omitempty"`
	ResponseSecs   float64 `json:"response_time,omitempty"`
	TotalSeconds   float64 `json:"test_time,omitempty"`
	Playlist       string  `json:"playlist,omitempty"` // "master" / "media" for HLS bodies that decode
	Cached         bool    `json:"cached,omitempty"`
}

// LogicalChannel is the merge unit: every known source for one normalized name.
type LogicalChannel struct {
	CleanName     string         `json:"clean_name"`
	OriginalNames []string       `json:"original_names"` // distinct, first-seen order
	Sources       []SourceRecord `json:"sources"`        // priority descending after Merge
	Logos         []string       `json:"logos"`          // distinct non-empty, first-seen order
	Category      string         `json:"category"`

	observed []string
	urls     map[string]int // URL to index in Sources, valid until finish sorts
	names    map[string]struct{}
}

// MainLogo returns the first logo seen for the channel, or "".
func (c *LogicalChannel) MainLogo() string {
	if len(c.Logos) == 0 {
		return ""
	}
	return c.Logos[0]
}

// CountIPv6 returns how many sources are IPv6.
func (c *LogicalChannel) CountIPv6() int {
	n := 0
	for _, s := range c.Sources {
		if s.IsIPv6 {
			n++
		}
	}
	return n
}

// CountWhitelisted returns how many sources came from the whitelist.
func (c *LogicalChannel) CountWhitelisted() int {
	n := 0
	for _, s := range c.Sources {
		if s.Whitelisted {
			n++
		}
	}
	return n
}

// CountFast returns how many sources scored at least min.
func (c *LogicalChannel) CountFast(min float64) int {
	n := 0
	for _, s := range c.Sources {
		if s.Score() >= min {
			n++
		}
	}
	return n
}

// ObservedCategories returns the categories seen while folding, in encounter order.
func (c *LogicalChannel) ObservedCategories() []string {
	return append([]string(nil), c.observed...)
}
