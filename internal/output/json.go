package output

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/category"
)

// Summary is the channels.json document.
type Summary struct {
	RunID       string        `json:"run_id,omitempty"`
	LastUpdated string        `json:"last_updated"`
	Config      ConfigSummary `json:"config"`

	TotalChannels       int `json:"total_channels"`
	OriginalCount       int `json:"original_channel_count"`
	FilteredCount       int `json:"filtered_channel_count"`
	BlacklistedCount    int `json:"blacklisted_channel_count"`
	WhitelistedCount    int `json:"whitelisted_channel_count"`
	SourcesCount        int `json:"sources_count"`
	SuccessSources      int `json:"success_sources"`
	MultiSourceChannels int `json:"multi_source_channels"`
	SingleSourceChans   int `json:"single_source_channels"`
	IPv6Channels        int `json:"ipv6_channels"`
	WhitelistChannels   int `json:"whitelist_channels"`
	HighQualityChannels int `json:"high_quality_channels"`

	FailedSources      []string       `json:"failed_sources"`
	CategoryStats      map[string]int `json:"category_stats"`
	FixedCategories    []string       `json:"fixed_categories"`
	ProvinceCategories []string       `json:"province_categories"`
	BlacklistStats     BlacklistStats `json:"blacklist_stats"`
	WhitelistStats     WhitelistStats `json:"whitelist_stats"`
	SortingRules       map[string]int `json:"sorting_rules"`
	Channels           []ChannelInfo  `json:"channels"`
	SourceFile         string         `json:"source_file"`
	BlacklistFile      string         `json:"blacklist_file"`
	WhitelistFile      string         `json:"whitelist_file"`
}

// ConfigSummary echoes the switches the run used.
type ConfigSummary struct {
	EnableBlacklist            bool    `json:"enable_blacklist"`
	EnableWhitelist            bool    `json:"enable_whitelist"`
	EnableSpeedTest            bool    `json:"enable_speed_test"`
	ConnectTimeout             float64 `json:"connect_timeout"`
	StreamTimeout              float64 `json:"stream_timeout"`
	MinSpeedScore              float64 `json:"min_speed_score"`
	MaxWorkers                 int     `json:"max_workers"`
	WhitelistFile              string  `json:"whitelist_file"`
	WhitelistOverrideBlacklist bool    `json:"whitelist_override_blacklist"`
	WhitelistIgnoreSpeedTest   bool    `json:"whitelist_ignore_speed_test"`
	WhitelistAutoAdd           bool    `json:"whitelist_auto_add"`
}

type BlacklistStats struct {
	Total    int `json:"total_blacklisted"`
	Previous int `json:"previously_blacklisted"`
	New      int `json:"newly_blacklisted"`
}

type WhitelistStats struct {
	Total    int `json:"total_whitelisted"`
	Patterns int `json:"patterns_count"`
	URLs     int `json:"urls_count"`
	Channels int `json:"channels_count"`
}

// ChannelInfo is one channel in channels.json.
type ChannelInfo struct {
	CleanName        string       `json:"clean_name"`
	OriginalNames    []string     `json:"original_names"`
	Category         string       `json:"category"`
	SourceCount      int          `json:"source_count"`
	IPv6Sources      int          `json:"ipv6_source_count"`
	WhitelistSources int          `json:"whitelist_source_count"`
	FastSources      int          `json:"high_quality_source_count"`
	Logos            []string     `json:"logos"`
	Sources          []SourceInfo `json:"sources"`
}

// SourceInfo is one source in channels.json. Unprobed sources report a score of 0.
type SourceInfo struct {
	Index       int                  `json:"index"`
	URL         string               `json:"url"`
	Quality     catalog.Quality      `json:"quality"`
	Origin      string               `json:"source"`
	Logo        string               `json:"logo"`
	IsIPv6      bool                 `json:"is_ipv6"`
	Whitelisted bool                 `json:"is_whitelist"`
	Priority    int                  `json:"priority"`
	SpeedScore  float64              `json:"speed_score"`
	Probe       *catalog.ProbeDetail `json:"test_details,omitempty"`
}

// BuildSummary assembles the channels.json document.
func BuildSummary(channels map[string]*catalog.LogicalChannel, meta Meta) Summary {
	cfg := meta.Config
	s := Summary{
		RunID:       meta.RunID,
		LastUpdated: meta.Timestamp(),
		Config: ConfigSummary{
			EnableBlacklist:            cfg.EnableBlacklist,
			EnableWhitelist:            cfg.EnableWhitelist,
			EnableSpeedTest:            cfg.EnableSpeedTest,
			ConnectTimeout:             cfg.ConnectTimeout.Seconds(),
			StreamTimeout:              cfg.StreamTimeout.Seconds(),
			MinSpeedScore:              cfg.MinSpeedScore,
			MaxWorkers:                 cfg.MaxWorkers,
			WhitelistFile:              cfg.WhitelistFile,
			WhitelistOverrideBlacklist: cfg.WhitelistOverrideBlacklist,
			WhitelistIgnoreSpeedTest:   cfg.WhitelistIgnoreSpeedTest,
			WhitelistAutoAdd:           cfg.WhitelistAutoAdd,
		},
		TotalChannels:    len(channels),
		OriginalCount:    meta.OriginalEntries,
		FilteredCount:    meta.FilteredEntries,
		BlacklistedCount: meta.Blacklisted,
		WhitelistedCount: meta.Whitelisted,
		SourcesCount:     meta.Sources,
		SuccessSources:   meta.SuccessSources,
		FailedSources:    append([]string{}, meta.FailedSources...),
		CategoryStats:    make(map[string]int),
		FixedCategories:  category.FixedOrder,
		BlacklistStats: BlacklistStats{
			Total:    meta.PreviousBlacklist + meta.NewlyBlacklisted,
			Previous: meta.PreviousBlacklist,
			New:      meta.NewlyBlacklisted,
		},
		SortingRules: map[string]int{
			"ipv6_priority":      100,
			"whitelist_priority": 80,
			"4k_priority":        catalog.Quality4K.Bonus(),
			"hd_priority":        catalog.QualityHD.Bonus(),
			"sd_priority":        catalog.QualitySD.Bonus(),
			"fluent_priority":    catalog.QualityFluent.Bonus(),
		},
		SourceFile:    cfg.SourcesFile,
		BlacklistFile: cfg.BlacklistFile,
		WhitelistFile: cfg.WhitelistFile,
	}
	if w := meta.Whitelist; w != nil {
		s.WhitelistStats = WhitelistStats{
			Patterns: len(w.Patterns()),
			URLs:     len(w.URLs()),
			Channels: len(w.Channels),
		}
		s.WhitelistStats.Total = s.WhitelistStats.Patterns + s.WhitelistStats.URLs
	}

	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	s.Channels = make([]ChannelInfo, 0, len(names))
	provinces := make(map[string]bool)
	for _, name := range names {
		ch := channels[name]
		s.CategoryStats[ch.Category]++
		if category.IsProvince(ch.Category) {
			provinces[ch.Category] = true
		}
		if len(ch.Sources) > 1 {
			s.MultiSourceChannels++
		} else {
			s.SingleSourceChans++
		}
		if ch.CountIPv6() > 0 {
			s.IPv6Channels++
		}
		if ch.CountWhitelisted() > 0 {
			s.WhitelistChannels++
		}
		fast := ch.CountFast(FastScore)
		if fast > 0 {
			s.HighQualityChannels++
		}
		info := ChannelInfo{
			CleanName:        ch.CleanName,
			OriginalNames:    append([]string{}, ch.OriginalNames...),
			Category:         ch.Category,
			SourceCount:      len(ch.Sources),
			IPv6Sources:      ch.CountIPv6(),
			WhitelistSources: ch.CountWhitelisted(),
			FastSources:      fast,
			Logos:            append([]string{}, ch.Logos...),
			Sources:          make([]SourceInfo, len(ch.Sources)),
		}
		for i, src := range ch.Sources {
			info.Sources[i] = SourceInfo{
				Index:       i + 1,
				URL:         src.URL,
				Quality:     src.Quality,
				Origin:      src.Origin,
				Logo:        src.Logo,
				IsIPv6:      src.IsIPv6,
				Whitelisted: src.Whitelisted,
				Priority:    src.Priority,
				SpeedScore:  src.Score(),
				Probe:       src.Probe,
			}
		}
		s.Channels = append(s.Channels, info)
	}
	for p := range provinces {
		s.ProvinceCategories = append(s.ProvinceCategories, p)
	}
	sort.Strings(s.ProvinceCategories)
	return s
}

// WriteJSON encodes s with two-space indentation, leaving non-ASCII text unescaped.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
