// Package output renders merged channels as M3U playlists and a JSON summary.
package output

import (
	"sort"
	"time"

	"github.com/plextuner/iptv-collector/internal/catalog"
	"github.com/plextuner/iptv-collector/internal/category"
	"github.com/plextuner/iptv-collector/internal/config"
	"github.com/plextuner/iptv-collector/internal/filter"
)

// FastScore is the speed score at which a source counts as fast in tags and
// best-source selection.
const FastScore = 0.7

// TimeLayout formats every timestamp written to an output file.
const TimeLayout = "2006-01-02 15:04:05"

// Meta describes the run a set of outputs came from.
type Meta struct {
	RunID     string
	Generated time.Time
	Config    config.Config

	Sources        int
	SuccessSources int
	FailedSources  []string

	OriginalEntries int // entries parsed before filtering
	FilteredEntries int // entries left after filtering
	Blacklisted     int // entries removed by the blacklist
	Whitelisted     int // entries rescued or added by the whitelist

	PreviousBlacklist int // URLs on the blacklist at run start
	NewlyBlacklisted  int // slow URLs found this run

	Whitelist *filter.Whitelist
}

// Timestamp formats Generated in the configured zone.
func (m Meta) Timestamp() string {
	return m.Generated.In(m.Config.Location()).Format(TimeLayout)
}

// Section is one category's channels in render order.
type Section struct {
	Label    string
	Channels []*catalog.LogicalChannel
}

// Group buckets channels by category and orders both the categories and the
// channels inside each one.
func Group(channels map[string]*catalog.LogicalChannel) []Section {
	byLabel := make(map[string][]*catalog.LogicalChannel)
	for _, ch := range channels {
		byLabel[ch.Category] = append(byLabel[ch.Category], ch)
	}
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	out := make([]Section, 0, len(labels))
	for _, label := range category.Order(labels) {
		list := byLabel[label]
		sort.SliceStable(list, func(i, j int) bool {
			ki := category.Key(label, list[i].CleanName)
			kj := category.Key(label, list[j].CleanName)
			if c := ki.Compare(kj); c != 0 {
				return c < 0
			}
			return list[i].CleanName < list[j].CleanName
		})
		out = append(out, Section{Label: label, Channels: list})
	}
	return out
}

// renderOrder lists a channel's sources with IPv6 first, then whitelisted,
// then the rest, each group keeping priority order.
func renderOrder(ch *catalog.LogicalChannel) []catalog.SourceRecord {
	out := make([]catalog.SourceRecord, 0, len(ch.Sources))
	for _, s := range ch.Sources {
		if s.IsIPv6 {
			out = append(out, s)
		}
	}
	for _, s := range ch.Sources {
		if !s.IsIPv6 && s.Whitelisted {
			out = append(out, s)
		}
	}
	for _, s := range ch.Sources {
		if !s.IsIPv6 && !s.Whitelisted {
			out = append(out, s)
		}
	}
	return out
}

// Best picks the single source the compact playlist keeps. With speed testing
// on, fast sources win first, preferring IPv6 whitelisted ones. HD sources come
// next in the same preference order, and the first source is the fallback.
func Best(ch *catalog.LogicalChannel, speedTest bool) catalog.SourceRecord {
	type pick func(s catalog.SourceRecord) bool
	ladder := func(ok func(catalog.SourceRecord) bool) []pick {
		return []pick{
			func(s catalog.SourceRecord) bool { return s.IsIPv6 && s.Whitelisted && ok(s) },
			func(s catalog.SourceRecord) bool { return !s.IsIPv6 && s.Whitelisted && ok(s) },
			func(s catalog.SourceRecord) bool { return s.IsIPv6 && ok(s) },
			func(s catalog.SourceRecord) bool { return !s.IsIPv6 && ok(s) },
		}
	}
	var steps []pick
	if speedTest {
		steps = ladder(func(s catalog.SourceRecord) bool { return s.Score() >= FastScore })
	}
	steps = append(steps, ladder(func(s catalog.SourceRecord) bool { return s.Quality == catalog.QualityHD })...)
	for _, ok := range steps {
		for _, s := range ch.Sources {
			if ok(s) {
				return s
			}
		}
	}
	return ch.Sources[0]
}
