package catalog

import (
	"sort"

	"github.com/plextuner/iptv-collector/internal/category"
	"github.com/plextuner/iptv-collector/internal/normalize"
)

// Categorizer assigns one label to a normalized channel name.
type Categorizer interface {
	Categorize(name string) string
}

// Merger folds raw entries into logical channels keyed by normalized name.
type Merger struct {
	Normalize   func(string) string
	Categorizer Categorizer
}

// NewMerger returns a Merger using the standard normalizer and the given categorizer
// (category.Default() when nil).
func NewMerger(c Categorizer) *Merger {
	if c == nil {
		c = category.Default()
	}
	return &Merger{Normalize: normalize.Name, Categorizer: c}
}

// Merge groups entries by normalized name. probes maps URL to its probe outcome and
// may be nil when speed testing is off. Entries must carry a non-empty URL and name.
func (m *Merger) Merge(entries []RawEntry, probes map[string]ProbeDetail) map[string]*LogicalChannel {
	norm := m.Normalize
	if norm == nil {
		norm = normalize.Name
	}
	cat := m.Categorizer
	if cat == nil {
		cat = category.Default()
	}
	out := make(map[string]*LogicalChannel)
	for _, e := range entries {
		key := norm(e.OriginalName)
		ch, ok := out[key]
		if !ok {
			ch = newLogicalChannel(key)
			out[key] = ch
		}
		ch.fold(e, probes)
		ch.observe(cat.Categorize(key))
	}
	for _, ch := range out {
		ch.finish()
	}
	return out
}

func newLogicalChannel(key string) *LogicalChannel {
	return &LogicalChannel{
		CleanName: key,
		urls:      make(map[string]int),
		names:     make(map[string]struct{}),
	}
}

func (c *LogicalChannel) fold(e RawEntry, probes map[string]ProbeDetail) {
	if _, seen := c.names[e.OriginalName]; !seen {
		c.names[e.OriginalName] = struct{}{}
		c.OriginalNames = append(c.OriginalNames, e.OriginalName)
	}
	if e.Logo != "" && !contains(c.Logos, e.Logo) {
		c.Logos = append(c.Logos, e.Logo)
	}
	if i, dup := c.urls[e.URL]; dup {
		if e.Whitelisted {
			c.Sources[i].Whitelisted = true
		}
		return
	}
	c.urls[e.URL] = len(c.Sources)
	rec := SourceRecord{
		URL:         e.URL,
		Quality:     e.Quality,
		Origin:      e.Origin,
		Logo:        e.Logo,
		Whitelisted: e.Whitelisted,
	}
	if d, ok := probes[e.URL]; ok {
		score := d.Score
		rec.SpeedScore = &score
		detail := d
		rec.Probe = &detail
	}
	c.Sources = append(c.Sources, rec)
}

func (c *LogicalChannel) observe(label string) {
	if !contains(c.observed, label) {
		c.observed = append(c.observed, label)
	}
}

// finish computes priorities, orders sources and settles the category:
// the first non-Other label in encounter order, else Other.
func (c *LogicalChannel) finish() {
	for i := range c.Sources {
		c.Sources[i].Priority = Priority(&c.Sources[i])
	}
	sort.SliceStable(c.Sources, func(i, j int) bool {
		return c.Sources[i].Priority > c.Sources[j].Priority
	})
	c.Category = category.Other
	for _, label := range c.observed {
		if label != category.Other {
			c.Category = label
			break
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
