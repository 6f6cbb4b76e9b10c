// Package category assigns normalized channel names to display categories and
// orders channels inside them.
package category

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

type matcher struct {
	re  *regexp.Regexp
	sub string // lower-cased literal, used when the pattern did not compile
}

func (m matcher) match(name string) bool {
	if m.re != nil {
		return m.re.MatchString(name)
	}
	return strings.Contains(strings.ToLower(name), m.sub)
}

type compiled struct {
	label    string
	matchers []matcher
}

// Categorizer maps names to labels using an ordered rule table. The first rule
// with a matching pattern wins, so overlapping rules resolve by table order.
type Categorizer struct {
	rules    []compiled
	degraded []error
}

// New compiles rules in order. A pattern that is not a valid regular expression
// is matched as a case-insensitive substring instead; Degraded reports those.
// Rules without a label are ignored.
func New(rules []Rule) *Categorizer {
	c := &Categorizer{rules: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		if r.Label == "" {
			continue
		}
		cr := compiled{label: r.Label}
		for _, p := range r.Patterns {
			if p == "" {
				continue
			}
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				c.degraded = append(c.degraded, fmt.Errorf("category %q: pattern %q: %w", r.Label, p, err))
				cr.matchers = append(cr.matchers, matcher{sub: strings.ToLower(p)})
				continue
			}
			cr.matchers = append(cr.matchers, matcher{re: re})
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// WithRules combines user rules with the built-in table. Rules marked Before
// are tried first; the rest only see names no built-in rule claimed.
func WithRules(extra []Rule) *Categorizer {
	var before, after []Rule
	for _, r := range extra {
		if r.Before {
			before = append(before, r)
		} else {
			after = append(after, r)
		}
	}
	all := make([]Rule, 0, len(extra)+len(BuiltinRules))
	all = append(all, before...)
	all = append(all, BuiltinRules...)
	all = append(all, after...)
	return New(all)
}

var (
	defaultOnce sync.Once
	defaultCat  *Categorizer
)

// Default returns the shared categorizer for the built-in table. The table is
// static, so a pattern in it that fails to compile panics on first use.
func Default() *Categorizer {
	defaultOnce.Do(func() {
		c := New(BuiltinRules)
		if len(c.degraded) > 0 {
			panic(c.degraded[0])
		}
		defaultCat = c
	})
	return defaultCat
}

// Degraded lists the patterns that fell back to substring matching.
func (c *Categorizer) Degraded() []error {
	return c.degraded
}

// Categorize returns the label for a normalized name. Names no rule claims fall
// back to a province label when one is mentioned, and to Other after that.
func (c *Categorizer) Categorize(name string) string {
	if name == "" {
		return Other
	}
	for _, r := range c.rules {
		for _, m := range r.matchers {
			if m.match(name) {
				return r.label
			}
		}
	}
	for _, p := range Provinces {
		if strings.Contains(name, p) {
			return p
		}
	}
	for _, a := range provinceAbbr {
		if strings.Contains(name, a.short) {
			return a.full
		}
	}
	return Other
}

// Labels lists the rule labels in table order.
func (c *Categorizer) Labels() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.label)
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
