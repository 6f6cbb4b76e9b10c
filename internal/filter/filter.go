// Package filter decides which stream URLs survive a run, from a user whitelist
// and an accumulated blacklist.
package filter

import "github.com/plextuner/iptv-collector/internal/catalog"

// Config is the subset of collector settings the allow decision depends on.
type Config struct {
	EnableBlacklist           bool
	EnableWhitelist           bool
	WhitelistOverridesBlack   bool
	WhitelistIgnoresSpeedTest bool
	MinSpeedScore             float64
}

// Decision explains an IsAllowed outcome.
type Decision int

const (
	Allowed Decision = iota
	// AllowedByWhitelist is an allow that would otherwise have been a deny.
	AllowedByWhitelist
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case AllowedByWhitelist:
		return "allowed_by_whitelist"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Policy evaluates URLs against one run's lists. Lists are read once at the
// start of a run and not mutated while the policy is in use.
type Policy struct {
	Config    Config
	Whitelist *Whitelist
	Blacklist *Blacklist
}

// Whitelisted reports whether u matches the whitelist, when whitelisting is on.
func (p Policy) Whitelisted(u string) bool {
	return p.Config.EnableWhitelist && p.Whitelist.Match(u)
}

// Blacklisted reports whether u is on the blacklist, when blacklisting is on.
func (p Policy) Blacklisted(u string) bool {
	return p.Config.EnableBlacklist && p.Blacklist.Contains(u)
}

// Decide applies the precedence: a whitelisted URL with override on is allowed
// whatever the blacklist says; otherwise a blacklisted URL is denied.
func (p Policy) Decide(u string) Decision {
	black := p.Blacklisted(u)
	if p.Config.WhitelistOverridesBlack && p.Whitelisted(u) {
		if black {
			return AllowedByWhitelist
		}
		return Allowed
	}
	if black {
		return Denied
	}
	return Allowed
}

// IsAllowed reports whether u may be kept.
func (p Policy) IsAllowed(u string) bool {
	return p.Decide(u) != Denied
}

// Slow reports whether a probe outcome should send u to the blacklist. A
// whitelisted URL is exempt when the whitelist also waives speed testing.
func (p Policy) Slow(u string, success bool, score float64) bool {
	if p.Config.WhitelistIgnoresSpeedTest && p.Whitelisted(u) {
		return false
	}
	return !success || score < p.Config.MinSpeedScore
}

// Stats counts what Apply did.
type Stats struct {
	Kept        int
	Blacklisted int
	Rescued     int // blacklisted but kept by the whitelist
	Whitelisted int
}

// Apply keeps the allowed entries, in order, and marks whitelisted ones.
func (p Policy) Apply(entries []catalog.RawEntry) ([]catalog.RawEntry, Stats) {
	var st Stats
	out := make([]catalog.RawEntry, 0, len(entries))
	for _, e := range entries {
		switch p.Decide(e.URL) {
		case Denied:
			st.Blacklisted++
			continue
		case AllowedByWhitelist:
			st.Rescued++
		}
		if !e.Whitelisted && p.Whitelisted(e.URL) {
			e.Whitelisted = true
		}
		if e.Whitelisted {
			st.Whitelisted++
		}
		out = append(out, e)
	}
	st.Kept = len(out)
	return out, st
}
