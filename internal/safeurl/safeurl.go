package safeurl

import (
	"net/netip"
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes before a probe or fetch.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return s == "http" || s == "https"
}

// Host returns the lower-cased host of u without port or brackets, or "" when u does not parse.
func Host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// HostPort returns the authority part of u (host[:port]) as written, or "".
func HostPort(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return parsed.Host
}

// IsIPv6URL reports whether u points at an IPv6 literal host. When the host is not a
// literal it falls back to loose signals: "ipv6" anywhere in the URL, "ip6" or "v6"
// as a whole host label or path segment, or three or more colons.
func IsIPv6URL(u string) bool {
	if addr, err := netip.ParseAddr(literalHost(u)); err == nil && addr.Is6() {
		return true
	}
	lower := strings.ToLower(u)
	if strings.Contains(lower, "ipv6") {
		return true
	}
	for _, tok := range strings.FieldsFunc(lower, isURLSeparator) {
		if tok == "ip6" || tok == "v6" {
			return true
		}
	}
	return strings.Count(lower, ":") >= 3
}

func isURLSeparator(r rune) bool {
	switch r {
	case '.', '/', ':', '?', '&', '=', '#', '_', '-':
		return true
	}
	return false
}

// literalHost extracts the host portion after the scheme and strips any port,
// keeping bracketed IPv6 literals intact as their inner address.
func literalHost(u string) string {
	rest := u
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 0 {
			return rest[1:end]
		}
		return rest
	}
	if strings.Count(rest, ":") == 1 {
		return rest[:strings.Index(rest, ":")]
	}
	return rest
}
