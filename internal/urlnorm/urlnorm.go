// Package urlnorm canonicalizes URLs into bare registrable domains. It is
// the single authority for "same domain" comparisons used by deduplication
// and CRM freshness lookups.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize reduces any URL or domain-like string to a lower-cased bare
// domain: no scheme, no www. prefix, no port, no path, query, or fragment.
// It never fails; unparseable input degrades to textual prefix stripping.
// Empty input yields the empty string. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	host := parseHost(s)
	if host == "" {
		host = textualHost(s)
	}

	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

// parseHost extracts the host via net/url, tolerating scheme-less input.
func parseHost(s string) string {
	candidate := s
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// textualHost is the fallback for strings net/url cannot parse: strip known
// scheme prefixes and take everything before the first slash.
func textualHost(s string) string {
	for _, prefix := range []string{"https://", "http://", "//"} {
		s = strings.TrimPrefix(s, prefix)
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

// SameDomain reports whether two URLs collapse onto the same normalized
// domain. Two empty inputs are not considered the same domain.
func SameDomain(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
