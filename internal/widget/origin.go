// Package widget holds the pure parts of widget delivery: matching an embedding domain
// against a project's allow-list, resolving the effective display settings, and rendering
// approved testimonials into a self-contained HTML fragment.
package widget

import (
	"net/url"
	"strings"
)

// NormalizeHost parses raw as a URL and returns its lowercase hostname without a leading
// "www." label. Scheme, port, path and credentials are ignored. ok is false for anything
// that does not parse into a URL with a host.
func NormalizeHost(raw string) (host string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return "", false
	}
	return host, true
}

// IsAuthorized reports whether claimed matches an entry of allowed by exact normalized
// hostname. An empty allow-list authorizes nothing. Malformed entries never match.
//
// claimed is whatever the embedding page says it is. This is an allow-list check, not
// origin verification.
func IsAuthorized(allowed []string, claimed string) bool {
	if len(allowed) == 0 {
		return false
	}
	want, ok := NormalizeHost(claimed)
	if !ok {
		return false
	}
	for _, entry := range allowed {
		if host, ok := NormalizeHost(entry); ok && host == want {
			return true
		}
	}
	return false
}
