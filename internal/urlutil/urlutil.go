// Package urlutil provides URL normalization and domain-scoping helpers
// shared by the frontier and the extractor.
package urlutil

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/net/publicsuffix"
)

// skippedExtensions lists path suffixes that are never enqueued. Matching is
// case-insensitive on the final path segment.
var skippedExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".css", ".js",
	".ico", ".woff", ".woff2", ".ttf", ".eot", ".mp3", ".mp4", ".avi", ".mov",
	".zip", ".tar", ".gz", ".rar", ".7z", ".exe", ".dmg", ".iso",
}

// skippedSegments lists path segments that mark infrastructure paths with no
// crawl value.
var skippedSegments = map[string]bool{
	"wp-content":   true,
	"wp-includes":  true,
	"wp-json":      true,
	"cdn-cgi":      true,
	"node_modules": true,
	"xmlrpc.php":   true,
}

// trackingParams are query parameters stripped from outlinks before dedup.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"msclkid": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
	"ref_src": true,
	"_hsenc":  true,
	"_hsmi":   true,
}

// Normalize canonicalizes a URL for frontier dedup: lowercase scheme and
// host, default ports removed, fragment stripped, query parameters sorted,
// unreserved percent-escapes decoded. The trailing slash is preserved as
// distinguishing. Normalize is idempotent.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Remove default ports.
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	// Dropping RawPath forces URL.String to re-encode Path minimally,
	// which decodes percent-escapes for unreserved octets.
	u.RawPath = ""

	// Sort query parameters for a stable key. url.Values.Encode sorts by
	// parameter name.
	if u.RawQuery != "" {
		q, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			u.RawQuery = q.Encode()
		}
	}

	return u.String(), nil
}

// Hash returns a stable 64-bit key for a normalized URL, used by the
// frontier's seen-set.
func Hash(normalized string) uint64 {
	return xxhash.Sum64String(normalized)
}

// RegistrableDomain returns the public-suffix-plus-one portion of a host
// (e.g. "example.co.uk" for "www.example.co.uk"). IP literals and hosts
// that are themselves a public suffix are returned lowercased as-is.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if h, _, err := splitHostPort(host); err == nil {
		host = h
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func splitHostPort(host string) (string, string, error) {
	i := strings.LastIndex(host, ":")
	if i < 0 || strings.Contains(host[i:], "]") {
		return host, "", fmt.Errorf("no port")
	}
	return host[:i], host[i+1:], nil
}

// SameRegistrableDomain reports whether two URLs share a registrable domain.
func SameRegistrableDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return RegistrableDomain(ua.Hostname()) == RegistrableDomain(ub.Hostname())
}

// InScope reports whether candidate belongs to the seed's crawl scope.
// Without allowSubdomains the hosts must match exactly (after lowercasing
// and www-stripping); with it, sharing the registrable domain suffices.
func InScope(seedURL, candidate string, allowSubdomains bool) bool {
	su, err := url.Parse(seedURL)
	if err != nil {
		return false
	}
	cu, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if allowSubdomains {
		return RegistrableDomain(su.Hostname()) == RegistrableDomain(cu.Hostname())
	}
	return stripWWW(su.Hostname()) == stripWWW(cu.Hostname())
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// ShouldSkip reports whether a URL's path disqualifies it from the frontier
// (binary asset extensions and infrastructure path segments).
func ShouldSkip(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}
	path := strings.ToLower(u.Path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	for _, seg := range strings.Split(path, "/") {
		if skippedSegments[seg] {
			return true
		}
	}
	return false
}

// StripTracking removes fragment and known tracking parameters (utm_*,
// fbclid, ...) from an outlink.
func StripTracking(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	if u.RawQuery != "" {
		q, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			keys := make([]string, 0, len(q))
			for k := range q {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			kept := url.Values{}
			for _, k := range keys {
				if strings.HasPrefix(strings.ToLower(k), "utm_") || trackingParams[strings.ToLower(k)] {
					continue
				}
				kept[k] = q[k]
			}
			u.RawQuery = kept.Encode()
		}
	}
	return u.String()
}
