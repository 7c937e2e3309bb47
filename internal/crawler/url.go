package crawler

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

var nonNavigationalSchemes = []string{"mailto:", "tel:", "javascript:", "data:", "sms:", "callto:", "whatsapp:", "fax:"}

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports and the fragment,
// and strips a trailing slash from the path. The query string is kept.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return normalizeParsed(u), nil
}

func normalizeParsed(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Scheme == "http" {
		n.Host = strings.TrimSuffix(n.Host, ":80")
	}
	if n.Scheme == "https" {
		n.Host = strings.TrimSuffix(n.Host, ":443")
	}
	n.Fragment = ""
	n.RawFragment = ""
	n.Path = strings.TrimRight(n.Path, "/")
	n.RawPath = ""
	return n.String()
}

// ParseBaseURL validates the crawl seed: an absolute http or https URL with a host.
func ParseBaseURL(rawURL string) (*url.URL, error) {
	raw := strings.TrimSpace(rawURL)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	return u, nil
}

// ResolveHref turns an href found on pageURL into an absolute, normalized URL.
// It reports false for fragment-only links, non-navigational schemes, and anything
// that does not resolve to http(s).
func ResolveHref(pageURL *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range nonNavigationalSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}
	if looksLikeBareDomain(lower) {
		href = pageURL.Scheme + "://" + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := pageURL.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Hostname() == "" {
		return "", false
	}
	return normalizeParsed(abs), true
}

// looksLikeBareDomain catches hrefs such as "www.salon.cz/kontakt" that browsers
// would treat as relative paths but authors meant as absolute.
func looksLikeBareDomain(href string) bool {
	if strings.Contains(href, "://") || strings.HasPrefix(href, "/") || strings.HasPrefix(href, ".") {
		return false
	}
	return strings.HasPrefix(href, "www.")
}

// SameHost reports whether u's hostname equals the base hostname exactly.
func SameHost(base *url.URL, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}

// IsExcluded reports whether rawURL's path matches one of the exclude patterns.
// Patterns are path prefixes ("/blog") or path.Match globs ("/galerie/*").
func IsExcluded(rawURL string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	if p == "" {
		p = "/"
	}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if !strings.HasPrefix(pattern, "/") {
			pattern = "/" + pattern
		}
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := path.Match(pattern, p); ok {
				return true
			}
			continue
		}
		trimmed := strings.TrimRight(pattern, "/")
		if p == trimmed || strings.HasPrefix(p, trimmed+"/") {
			return true
		}
	}
	return false
}
