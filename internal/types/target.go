// Package types provides type definitions for structured data used throughout the outreach-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when a target URL has no usable host
var ErrInvalidURL = errors.New("invalid URL")

// Target is one website to be contacted. It is immutable input, one per row of the target list.
type Target struct {
	URL         string `json:"website_url"`
	DisplayName string `json:"restaurant_name"`
}

// Key returns the identity of the target; see TargetKey.
func (t Target) Key() string {
	return TargetKey(t.URL)
}

// TargetKey returns the identity of a website URL as written in a target or
// output list. "joes.com" and "https://joes.com/" share a key.
func TargetKey(raw string) string {
	if normalized, err := NormalizeTargetURL(raw); err == nil {
		return NormalizeURL(normalized)
	}
	return NormalizeURL(raw)
}

// NormalizeTargetURL prepends https:// when the scheme is missing and checks
// that the result is an http(s) URL with a host.
func NormalizeTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(raw, "://") {
			return "", fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidURL, raw)
		}
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Hostname(), " \t") {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

// NormalizeURL returns a canonical form of a URL used for identity and dedupe:
// lowercase scheme and host, no fragment, no trailing slash.
// Unparseable input is returned trimmed and otherwise untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
