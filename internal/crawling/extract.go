package crawling

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/outreach-agent/internal/types"
)

// skippedSchemes are href schemes that never lead to a page.
var skippedSchemes = []string{"mailto:", "tel:", "javascript:", "sms:", "data:"}

// ExtractContactLinks returns the same-site links in htmlContent whose text,
// title or aria-label contains one of phrases (case-insensitive), resolved
// against baseURL and in document order. Fragments are kept so callers can
// tell same-page anchors apart; duplicates by normalized URL are dropped.
func ExtractContactLinks(htmlContent string, baseURL string, phrases []string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse base URL",
			Cause:   err,
		}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &LinkExtractionError{
			Message: fmt.Sprintf("invalid base URL: %s (must have scheme and host)", baseURL),
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, &LinkExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	// A <base href> changes how relative links resolve.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || hasSkippedScheme(href) {
			return
		}

		text := strings.ToLower(strings.Join([]string{
			strings.Join(strings.Fields(s.Text()), " "),
			s.AttrOr("title", ""),
			s.AttrOr("aria-label", ""),
		}, " "))
		if !matchesAny(text, lowered) {
			return
		}

		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		absoluteURL := base.ResolveReference(linkURL)
		if absoluteURL.Scheme != "http" && absoluteURL.Scheme != "https" {
			return
		}
		if !SameSite(base.Hostname(), absoluteURL.Hostname()) {
			return
		}

		key := types.NormalizeURL(absoluteURL.String())
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, absoluteURL.String())
	})

	return links, nil
}

// SameSite reports whether host is siteHost or one of its subdomains.
// A leading "www." on either side is ignored.
func SameSite(siteHost, host string) bool {
	siteHost = strings.TrimPrefix(strings.ToLower(siteHost), "www.")
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if siteHost == "" || host == "" {
		return false
	}
	return host == siteHost || strings.HasSuffix(host, "."+siteHost)
}

func hasSkippedScheme(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

func matchesAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
