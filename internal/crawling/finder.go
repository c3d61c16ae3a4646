package crawling

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/browser"
	"github.com/jonathan/outreach-agent/internal/forms"
	"github.com/jonathan/outreach-agent/internal/types"
)

// DefaultContactPatterns are path suffixes probed, in order, before the link scan.
var DefaultContactPatterns = []string{
	"/contact",
	"/contact-us",
	"/contactus",
	"/contact_us",
	"/get-in-touch",
	"/reach-out",
	"/reach-us",
	"/contact-form",
	"/support",
	"/help",
	"/feedback",
}

// DefaultLinkPhrases are homepage link texts that suggest a contact page.
var DefaultLinkPhrases = []string{
	"contact",
	"contact us",
	"get in touch",
	"reach out",
	"reach us",
	"talk to us",
	"message us",
	"email us",
	"support",
	"feedback",
}

// Result is a contact page together with the form found on it.
// When Find returns a Result, the session is showing that page.
type Result struct {
	Candidate types.ContactPageCandidate
	Form      *types.FormElementSet
}

// Finder locates a site's contact page with a browser session.
type Finder struct {
	session  browser.Session
	patterns []string
	phrases  []string
	log      *zap.Logger
}

// NewFinder creates a Finder. Custom patterns and phrases are tried after the defaults.
func NewFinder(session browser.Session, customPatterns, customPhrases []string, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finder{
		session:  session,
		patterns: append(append([]string{}, DefaultContactPatterns...), customPatterns...),
		phrases:  append(append([]string{}, DefaultLinkPhrases...), customPhrases...),
		log:      logger.Named("finder"),
	}
}

// Find discovers the contact page of the site at rootURL: first by probing
// known paths, then by following contact links from the homepage. It returns
// nil without error when no page with a qualifying form exists. Navigation
// failures of single candidates are skipped; only cancellation of ctx aborts.
func (f *Finder) Find(ctx context.Context, rootURL string) (*Result, error) {
	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return nil, &CrawlError{Message: "invalid root URL " + rootURL, Cause: err}
	}

	visited := make(map[string]bool)
	log := f.log.With(zap.String("site", rootURL))

	for _, pattern := range f.patterns {
		ref, err := url.Parse(strings.TrimSpace(pattern))
		if err != nil {
			log.Debug("Skipping malformed pattern", zap.String("pattern", pattern))
			continue
		}
		candidate := root.ResolveReference(ref).String()

		res, err := f.probe(ctx, candidate, types.DiscoveryPattern, visited)
		if err != nil {
			return nil, err
		}
		if res != nil {
			log.Info("Found contact page via pattern", zap.String("url", candidate))
			return res, nil
		}
	}

	return f.scanLinks(ctx, rootURL, visited, log)
}

// scanLinks loads the homepage and tries each link whose text looks like a contact link.
func (f *Finder) scanLinks(ctx context.Context, rootURL string, visited map[string]bool, log *zap.Logger) (*Result, error) {
	if err := f.session.Navigate(ctx, rootURL); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Homepage failed to load", zap.Error(err))
		return nil, nil
	}
	visited[types.NormalizeURL(rootURL)] = true

	homeURL, err := f.session.Location(ctx)
	if err != nil || homeURL == "" {
		homeURL = rootURL
	}
	homeHTML, err := f.session.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Failed to read homepage", zap.Error(err))
		return nil, nil
	}
	homeKey := types.NormalizeURL(homeURL)
	visited[homeKey] = true

	links, err := ExtractContactLinks(homeHTML, homeURL, f.phrases)
	if err != nil {
		log.Warn("Failed to extract homepage links", zap.Error(err))
		return nil, nil
	}
	log.Debug("Contact link candidates", zap.Strings("links", links))

	homeChecked := false
	for _, link := range links {
		if types.NormalizeURL(link) == homeKey {
			// Same-page anchor: the form, if any, is on the homepage already loaded.
			if homeChecked {
				continue
			}
			homeChecked = true
			res, err := f.checkHomepage(ctx, homeURL, homeHTML, link)
			if err != nil {
				return nil, err
			}
			if res != nil {
				log.Info("Found contact form on homepage", zap.String("url", link))
				return res, nil
			}
			continue
		}

		res, err := f.probe(ctx, link, types.DiscoveryLinkText, visited)
		if err != nil {
			return nil, err
		}
		if res != nil {
			log.Info("Found contact page via link", zap.String("url", link))
			return res, nil
		}
	}

	log.Info("No contact page found")
	return nil, nil
}

// checkHomepage looks for a form in the cached homepage, going back to it if
// the session has since moved elsewhere.
func (f *Finder) checkHomepage(ctx context.Context, homeURL, homeHTML, link string) (*Result, error) {
	set, err := forms.Locate(homeHTML, homeURL)
	if err != nil || set == nil {
		return nil, nil
	}

	if loc, err := f.session.Location(ctx); err != nil || types.NormalizeURL(loc) != types.NormalizeURL(homeURL) {
		if err := f.session.Navigate(ctx, homeURL); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, nil
		}
	}

	return &Result{
		Candidate: types.ContactPageCandidate{URL: link, DiscoveryMethod: types.DiscoveryLinkText, HasForm: true},
		Form:      set,
	}, nil
}

// probe navigates to candidate once per Find and reports whether it holds a form.
// Only context errors are returned; any other failure means "not this one".
func (f *Finder) probe(ctx context.Context, candidate string, method types.DiscoveryMethod, visited map[string]bool) (*Result, error) {
	key := types.NormalizeURL(candidate)
	if visited[key] {
		return nil, nil
	}
	visited[key] = true

	if err := f.session.Navigate(ctx, candidate); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.log.Debug("Candidate failed to load", zap.String("url", candidate), zap.Error(err))
		return nil, nil
	}

	html, err := f.session.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.log.Debug("Failed to read candidate", zap.String("url", candidate), zap.Error(err))
		return nil, nil
	}

	set, err := forms.Locate(html, candidate)
	if err != nil || set == nil {
		f.log.Debug("Candidate has no qualifying form", zap.String("url", candidate))
		return nil, nil
	}

	return &Result{
		Candidate: types.ContactPageCandidate{URL: candidate, DiscoveryMethod: method, HasForm: true},
		Form:      set,
	}, nil
}
