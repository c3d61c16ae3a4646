// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/outreach-agent/internal/browser"
	"github.com/jonathan/outreach-agent/internal/types"
)

// Page is a scripted response for one URL.
type Page struct {
	HTML   string
	Status int   // HTTP status; 0 means 200
	Err    error // returned from Navigate instead of loading the page
}

// Session is a fake browser.Session. Pages are looked up by normalized URL;
// unknown URLs answer 404.
type Session struct {
	mu sync.Mutex

	Pages map[string]Page
	// OnClick runs after a click on the given selector, e.g. to simulate a redirect.
	OnClick map[string]func(s *Session)
	// FailOn makes Fill, Click or Check fail for the given selector.
	FailOn map[string]error

	location string
	html     string

	Navigations []string
	Filled      map[string]string
	Clicked     []string
	Checked     []string
	Closed      bool
}

var _ browser.Session = (*Session)(nil)

// New returns a fake session serving pages.
func New(pages map[string]Page) *Session {
	normalized := make(map[string]Page, len(pages))
	for u, p := range pages {
		normalized[types.NormalizeURL(u)] = p
	}
	return &Session{
		Pages:   normalized,
		OnClick: make(map[string]func(*Session)),
		FailOn:  make(map[string]error),
		Filled:  make(map[string]string),
	}
}

// Navigate implements browser.Session.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Navigations = append(s.Navigations, url)
	page, ok := s.Pages[types.NormalizeURL(url)]
	if !ok {
		return &browser.NavigationError{URL: url, StatusCode: 404}
	}
	if page.Err != nil {
		return page.Err
	}
	if page.Status >= 400 {
		return &browser.NavigationError{URL: url, StatusCode: page.Status}
	}
	s.location = url
	s.html = page.HTML
	return nil
}

// Location implements browser.Session.
func (s *Session) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, nil
}

// HTML implements browser.Session.
func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

// Fill implements browser.Session.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.elementErr(ctx, "fill", selector); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Filled[selector] = value
	return nil
}

// Click implements browser.Session.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.elementErr(ctx, "click", selector); err != nil {
		return err
	}
	s.mu.Lock()
	s.Clicked = append(s.Clicked, selector)
	hook := s.OnClick[selector]
	s.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return nil
}

// Check implements browser.Session.
func (s *Session) Check(ctx context.Context, selector string) error {
	if err := s.elementErr(ctx, "check", selector); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Checked = append(s.Checked, selector)
	return nil
}

// Close implements browser.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Show replaces the current document, as a script or redirect would.
func (s *Session) Show(location, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = location
	s.html = html
}

// NavigationCount returns how many times Navigate was called.
func (s *Session) NavigationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Navigations)
}

func (s *Session) elementErr(ctx context.Context, action, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailOn[selector]; ok {
		return &browser.ElementError{Action: action, Selector: selector, Cause: err}
	}
	if s.html == "" {
		return &browser.ElementError{Action: action, Selector: selector, Cause: fmt.Errorf("no document loaded")}
	}
	return nil
}
