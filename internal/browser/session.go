// Package browser drives a real browser page for contact page discovery and form submission.
package browser

import (
	"context"
	"fmt"
	"time"
)

// Session is one browser page. All operations act on the page's current document.
// A Session is not safe for concurrent use.
type Session interface {
	// Navigate loads url and waits for the document to settle.
	// HTTP statuses of 400 and above are reported as a *NavigationError.
	Navigate(ctx context.Context, url string) error
	// Location returns the URL of the current document.
	Location(ctx context.Context) (string, error)
	// HTML returns the serialized current document.
	HTML(ctx context.Context) (string, error)
	// Fill replaces the value of the element matching selector.
	Fill(ctx context.Context, selector, value string) error
	// Click clicks the element matching selector.
	Click(ctx context.Context, selector string) error
	// Check ticks the checkbox matching selector unless it is already ticked.
	Check(ctx context.Context, selector string) error
	// Close releases the page and its browser.
	Close() error
}

// NavigationError is returned when a page cannot be loaded.
type NavigationError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Cause      error
}

func (e *NavigationError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Cause)
	case e.StatusCode > 0:
		return fmt.Sprintf("navigation to %s failed: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("navigation to %s failed", e.URL)
	}
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// ElementError is returned when an element operation fails.
type ElementError struct {
	Action   string
	Selector string
	Cause    error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Selector, e.Cause)
}

func (e *ElementError) Unwrap() error {
	return e.Cause
}

// WaitFor polls check every interval until it reports true or timeout elapses.
// Errors from check are treated as "not yet". It returns true on success and
// false on timeout; a cancelled ctx returns false with ctx.Err().
func WaitFor(ctx context.Context, interval, timeout time.Duration, check func(context.Context) (bool, error)) (bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok, err := check(ctx); err == nil && ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			// One last look so a signal arriving with the deadline is not lost.
			ok, err := check(ctx)
			return err == nil && ok, nil
		case <-ticker.C:
		}
	}
}
