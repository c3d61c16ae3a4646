// Package submission fills a mapped contact form, submits it and verifies the result.
package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/browser"
	"github.com/jonathan/outreach-agent/internal/types"
)

// DefaultConfirmationPhrases are page texts taken as proof that a message was accepted.
var DefaultConfirmationPhrases = []string{
	"thank you",
	"thanks",
	"success",
	"received",
	"submitted",
	"we'll be in touch",
	"message sent",
	"we received your message",
}

// pollInterval is how often the page is inspected during verification.
const pollInterval = 250 * time.Millisecond

// Values are what gets typed into the form.
type Values struct {
	Name    string
	Email   string
	Message string
	Phone   string
}

// Executor submits forms through a browser session.
type Executor struct {
	session browser.Session
	window  time.Duration
	phrases []string
	log     *zap.Logger
}

// NewExecutor creates an Executor. window bounds the wait for a confirmation
// signal; phrases replace the defaults when non-empty.
func NewExecutor(session browser.Session, window time.Duration, phrases []string, logger *zap.Logger) *Executor {
	if len(phrases) == 0 {
		phrases = DefaultConfirmationPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{session: session, window: window, phrases: lowered, log: logger.Named("submit")}
}

// Submit fills the resolved fields of mapping on the current page, ticks the
// required checkboxes, clicks submit and waits for a confirmation signal: the
// URL changing or a confirmation phrase appearing. Missing email or submit
// fails before the page is touched. Errors are returned only for browser
// failures while filling or clicking.
func (e *Executor) Submit(ctx context.Context, mapping types.FieldMapping, values Values) (types.SubmissionOutcome, error) {
	for _, role := range []types.Role{types.RoleEmail, types.RoleSubmit} {
		if mapping.Get(role) == nil {
			return types.SubmissionOutcome{Reason: fmt.Sprintf("missing required field: %s", role)}, nil
		}
	}

	before, err := e.session.Location(ctx)
	if err != nil {
		return types.SubmissionOutcome{}, fmt.Errorf("failed to read pre-submit location: %w", err)
	}

	fills := []struct {
		role  types.Role
		value string
	}{
		{types.RoleName, values.Name},
		{types.RoleEmail, values.Email},
		{types.RoleMessage, values.Message},
	}
	for _, f := range fills {
		el := mapping.Get(f.role)
		if el == nil {
			continue
		}
		if err := e.session.Fill(ctx, el.Selector, f.value); err != nil {
			return types.SubmissionOutcome{}, err
		}
		e.log.Debug("Filled field", zap.String("role", string(f.role)), zap.String("selector", el.Selector))
	}

	if phone := mapping.Phone; phone != nil && phone.Required {
		if err := e.session.Fill(ctx, phone.Selector, values.Phone); err != nil {
			return types.SubmissionOutcome{}, err
		}
		e.log.Debug("Filled required phone field", zap.String("selector", phone.Selector))
	}

	for _, cb := range mapping.RequiredCheckboxes {
		if err := e.session.Check(ctx, cb.Selector); err != nil {
			return types.SubmissionOutcome{}, err
		}
		e.log.Debug("Checked checkbox", zap.String("selector", cb.Selector))
	}

	if err := e.session.Click(ctx, mapping.Submit.Selector); err != nil {
		return types.SubmissionOutcome{}, err
	}
	e.log.Debug("Clicked submit", zap.String("selector", mapping.Submit.Selector))

	return e.verify(ctx, before)
}

// verify polls the page until a success signal appears or the window closes.
// Transient read errors while the page is changing count as "no signal yet".
func (e *Executor) verify(ctx context.Context, before string) (types.SubmissionOutcome, error) {
	var evidence string
	ok, err := browser.WaitFor(ctx, pollInterval, e.window, func(ctx context.Context) (bool, error) {
		loc, err := e.session.Location(ctx)
		if err == nil && urlChanged(before, loc) {
			evidence = "url changed to " + loc
			return true, nil
		}

		html, err := e.session.HTML(ctx)
		if err != nil {
			return false, err
		}
		if phrase, found := e.findPhrase(html); found {
			evidence = fmt.Sprintf("page contains %q", phrase)
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return types.SubmissionOutcome{}, err
	}
	if !ok {
		return types.SubmissionOutcome{Reason: "no confirmation detected"}, nil
	}

	e.log.Info("Submission confirmed", zap.String("evidence", evidence))
	return types.SubmissionOutcome{Sent: true, Evidence: evidence}, nil
}

// findPhrase looks for a confirmation phrase in the visible body text.
func (e *Executor) findPhrase(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript, template").Remove()
	text := strings.ToLower(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	text = strings.ReplaceAll(text, "’", "'")

	for _, phrase := range e.phrases {
		if strings.Contains(text, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// urlChanged compares locations ignoring a trailing slash.
func urlChanged(before, after string) bool {
	if after == "" {
		return false
	}
	return strings.TrimSuffix(before, "/") != strings.TrimSuffix(after, "/")
}
