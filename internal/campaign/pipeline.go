// Package campaign drives contact discovery and form submission across a list of targets.
package campaign

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/crawling"
	"github.com/jonathan/outreach-agent/internal/ingestion"
	"github.com/jonathan/outreach-agent/internal/submission"
	"github.com/jonathan/outreach-agent/internal/types"
)

// ContactFinder locates a site's contact page and form.
type ContactFinder interface {
	Find(ctx context.Context, rootURL string) (*crawling.Result, error)
}

// FieldMapper resolves the roles of a form's elements.
type FieldMapper interface {
	Map(ctx context.Context, set *types.FormElementSet) types.FieldMapping
}

// Submitter fills and submits a mapped form.
type Submitter interface {
	Submit(ctx context.Context, mapping types.FieldMapping, values submission.Values) (types.SubmissionOutcome, error)
}

// Sender is who the messages come from.
type Sender struct {
	Name  string
	Email string
	Phone string
	// Message renders the outreach message for a target's display name.
	Message func(displayName string) string
}

// Pipeline processes one target from discovery through verification.
type Pipeline struct {
	finder    ContactFinder
	mapper    FieldMapper
	submitter Submitter
	sender    Sender
	log       *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(finder ContactFinder, mapper FieldMapper, submitter Submitter, sender Sender, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{finder: finder, mapper: mapper, submitter: submitter, sender: sender, log: logger}
}

// Process runs one target and classifies the result. It never fails: every
// error, including a panic, is converted into an error status.
func (p *Pipeline) Process(ctx context.Context, target types.Target) (out types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Recovered from panic while processing target", zap.String("url", target.URL), zap.Any("panic", r))
			out.Status = types.Errored(fmt.Sprintf("panic: %v", r))
		}
	}()

	rootURL, err := ingestion.NormalizeTargetURL(target.URL)
	if err != nil {
		return types.Outcome{Status: types.Errored(err.Error())}
	}

	out.Navigated = true
	found, err := p.finder.Find(ctx, rootURL)
	if err != nil {
		out.Status = errorStatus(err)
		return out
	}
	if found == nil {
		out.Status = types.NoContactPage()
		return out
	}
	out.ContactPageURL = found.Candidate.URL

	mapping := p.mapper.Map(ctx, found.Form)
	p.log.Debug("Mapped form fields", zap.String("page", found.Candidate.URL), zap.Any("roles", mapping.Resolved()))

	message := target.DisplayName
	if p.sender.Message != nil {
		message = p.sender.Message(target.DisplayName)
	}
	result, err := p.submitter.Submit(ctx, mapping, submission.Values{
		Name:    p.sender.Name,
		Email:   p.sender.Email,
		Message: message,
		Phone:   p.sender.Phone,
	})
	if err != nil {
		out.Status = errorStatus(err)
		return out
	}

	if result.Sent {
		out.Status = types.Sent()
	} else {
		out.Status = types.Failed(result.Reason)
	}
	return out
}

// errorStatus maps an unexpected error to an error status; deadlines read as "timeout".
func errorStatus(err error) types.Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.Errored("timeout")
	}
	return types.Errored(err.Error())
}
