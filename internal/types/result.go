package types

import (
	"strings"
	"time"
)

// StatusKind is the classification of a target's outcome.
type StatusKind string

const (
	// StatusSent means the form was submitted and a confirmation signal was seen
	StatusSent StatusKind = "sent"
	// StatusNoContactPage means no candidate page with a qualifying form was found
	StatusNoContactPage StatusKind = "no_contact_page"
	// StatusFailed is an identified, recoverable submission problem
	StatusFailed StatusKind = "failed"
	// StatusError is an unexpected fault caught at the target boundary
	StatusError StatusKind = "error"
	// StatusSkipped means the target was not processed in this run
	StatusSkipped StatusKind = "skipped"
)

// legacyNoContactPage is how older output lists spelled StatusNoContactPage.
const legacyNoContactPage = "no contact page found"

// Status is a StatusKind with an optional reason (failed and error carry one).
type Status struct {
	Kind   StatusKind
	Reason string
}

// Sent returns the sent status.
func Sent() Status { return Status{Kind: StatusSent} }

// NoContactPage returns the no_contact_page status.
func NoContactPage() Status { return Status{Kind: StatusNoContactPage} }

// Failed returns a failed status with a reason.
func Failed(reason string) Status { return Status{Kind: StatusFailed, Reason: reason} }

// Errored returns an error status with a reason.
func Errored(reason string) Status { return Status{Kind: StatusError, Reason: reason} }

// Skipped returns a skipped status with a reason.
func Skipped(reason string) Status { return Status{Kind: StatusSkipped, Reason: reason} }

// String renders the status the way it is stored in the output list,
// e.g. "sent" or "failed: missing required field: email".
func (s Status) String() string {
	if s.Reason == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ": " + s.Reason
}

// IsSent reports whether the status is sent.
func (s Status) IsSent() bool {
	return s.Kind == StatusSent
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// ParseStatus parses a stored status string. Unrecognized text is treated as
// an error status carrying the text as its reason, so it is retried on rerun.
func ParseStatus(raw string) Status {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case lower == "":
		return Status{}
	case lower == string(StatusSent):
		return Sent()
	case lower == string(StatusNoContactPage), lower == legacyNoContactPage:
		return NoContactPage()
	}
	for _, kind := range []StatusKind{StatusFailed, StatusError, StatusSkipped} {
		prefix := string(kind)
		if lower == prefix {
			return Status{Kind: kind}
		}
		if strings.HasPrefix(lower, prefix+":") {
			return Status{Kind: kind, Reason: strings.TrimSpace(raw[len(prefix)+1:])}
		}
	}
	return Errored(raw)
}

// ResultRecord is the durable per-target outcome. Its presence with a sent
// status is the resume-skip signal.
type ResultRecord struct {
	URL            string    `json:"website_url"`
	DisplayName    string    `json:"restaurant_name"`
	ContactPageURL string    `json:"contact_page_url,omitempty"` // empty when no page was found
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id,omitempty"`
}

// Key returns the identity of the record. It matches Target.Key for the same
// site, even when the stored URL has no scheme.
func (r ResultRecord) Key() string {
	return TargetKey(r.URL)
}

// Outcome is the result of processing one target through the pipeline.
type Outcome struct {
	Status         Status
	ContactPageURL string
	Navigated      bool // whether any navigation was issued for the target
}

// SubmissionOutcome is the result of a fill-and-submit attempt.
type SubmissionOutcome struct {
	Sent     bool
	Reason   string // why the submission failed
	Evidence string // which verification signal confirmed success
}
