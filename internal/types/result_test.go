package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected string
	}{
		{"sent", Sent(), "sent"},
		{"no contact page", NoContactPage(), "no_contact_page"},
		{"failed with reason", Failed("missing required field: email"), "failed: missing required field: email"},
		{"error with reason", Errored("timeout"), "error: timeout"},
		{"skipped", Skipped("already sent"), "skipped: already sent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Status
	}{
		{"empty", "", Status{}},
		{"sent", "sent", Sent()},
		{"sent with whitespace and case", "  Sent ", Sent()},
		{"no contact page", "no_contact_page", NoContactPage()},
		{"legacy no contact page", "no contact page found", NoContactPage()},
		{"failed with reason", "failed: no confirmation detected", Failed("no confirmation detected")},
		{"failed reason keeps colons", "failed: missing required field: email", Failed("missing required field: email")},
		{"error with reason", "error: timeout", Errored("timeout")},
		{"bare failed", "failed", Status{Kind: StatusFailed}},
		{"unknown text", "Submission uncertain", Errored("Submission uncertain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseStatus(tt.input))
		})
	}
}

func TestParseStatus_RoundTripsString(t *testing.T) {
	for _, s := range []Status{Sent(), NoContactPage(), Failed("x: y"), Errored("timeout")} {
		assert.Equal(t, s, ParseStatus(s.String()))
	}
}

func TestResultRecord_JSONStatusIsString(t *testing.T) {
	rec := ResultRecord{
		URL:         "https://a.example",
		DisplayName: "Joe's",
		Status:      Failed("no confirmation detected"),
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	jsonBytes, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(jsonBytes), `"status":"failed: no confirmation detected"`)
	assert.NotContains(t, string(jsonBytes), "contact_page_url")

	var decoded ResultRecord
	require.NoError(t, json.Unmarshal(jsonBytes, &decoded))
	assert.Equal(t, rec.Status, decoded.Status)
}

func TestResultRecord_Key(t *testing.T) {
	rec := ResultRecord{URL: "HTTPS://A.Example/"}
	assert.Equal(t, "https://a.example", rec.Key())
}

func TestResultRecord_KeyMatchesTarget(t *testing.T) {
	tests := []struct {
		stored string
		target string
	}{
		{"joes.com", "joes.com"},
		{"joes.com", "https://joes.com/"},
		{"JOES.com/", "https://joes.com"},
		{"http://joes.com", "http://joes.com/"},
		{"//joes.com", "joes.com"},
	}

	for _, tt := range tests {
		t.Run(tt.stored+" vs "+tt.target, func(t *testing.T) {
			rec := ResultRecord{URL: tt.stored}
			target := Target{URL: tt.target}
			assert.Equal(t, target.Key(), rec.Key())
		})
	}

	assert.NotEqual(t, Target{URL: "http://joes.com"}.Key(), Target{URL: "https://joes.com"}.Key())
	assert.Equal(t, "ftp://d.example", Target{URL: "ftp://d.example"}.Key(), "invalid URLs keep their plain form")
}
