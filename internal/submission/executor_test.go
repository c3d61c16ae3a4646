package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/outreach-agent/internal/browser"
	"github.com/jonathan/outreach-agent/internal/browser/browsertest"
	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactURL = "https://a.example/contact"

const contactHTML = `<html><body><h1>Contact</h1><form>
	<input id="name"><input id="email" type="email"><textarea id="message"></textarea>
	<input id="phone" type="tel" required><input id="consent" type="checkbox" required>
	<button id="send">Send</button>
</form></body></html>`

var values = Values{Name: "Webb", Email: "webb@example.com", Message: "Hi Joe's", Phone: "555-123-4567"}

func fullMapping() types.FieldMapping {
	return types.FieldMapping{
		Name:               &types.ElementRef{Selector: "#name"},
		Email:              &types.ElementRef{Selector: "#email"},
		Message:            &types.ElementRef{Selector: "#message"},
		Phone:              &types.ElementRef{Selector: "#phone", Required: true},
		RequiredCheckboxes: []types.ElementRef{{Selector: "#consent"}},
		Submit:             &types.ElementRef{Selector: "#send"},
	}
}

func loadedSession(t *testing.T) *browsertest.Session {
	t.Helper()
	session := browsertest.New(map[string]browsertest.Page{contactURL: {HTML: contactHTML}})
	require.NoError(t, session.Navigate(context.Background(), contactURL))
	return session
}

func TestSubmit_URLChange(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		s.Show("https://a.example/contact/done", "<html><body>Done</body></html>")
	}

	outcome, err := NewExecutor(session, time.Second, nil, nil).Submit(context.Background(), fullMapping(), values)
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
	assert.Contains(t, outcome.Evidence, "url changed")

	assert.Equal(t, map[string]string{
		"#name":    "Webb",
		"#email":   "webb@example.com",
		"#message": "Hi Joe's",
		"#phone":   "555-123-4567",
	}, session.Filled)
	assert.Equal(t, []string{"#consent"}, session.Checked)
	assert.Equal(t, []string{"#send"}, session.Clicked)
}

func TestSubmit_ConfirmationPhrase(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		s.Show(contactURL+"/", `<html><body><div class="alert">We’ll be in touch soon!</div></body></html>`)
	}

	outcome, err := NewExecutor(session, time.Second, nil, nil).Submit(context.Background(), fullMapping(), values)
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
	assert.Equal(t, `page contains "we'll be in touch"`, outcome.Evidence)
}

func TestSubmit_DelayedConfirmation(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		go func() {
			time.Sleep(300 * time.Millisecond)
			s.Show(contactURL, `<html><body>Message sent.</body></html>`)
		}()
	}

	outcome, err := NewExecutor(session, 2*time.Second, nil, nil).Submit(context.Background(), fullMapping(), values)
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
}

func TestSubmit_NoConfirmation(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		s.Show(contactURL, `<html><head><script>var thanks = 1;</script></head><body>Please fix the errors</body></html>`)
	}

	outcome, err := NewExecutor(session, 300*time.Millisecond, nil, nil).Submit(context.Background(), fullMapping(), values)
	require.NoError(t, err)
	assert.False(t, outcome.Sent)
	assert.Equal(t, "no confirmation detected", outcome.Reason)
}

func TestSubmit_CustomPhrases(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		s.Show(contactURL, `<html><body>Gracias por su mensaje</body></html>`)
	}

	outcome, err := NewExecutor(session, 300*time.Millisecond, []string{"Gracias"}, nil).Submit(context.Background(), fullMapping(), values)
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
}

func TestSubmit_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *types.FieldMapping)
		reason string
	}{
		{"email", func(m *types.FieldMapping) { m.Email = nil }, "missing required field: email"},
		{"submit", func(m *types.FieldMapping) { m.Submit = nil }, "missing required field: submit"},
		{"both reports email first", func(m *types.FieldMapping) { m.Email = nil; m.Submit = nil }, "missing required field: email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := loadedSession(t)
			mapping := fullMapping()
			tt.mutate(&mapping)

			outcome, err := NewExecutor(session, time.Second, nil, nil).Submit(context.Background(), mapping, values)
			require.NoError(t, err)
			assert.False(t, outcome.Sent)
			assert.Equal(t, tt.reason, outcome.Reason)
			assert.Empty(t, session.Filled, "page must not be touched")
			assert.Empty(t, session.Clicked)
		})
	}
}

func TestSubmit_OptionalFields(t *testing.T) {
	session := loadedSession(t)
	session.OnClick["#send"] = func(s *browsertest.Session) {
		s.Show("https://a.example/thanks", "<html><body></body></html>")
	}
	mapping := types.FieldMapping{
		Email:  &types.ElementRef{Selector: "#email"},
		Phone:  &types.ElementRef{Selector: "#phone"},
		Submit: &types.ElementRef{Selector: "#send"},
	}

	outcome, err := NewExecutor(session, time.Second, nil, nil).Submit(context.Background(), mapping, values)
	require.NoError(t, err)
	assert.True(t, outcome.Sent)
	assert.Equal(t, map[string]string{"#email": "webb@example.com"}, session.Filled, "optional phone is left empty")
}

func TestSubmit_BrowserErrorPropagates(t *testing.T) {
	session := loadedSession(t)
	session.FailOn["#message"] = errors.New("element is not interactable")

	_, err := NewExecutor(session, time.Second, nil, nil).Submit(context.Background(), fullMapping(), values)
	require.Error(t, err)

	var elErr *browser.ElementError
	require.True(t, errors.As(err, &elErr))
	assert.Equal(t, "fill", elErr.Action)
	assert.Empty(t, session.Clicked)
}

func TestSubmit_ContextDeadline(t *testing.T) {
	session := loadedSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecutor(session, 5*time.Second, nil, nil).Submit(ctx, fullMapping(), values)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestURLChanged(t *testing.T) {
	assert.False(t, urlChanged("https://a.example/contact", "https://a.example/contact/"))
	assert.False(t, urlChanged("https://a.example/contact", ""))
	assert.True(t, urlChanged("https://a.example/contact", "https://a.example/contact?sent=1"))
}
