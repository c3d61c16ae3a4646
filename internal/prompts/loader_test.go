package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_FormFieldPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("forms.json", "identify-form-fields")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.FormHTML}}")
	assert.Contains(t, prompt, "unresolved")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("forms.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
	assert.NotPanics(t, func() {
		assert.NotEmpty(t, MustGet("forms.json", "identify-form-fields"))
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		expected string
	}{
		{"substitutes", "Form: {{.FormHTML}} ({{.Site}})", map[string]string{"FormHTML": "<form></form>", "Site": "a.example"}, "Form: <form></form> (a.example)"},
		{"no placeholders", "plain", map[string]string{"Key": "Value"}, "plain"},
		{"missing value stays", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Format(tt.template, tt.data))
		})
	}
}
