package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/outreach-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTargets(t *testing.T) {
	content := "website_url,restaurant_name\n" +
		"https://a.example,Alpha Bistro\n" +
		"b.example,\"Beta, Grill\"\n" +
		"\n" +
		"  http://c.example/  , Gamma \n"

	path := filepath.Join(t.TempDir(), "restaurants.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	targets, err := ReadTargets(path)
	require.NoError(t, err)

	assert.Equal(t, []types.Target{
		{URL: "https://a.example", DisplayName: "Alpha Bistro"},
		{URL: "https://b.example", DisplayName: "Beta, Grill"},
		{URL: "http://c.example/", DisplayName: "Gamma"},
	}, targets)
}

func TestParseTargets_ExtraColumnsAndOrder(t *testing.T) {
	content := "\ufeffStatus,Restaurant_Name,contact_page_url,Website_URL\n" +
		"sent,Alpha,https://a.example/contact,https://a.example\n"

	targets, err := ParseTargets(strings.NewReader(content), "results.csv")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "https://a.example", targets[0].URL)
	assert.Equal(t, "Alpha", targets[0].DisplayName)
}

func TestParseTargets_InvalidURLKept(t *testing.T) {
	content := "website_url,restaurant_name\nftp://files.example,Files\n"

	targets, err := ParseTargets(strings.NewReader(content), "in.csv")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "ftp://files.example", targets[0].URL)
}

func TestParseTargets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"empty file", "", "file is empty"},
		{"missing column", "website_url,name\nhttps://a.example,A\n", "header must contain"},
		{"malformed row", "website_url,restaurant_name\n\"unterminated,A\n", "malformed row"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTargets(strings.NewReader(tt.content), "in.csv")
			require.Error(t, err)

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "in.csv")
		})
	}
}

func TestReadTargets_FileNotFound(t *testing.T) {
	_, err := ReadTargets(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNormalizeTargetURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"https://a.example", "https://a.example", false},
		{"HTTP://a.example/menu", "http://a.example/menu", false},
		{"a.example", "https://a.example", false},
		{"www.a.example/contact", "https://www.a.example/contact", false},
		{"//a.example", "https://a.example", false},
		{"", "", true},
		{"   ", "", true},
		{"ftp://a.example", "", true},
		{"https://", "", true},
		{"not a host", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeTargetURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidURL))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestInputError_Format(t *testing.T) {
	err := &InputError{Path: "in.csv", Line: 3, Message: "malformed row"}
	assert.Equal(t, "input error at in.csv:3: malformed row", err.Error())
	assert.Nil(t, err.Unwrap())
}
