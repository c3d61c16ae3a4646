// Package ingestion reads the target list and normalizes target URLs.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	// ColumnURL is the required column holding each target's website
	ColumnURL = "website_url"
	// ColumnName is the required column holding each target's display name
	ColumnName = "restaurant_name"
)

// ErrInvalidURL is returned when a target URL has no usable host
var ErrInvalidURL = types.ErrInvalidURL

// ReadTargets loads targets from a CSV file with website_url and
// restaurant_name columns. Extra columns are ignored, so a previous output
// list can be used as input. Blank rows are skipped.
//
// Rows whose URL is invalid are still returned, unchanged, so the run can
// record an error for them; see NormalizeTargetURL.
func ReadTargets(path string) ([]types.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &InputError{Path: path, Message: "file not found", Cause: err}
		}
		return nil, &InputError{Path: path, Message: "failed to open file", Cause: err}
	}
	defer func() { _ = f.Close() }()

	return ParseTargets(f, path)
}

// ParseTargets reads targets from CSV content. name is used in error messages.
func ParseTargets(r io.Reader, name string) ([]types.Target, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &InputError{Path: name, Message: "file is empty"}
	}
	if err != nil {
		return nil, &InputError{Path: name, Line: 1, Message: "failed to read header", Cause: err}
	}

	urlCol, nameCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case ColumnURL:
			urlCol = i
		case ColumnName:
			nameCol = i
		}
	}
	if urlCol < 0 || nameCol < 0 {
		return nil, &InputError{
			Path:    name,
			Line:    1,
			Message: fmt.Sprintf("header must contain %q and %q columns", ColumnURL, ColumnName),
		}
	}

	var targets []types.Target
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return nil, &InputError{Path: name, Line: line, Message: "malformed row", Cause: err}
		}

		rawURL := strings.TrimSpace(field(record, urlCol))
		displayName := strings.TrimSpace(field(record, nameCol))
		if rawURL == "" && displayName == "" {
			continue
		}

		if normalized, err := NormalizeTargetURL(rawURL); err == nil {
			rawURL = normalized
		}
		targets = append(targets, types.Target{URL: rawURL, DisplayName: displayName})
	}

	return targets, nil
}

// NormalizeTargetURL prepends https:// when the scheme is missing and checks
// that the result is an http(s) URL with a host.
func NormalizeTargetURL(raw string) (string, error) {
	return types.NormalizeTargetURL(raw)
}

// field returns record[i], or "" when the row is shorter than the header.
func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
