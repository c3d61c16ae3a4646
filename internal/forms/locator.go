// Package forms finds contact forms in a page and maps their elements to field roles.
package forms

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/outreach-agent/internal/types"
)

// containerSelector matches form-like containers, scanned in document order.
const containerSelector = "form, [role='form']"

// skippedInputTypes are inputs never considered for a role.
var skippedInputTypes = map[string]bool{
	"hidden":   true,
	"password": true,
	"file":     true,
	"radio":    true,
	"reset":    true,
}

// submitPhrases mark a button as submitting the form when it carries no explicit type.
var submitPhrases = []string{"send", "submit", "contact", "enquire", "inquire", "get in touch"}

// LocateError represents a failure to parse a page for forms.
type LocateError struct {
	PageURL string
	Cause   error
}

func (e *LocateError) Error() string {
	return fmt.Sprintf("form locate error for %s: %v", e.PageURL, e.Cause)
}

func (e *LocateError) Unwrap() error {
	return e.Cause
}

// Locate returns the elements of the first form-like container in pageHTML that
// holds at least one text input or textarea and at least one submit-capable
// control. It returns nil when the page has no such container.
func Locate(pageHTML, pageURL string) (*types.FormElementSet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &LocateError{PageURL: pageURL, Cause: err}
	}

	var found *types.FormElementSet
	doc.Find(containerSelector).EachWithBreak(func(_ int, container *goquery.Selection) bool {
		elements := extractElements(doc, container)
		if !qualifies(elements) {
			return true
		}

		html, _ := goquery.OuterHtml(container)
		found = &types.FormElementSet{
			PageURL:           pageURL,
			ContainerSelector: uniqueSelector(doc, container),
			ContainerHTML:     html,
			Elements:          elements,
		}
		return false
	})

	return found, nil
}

// HasForm reports whether pageHTML contains a qualifying form container.
func HasForm(pageHTML string) bool {
	set, err := Locate(pageHTML, "")
	return err == nil && set != nil
}

// qualifies reports whether a container has a text, email or textarea field and a way to submit it.
// Search and numeric inputs alone do not make a contact form.
func qualifies(elements []types.ElementRef) bool {
	var fillable, submittable bool
	for _, el := range elements {
		if el.IsContactInput() {
			fillable = true
		}
		if el.IsExplicitSubmit() || (el.IsClickable() && containsAny(strings.ToLower(el.Text), submitPhrases)) {
			submittable = true
		}
	}
	return fillable && submittable
}

// extractElements collects the interactive elements of a container in document order.
func extractElements(doc *goquery.Document, container *goquery.Selection) []types.ElementRef {
	var elements []types.ElementRef
	container.Find("input, textarea, button").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		inputType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if tag == "input" && skippedInputTypes[inputType] {
			return
		}

		_, required := s.Attr("required")
		if strings.EqualFold(s.AttrOr("aria-required", ""), "true") {
			required = true
		}

		text := cleanText(s.Text())
		if tag == "input" {
			text = cleanText(s.AttrOr("value", ""))
		}

		elements = append(elements, types.ElementRef{
			Selector:    uniqueSelector(doc, s),
			Tag:         tag,
			Type:        inputType,
			Name:        s.AttrOr("name", ""),
			ID:          s.AttrOr("id", ""),
			Placeholder: s.AttrOr("placeholder", ""),
			Label:       labelFor(doc, s),
			AriaLabel:   s.AttrOr("aria-label", ""),
			Text:        text,
			Required:    required,
		})
	})
	return elements
}

// labelFor returns the text of the label associated with an element, either
// by a matching for attribute or by wrapping it.
func labelFor(doc *goquery.Document, s *goquery.Selection) string {
	if id := s.AttrOr("id", ""); id != "" {
		label := doc.Find("label").FilterFunction(func(_ int, l *goquery.Selection) bool {
			return l.AttrOr("for", "") == id
		}).First()
		if label.Length() > 0 {
			return cleanText(label.Text())
		}
	}
	if wrapping := s.Closest("label"); wrapping.Length() > 0 {
		return cleanText(wrapping.Text())
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
