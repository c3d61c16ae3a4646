package forms

import (
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

// match decides whether an element can take a role.
type match func(el types.ElementRef) bool

// roleRules lists, per role, the matchers tried in order. Roles are resolved in
// slice order, and an element holding a role is never given a second one.
var roleRules = []struct {
	role    types.Role
	matches []match
}{
	{types.RoleEmail, []match{
		func(el types.ElementRef) bool { return isTextInput(el) && el.Type == "email" },
		func(el types.ElementRef) bool { return isTextInput(el) && containsAny(nameOrID(el), emailWords) },
		func(el types.ElementRef) bool { return isTextInput(el) && containsAny(visibleHints(el), emailWords) },
	}},
	{types.RoleMessage, []match{
		func(el types.ElementRef) bool { return el.IsTextarea() && containsAny(el.Descriptor(), messageWords) },
		func(el types.ElementRef) bool { return el.IsTextarea() },
		func(el types.ElementRef) bool { return isTextInput(el) && containsAny(el.Descriptor(), messageWords) },
	}},
	{types.RoleName, []match{
		func(el types.ElementRef) bool {
			d := el.Descriptor()
			return isTextInput(el) && strings.Contains(d, "name") && !containsAny(d, notSenderName)
		},
		func(el types.ElementRef) bool {
			return isTextInput(el) && (el.Type == "" || el.Type == "text") && !containsAny(el.Descriptor(), notNameFallback)
		},
	}},
	{types.RolePhone, []match{
		func(el types.ElementRef) bool { return isTextInput(el) && el.Type == "tel" },
		func(el types.ElementRef) bool { return isTextInput(el) && containsAny(el.Descriptor(), phoneWords) },
	}},
	{types.RoleSubmit, []match{
		func(el types.ElementRef) bool { return el.IsClickable() && el.Type == "submit" },
		func(el types.ElementRef) bool {
			return el.IsClickable() && containsAny(strings.ToLower(el.Text), submitPhrases)
		},
		func(el types.ElementRef) bool { return el.Tag == "button" && el.Type == "" },
		func(el types.ElementRef) bool { return el.Tag == "input" && el.Type == "image" },
	}},
}

var (
	emailWords      = []string{"email", "e-mail"}
	messageWords    = []string{"message", "inquiry", "enquiry", "comment", "question", "details"}
	notSenderName   = []string{"last", "sur", "user", "company", "business", "restaurant"}
	notNameFallback = []string{"phone", "tel", "subject", "company", "business", "website", "address", "search"}
	phoneWords      = []string{"phone", "mobile", "tel"}
	consentWords    = []string{"agree", "consent", "accept", "privacy", "terms", "gdpr", "i have read"}
)

// MapRules resolves roles from element attributes alone (Tier 1).
// It never fails; roles it cannot resolve stay nil.
func MapRules(set *types.FormElementSet) types.FieldMapping {
	var mapping types.FieldMapping
	if set == nil {
		return mapping
	}

	for _, rr := range roleRules {
		for _, m := range rr.matches {
			if el, ok := firstUnassigned(set.Elements, &mapping, m); ok {
				mapping.Set(rr.role, el)
				break
			}
		}
	}

	for _, el := range set.Elements {
		if !el.IsCheckbox() || mapping.IsAssigned(el.Selector) {
			continue
		}
		if el.Required || containsAny(el.Descriptor()+" "+strings.ToLower(el.Text), consentWords) {
			mapping.RequiredCheckboxes = append(mapping.RequiredCheckboxes, el)
		}
	}

	return mapping
}

func firstUnassigned(elements []types.ElementRef, mapping *types.FieldMapping, m match) (types.ElementRef, bool) {
	for _, el := range elements {
		if mapping.IsAssigned(el.Selector) {
			continue
		}
		if m(el) {
			return el, true
		}
	}
	return types.ElementRef{}, false
}

// isTextInput reports whether el is a single-line input that accepts text.
func isTextInput(el types.ElementRef) bool {
	return el.IsFillable() && !el.IsTextarea()
}

func nameOrID(el types.ElementRef) string {
	return strings.ToLower(el.Name + " " + el.ID)
}

func visibleHints(el types.ElementRef) string {
	return strings.ToLower(el.Placeholder + " " + el.Label + " " + el.AriaLabel)
}
