package types

import "strings"

// DiscoveryMethod records which strategy found a contact page.
type DiscoveryMethod string

const (
	// DiscoveryPattern means the page was found by probing a known path suffix
	DiscoveryPattern DiscoveryMethod = "pattern"
	// DiscoveryLinkText means the page was found by following a homepage link
	DiscoveryLinkText DiscoveryMethod = "link_text"
)

// ContactPageCandidate is a page believed to host a submittable contact form.
type ContactPageCandidate struct {
	URL             string          `json:"url"`
	DiscoveryMethod DiscoveryMethod `json:"discovery_method"`
	HasForm         bool            `json:"has_form"`
}

// ElementRef identifies one interactive element of a form, together with the
// accessible attributes used to decide its role.
type ElementRef struct {
	Selector    string `json:"selector"` // unique CSS selector in the page it was extracted from
	Tag         string `json:"tag"`      // lowercase tag name
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Label       string `json:"label,omitempty"`
	AriaLabel   string `json:"aria_label,omitempty"`
	Text        string `json:"text,omitempty"` // button text or value
	Required    bool   `json:"required,omitempty"`
}

// textInputTypes are input types that accept free text.
var textInputTypes = map[string]bool{
	"":       true,
	"text":   true,
	"email":  true,
	"tel":    true,
	"url":    true,
	"search": true,
	"number": true,
}

// IsTextarea reports whether the element is a textarea.
func (e ElementRef) IsTextarea() bool {
	return e.Tag == "textarea"
}

// IsFillable reports whether text can be typed into the element.
func (e ElementRef) IsFillable() bool {
	if e.IsTextarea() {
		return true
	}
	return e.Tag == "input" && textInputTypes[e.Type]
}

// IsContactInput reports whether the element takes a free-text reply:
// a textarea or a plain text or email input.
func (e ElementRef) IsContactInput() bool {
	if e.IsTextarea() {
		return true
	}
	return e.Tag == "input" && (e.Type == "" || e.Type == "text" || e.Type == "email")
}

// IsCheckbox reports whether the element is a checkbox input.
func (e ElementRef) IsCheckbox() bool {
	return e.Tag == "input" && e.Type == "checkbox"
}

// IsClickable reports whether the element can act as a button.
func (e ElementRef) IsClickable() bool {
	switch e.Tag {
	case "button":
		return true
	case "input":
		return e.Type == "submit" || e.Type == "button" || e.Type == "image"
	}
	return false
}

// IsExplicitSubmit reports whether the element submits its form natively.
func (e ElementRef) IsExplicitSubmit() bool {
	switch e.Tag {
	case "button":
		return e.Type == "" || e.Type == "submit"
	case "input":
		return e.Type == "submit" || e.Type == "image"
	}
	return false
}

// Descriptor returns the lowercase concatenation of the attributes that carry
// meaning for role detection.
func (e ElementRef) Descriptor() string {
	parts := []string{e.Name, e.ID, e.Placeholder, e.Label, e.AriaLabel}
	return strings.ToLower(strings.Join(parts, " "))
}

// FormElementSet is the raw set of interactive elements found inside one form container.
// It is transient and never persisted.
type FormElementSet struct {
	PageURL           string       `json:"page_url"`
	ContainerSelector string       `json:"container_selector"`
	ContainerHTML     string       `json:"-"`
	Elements          []ElementRef `json:"elements"`
}

// Find returns the element with the given selector.
func (s *FormElementSet) Find(selector string) (ElementRef, bool) {
	if s == nil {
		return ElementRef{}, false
	}
	for _, el := range s.Elements {
		if el.Selector == selector {
			return el, true
		}
	}
	return ElementRef{}, false
}

// Role is a semantic purpose a form element is assigned to.
type Role string

const (
	// RoleName is the sender name field
	RoleName Role = "name"
	// RoleEmail is the sender email field
	RoleEmail Role = "email"
	// RoleMessage is the free-text message field
	RoleMessage Role = "message"
	// RolePhone is the sender phone field, filled only when required
	RolePhone Role = "phone"
	// RoleSubmit is the control that submits the form
	RoleSubmit Role = "submit"
)

// FieldMapping maps semantic roles to form elements. Any role may be unresolved (nil).
type FieldMapping struct {
	Name               *ElementRef  `json:"name,omitempty"`
	Email              *ElementRef  `json:"email,omitempty"`
	Message            *ElementRef  `json:"message,omitempty"`
	Phone              *ElementRef  `json:"phone,omitempty"`
	RequiredCheckboxes []ElementRef `json:"required_checkboxes,omitempty"`
	Submit             *ElementRef  `json:"submit,omitempty"`
}

// Get returns the element resolved for a role, or nil.
func (m *FieldMapping) Get(role Role) *ElementRef {
	switch role {
	case RoleName:
		return m.Name
	case RoleEmail:
		return m.Email
	case RoleMessage:
		return m.Message
	case RolePhone:
		return m.Phone
	case RoleSubmit:
		return m.Submit
	}
	return nil
}

// Set assigns an element to a role. Unknown roles are ignored.
func (m *FieldMapping) Set(role Role, el ElementRef) {
	switch role {
	case RoleName:
		m.Name = &el
	case RoleEmail:
		m.Email = &el
	case RoleMessage:
		m.Message = &el
	case RolePhone:
		m.Phone = &el
	case RoleSubmit:
		m.Submit = &el
	}
}

// IsAssigned reports whether the element with this selector already holds a role.
func (m *FieldMapping) IsAssigned(selector string) bool {
	for _, role := range []Role{RoleName, RoleEmail, RoleMessage, RolePhone, RoleSubmit} {
		if el := m.Get(role); el != nil && el.Selector == selector {
			return true
		}
	}
	for _, cb := range m.RequiredCheckboxes {
		if cb.Selector == selector {
			return true
		}
	}
	return false
}

// Resolved lists the roles that have an element, in a fixed order.
func (m *FieldMapping) Resolved() []Role {
	var roles []Role
	for _, role := range []Role{RoleName, RoleEmail, RoleMessage, RolePhone, RoleSubmit} {
		if m.Get(role) != nil {
			roles = append(roles, role)
		}
	}
	return roles
}
