package forms

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/types"
)

// MaxFallbackHTML bounds the form HTML handed to a fallback strategy.
const MaxFallbackHTML = 15000

// fallbackRoles are the only roles a fallback strategy may resolve.
var fallbackRoles = []types.Role{types.RoleName, types.RoleEmail, types.RoleMessage, types.RoleSubmit}

// FallbackStrategy identifies form fields that the rule pass could not.
// Implementations return role -> element identifier pairs; identifiers are
// treated as untrusted and checked against the form's elements before use.
// An empty map means the strategy could not resolve anything.
type FallbackStrategy interface {
	IdentifyFields(ctx context.Context, formHTML string) (map[types.Role]string, error)
}

// FallbackError represents a failed or unusable fallback identification.
type FallbackError struct {
	Message string
	Cause   error
}

func (e *FallbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fallback error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("fallback error: %s", e.Message)
}

func (e *FallbackError) Unwrap() error {
	return e.Cause
}

// Mapper resolves a form's field roles: the rule pass always, the fallback
// strategy only when email or message is still unresolved.
type Mapper struct {
	fallback FallbackStrategy
	timeout  time.Duration
	log      *zap.Logger
}

// NewMapper creates a Mapper. fallback may be nil to disable Tier 2.
func NewMapper(fallback FallbackStrategy, timeout time.Duration, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{fallback: fallback, timeout: timeout, log: logger.Named("mapper")}
}

// Map returns the best-effort mapping for set. It never fails: fallback errors
// are logged and leave the rule-based result as is.
func (m *Mapper) Map(ctx context.Context, set *types.FormElementSet) types.FieldMapping {
	mapping := MapRules(set)
	if m.fallback == nil || set == nil || (mapping.Email != nil && mapping.Message != nil) {
		return mapping
	}

	m.log.Debug("Rule pass left fields unresolved, trying fallback",
		zap.Bool("email", mapping.Email != nil), zap.Bool("message", mapping.Message != nil))

	identified, err := m.identify(ctx, truncateHTML(set.ContainerHTML))
	if err != nil {
		m.log.Warn("Fallback field identification failed", zap.String("page", set.PageURL), zap.Error(err))
		return mapping
	}

	applied := Merge(&mapping, set, identified)
	m.log.Info("Fallback resolved fields", zap.String("page", set.PageURL), zap.Any("roles", applied))
	return mapping
}

// identify calls the strategy under the fallback timeout, converting a panic into an error.
func (m *Mapper) identify(ctx context.Context, formHTML string) (identified map[types.Role]string, err error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = &FallbackError{Message: fmt.Sprintf("strategy panicked: %v", r)}
		}
	}()
	return m.fallback.IdentifyFields(ctx, formHTML)
}

// Merge fills roles left nil in mapping from identified, and returns the roles
// it applied. An identifier is used only when it names an element of set whose
// kind fits the role and which holds no other role. Resolved roles are never replaced.
func Merge(mapping *types.FieldMapping, set *types.FormElementSet, identified map[types.Role]string) []types.Role {
	var applied []types.Role
	for _, role := range fallbackRoles {
		identifier := strings.TrimSpace(identified[role])
		if identifier == "" || mapping.Get(role) != nil {
			continue
		}
		el, ok := resolveIdentifier(set, identifier)
		if !ok || !fitsRole(el, role) || mapping.IsAssigned(el.Selector) {
			continue
		}
		mapping.Set(role, el)
		applied = append(applied, role)
	}
	return applied
}

// resolveIdentifier finds the element an identifier refers to. Accepted forms
// are the element's own selector, #id, a bare id or name, [name="x"] and tag[name="x"].
func resolveIdentifier(set *types.FormElementSet, identifier string) (types.ElementRef, bool) {
	if set == nil {
		return types.ElementRef{}, false
	}
	for _, el := range set.Elements {
		for _, alias := range aliases(el) {
			if identifier == alias {
				return el, true
			}
		}
	}
	return types.ElementRef{}, false
}

func aliases(el types.ElementRef) []string {
	out := []string{el.Selector}
	if el.ID != "" {
		out = append(out, "#"+el.ID, el.Tag+"#"+el.ID, el.ID)
	}
	if el.Name != "" {
		out = append(out,
			el.Name,
			fmt.Sprintf(`[name="%s"]`, el.Name),
			fmt.Sprintf(`[name='%s']`, el.Name),
			fmt.Sprintf(`%s[name="%s"]`, el.Tag, el.Name),
			fmt.Sprintf(`%s[name='%s']`, el.Tag, el.Name),
		)
	}
	return out
}

func fitsRole(el types.ElementRef, role types.Role) bool {
	if role == types.RoleSubmit {
		return el.IsClickable()
	}
	return el.IsFillable()
}

func truncateHTML(html string) string {
	if len(html) <= MaxFallbackHTML {
		return html
	}
	n := MaxFallbackHTML
	for n > 0 && !utf8.RuneStart(html[n]) {
		n--
	}
	return html[:n] + "\n... (truncated)"
}
