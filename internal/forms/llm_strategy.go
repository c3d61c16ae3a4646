package forms

import (
	"context"
	"encoding/json"

	"github.com/jonathan/outreach-agent/internal/llm"
	"github.com/jonathan/outreach-agent/internal/prompts"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/types"
)

// fieldIdentification is the JSON object the model is asked to return.
type fieldIdentification struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Message    *string `json:"message"`
	Submit     *string `json:"submit"`
	Unresolved bool    `json:"unresolved"`
}

// LLMStrategy is a FallbackStrategy that asks a language model to label the form.
type LLMStrategy struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMStrategy creates an LLM-backed fallback strategy.
func NewLLMStrategy(client llm.Client, tier llm.ModelTier) *LLMStrategy {
	return &LLMStrategy{client: client, tier: tier}
}

// IdentifyFields implements FallbackStrategy.
func (s *LLMStrategy) IdentifyFields(ctx context.Context, formHTML string) (map[types.Role]string, error) {
	template, err := prompts.Get("forms.json", "identify-form-fields")
	if err != nil {
		return nil, &FallbackError{Message: "failed to load prompt", Cause: err}
	}
	prompt := prompts.Format(template, map[string]string{"FormHTML": formHTML})

	raw, err := s.client.GenerateJSON(ctx, prompt, s.tier)
	if err != nil {
		return nil, &FallbackError{Message: "model call failed", Cause: err}
	}

	if err := schemas.ValidateFieldIdentification(raw); err != nil {
		return nil, &FallbackError{Message: "response does not match schema", Cause: err}
	}

	var resp fieldIdentification
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, &FallbackError{Message: "failed to parse response", Cause: err}
	}

	identified := make(map[types.Role]string)
	if resp.Unresolved {
		return identified, nil
	}
	for role, value := range map[types.Role]*string{
		types.RoleName:    resp.Name,
		types.RoleEmail:   resp.Email,
		types.RoleMessage: resp.Message,
		types.RoleSubmit:  resp.Submit,
	} {
		if value != nil && *value != "" {
			identified[role] = *value
		}
	}
	return identified, nil
}
