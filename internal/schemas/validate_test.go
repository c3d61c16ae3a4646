package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFieldIdentification_Valid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"all fields", `{"name": "#name", "email": "#email", "message": "textarea", "submit": "button", "unresolved": false}`},
		{"nulls", `{"name": null, "email": "#email", "message": null, "submit": null}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ValidateFieldIdentification(tt.json))
		})
	}
}

func TestValidateFieldIdentification_WrongType(t *testing.T) {
	err := ValidateFieldIdentification(`{"email": 42, "unresolved": "yes"}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Len(t, validationErr.Errors, 2)
	assert.Contains(t, err.Error(), "email")
}

func TestValidateFieldIdentification_NotAnObject(t *testing.T) {
	err := ValidateFieldIdentification(`["#email"]`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateJSONString_MalformedDocument(t *testing.T) {
	err := ValidateJSONString(FieldIdentificationSchema, `{not json`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.NotNil(t, loadErr.Unwrap())
	assert.Contains(t, err.Error(), "failed to load schema")
}

func TestValidationError_Format(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "email", Message: "Invalid type"}}}
	assert.Equal(t, "validation failed:\n  1. email: Invalid type\n", err.Error())
}
