package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one structural mismatch found during validation.
type FieldError struct {
	Field       string
	Type        string
	Description string
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Description)
}

// ValidationError reports every field of a body that does not conform.
type ValidationError struct {
	Schema string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, strings.Join(parts, "; "))
}

// Validate checks a decoded JSON value against s. A non-conforming body
// yields a *ValidationError; a broken schema yields a plain error.
func Validate(body any, s *Schema) error {
	return validate(gojsonschema.NewGoLoader(body), s)
}

// ValidateBytes checks raw JSON against s.
func ValidateBytes(body []byte, s *Schema) error {
	return validate(gojsonschema.NewBytesLoader(body), s)
}

func validate(document gojsonschema.JSONLoader, s *Schema) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(s.Data), document)
	if err != nil {
		return fmt.Errorf("schema %s: validation error: %w", s.Name, err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Schema: s.Name}
	for _, desc := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:       desc.Field(),
			Type:        desc.Type(),
			Description: desc.Description(),
		})
	}
	return verr
}
