package assertions

import (
	"fmt"
	"strings"
)

// Kind selects what an assertion checks.
type Kind string

const (
	KindStatus Kind = "status"
	KindEquals Kind = "equals"
	KindExists Kind = "exists"
	KindLength Kind = "length"
	KindSchema Kind = "schema"
	KindEmpty  Kind = "empty"
)

// Assertion is one expectation about a response.
type Assertion struct {
	Kind     Kind   `yaml:"kind" json:"kind"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Expected any    `yaml:"expected,omitempty" json:"expected,omitempty"`
}

func Status(code int) Assertion {
	return Assertion{Kind: KindStatus, Expected: code}
}

func Equals(path string, expected any) Assertion {
	return Assertion{Kind: KindEquals, Path: path, Expected: expected}
}

func Exists(path string) Assertion {
	return Assertion{Kind: KindExists, Path: path}
}

func Length(path string, n int) Assertion {
	return Assertion{Kind: KindLength, Path: path, Expected: n}
}

// MatchesSchema expects the whole body to conform to the named schema.
func MatchesSchema(name string) Assertion {
	return Assertion{Kind: KindSchema, Expected: name}
}

func EmptyBody() Assertion {
	return Assertion{Kind: KindEmpty}
}

// SchemaName returns the schema a KindSchema assertion refers to.
func (a Assertion) SchemaName() string {
	if a.Kind != KindSchema {
		return ""
	}
	return fmt.Sprintf("%v", a.Expected)
}

// Subject names what the assertion looks at, for reports.
func (a Assertion) Subject() string {
	switch a.Kind {
	case KindStatus:
		return "status"
	case KindSchema, KindEmpty:
		return "body"
	default:
		return "body." + a.Path
	}
}

// Operator is the short verb used in reports.
func (a Assertion) Operator() string {
	switch a.Kind {
	case KindStatus, KindEquals:
		return "=="
	default:
		return string(a.Kind)
	}
}

func (a Assertion) String() string {
	switch a.Kind {
	case KindExists, KindEmpty:
		return a.Subject() + " " + a.Operator()
	default:
		return fmt.Sprintf("%s %s %v", a.Subject(), a.Operator(), a.Expected)
	}
}

// Validate checks the assertion is well-formed before any request is sent.
func (a Assertion) Validate() error {
	switch a.Kind {
	case KindStatus:
		code, ok := toInt(a.Expected)
		if !ok || code < 100 || code > 599 {
			return fmt.Errorf("status assertion needs a code between 100 and 599, got %v", a.Expected)
		}
	case KindEquals:
		if strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("equals assertion needs a path")
		}
	case KindExists:
		if strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("exists assertion needs a path")
		}
	case KindLength:
		if strings.TrimSpace(a.Path) == "" {
			return fmt.Errorf("length assertion needs a path")
		}
		if n, ok := toInt(a.Expected); !ok || n < 0 {
			return fmt.Errorf("length assertion needs a non-negative number, got %v", a.Expected)
		}
	case KindSchema:
		if a.Expected == nil || strings.TrimSpace(a.SchemaName()) == "" {
			return fmt.Errorf("schema assertion needs a schema name")
		}
	case KindEmpty:
	default:
		return fmt.Errorf("unknown assertion kind %q", a.Kind)
	}
	return nil
}
