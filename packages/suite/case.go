package suite

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/assertions"
	smokehttp "github.com/abdul-hamid-achik/smokecheck/packages/http"
)

const (
	TargetReqres  = "reqres"
	TargetCatFact = "catfact"
)

// ErrUnknownTarget is returned when a case names a target with no base URL.
var ErrUnknownTarget = errors.New("unknown target")

// DefaultTargets maps target names to their base URLs.
func DefaultTargets() map[string]string {
	return map[string]string{
		TargetReqres:  "https://reqres.in",
		TargetCatFact: "https://catfact.ninja",
	}
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Case is one request and the assertions its response must satisfy.
type Case struct {
	Name    string                 `yaml:"name"`
	Target  string                 `yaml:"target"`
	Method  string                 `yaml:"method"`
	Path    string                 `yaml:"path"`
	Query   map[string]string      `yaml:"query,omitempty"`
	Headers map[string]string      `yaml:"headers,omitempty"`
	Body    any                    `yaml:"body,omitempty"`
	Tags    []string               `yaml:"tags,omitempty"`
	Expect  []assertions.Assertion `yaml:"expect,omitempty"`

	// Timeout overrides the run-wide request timeout for this case.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Shorthands folded into Expect by normalize.
	Status int    `yaml:"status,omitempty"`
	Schema string `yaml:"schema,omitempty"`

	// Source is the file the case was loaded from; empty for built-ins.
	Source string `yaml:"-"`
}

// normalize upper-cases the method and folds the status/schema shorthands
// into Expect, status first.
func (c *Case) normalize() {
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))

	var head []assertions.Assertion
	if c.Status != 0 {
		head = append(head, assertions.Status(c.Status))
		c.Status = 0
	}
	if c.Schema != "" {
		c.Expect = append(c.Expect, assertions.MatchesSchema(c.Schema))
		c.Schema = ""
	}
	if len(head) > 0 {
		c.Expect = append(head, c.Expect...)
	}
}

// Validate checks the case is runnable without sending anything.
func (c *Case) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("case has no name")
	}
	if c.Target == "" {
		return fmt.Errorf("case %s: no target", c.Name)
	}
	if !allowedMethods[c.Method] {
		return fmt.Errorf("case %s: unsupported method %q", c.Name, c.Method)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("case %s: path %q must start with /", c.Name, c.Path)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("case %s: negative timeout %s", c.Name, c.Timeout)
	}
	if len(c.Expect) == 0 {
		return fmt.Errorf("case %s: no assertions", c.Name)
	}
	for i, a := range c.Expect {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("case %s: assertion %d: %w", c.Name, i+1, err)
		}
	}
	return nil
}

// Schemas lists the schema names the case asserts against.
func (c *Case) Schemas() []string {
	var names []string
	for _, a := range c.Expect {
		if a.Kind == assertions.KindSchema {
			names = append(names, a.SchemaName())
		}
	}
	return names
}

// HasTag reports whether the case carries any of the given tags.
func (c *Case) HasTag(tags ...string) bool {
	for _, want := range tags {
		for _, tag := range c.Tags {
			if tag == want {
				return true
			}
		}
	}
	return false
}

// CheckTarget reports whether the case's target has a base URL in targets.
func (c *Case) CheckTarget(targets map[string]string) error {
	if targets[c.Target] == "" {
		return fmt.Errorf("case %s: %w %q", c.Name, ErrUnknownTarget, c.Target)
	}
	return nil
}

// BuildRequest resolves the case against targets and returns the request to
// send. A non-nil Body is encoded as JSON.
func (c *Case) BuildRequest(targets map[string]string) (*smokehttp.Request, error) {
	if err := c.CheckTarget(targets); err != nil {
		return nil, err
	}

	req := smokehttp.NewRequest(c.Method, smokehttp.JoinURL(targets[c.Target], c.Path))
	if c.Timeout > 0 {
		req.SetTimeout(c.Timeout)
	}
	for k, v := range c.Headers {
		req.SetHeader(k, v)
	}
	for k, v := range c.Query {
		req.SetQueryParam(k, v)
	}
	if c.Body != nil {
		if err := req.SetJSONBody(c.Body); err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
	}
	return req, nil
}
