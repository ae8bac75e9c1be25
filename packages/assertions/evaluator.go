package assertions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/smokecheck/packages/http"
	"github.com/tidwall/gjson"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// SchemaSource validates a decoded body against a named schema.
// *schema.Loader satisfies it.
type SchemaSource interface {
	Validate(name string, body any) error
}

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
	isJSON   bool
	schemas  SchemaSource
}

// NewEvaluator wraps resp. schemas may be nil when no schema assertions
// are evaluated.
func NewEvaluator(resp *http.Response, schemas SchemaSource) *Evaluator {
	e := &Evaluator{
		response: resp,
		schemas:  schemas,
	}
	if len(resp.Body) > 0 && gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
		e.isJSON = true
	}
	return e
}

func (e *Evaluator) Evaluate(a Assertion) *Result {
	result := &Result{
		Subject:  a.Subject(),
		Operator: a.Operator(),
		Expected: a.Expected,
	}

	var passed bool
	var msg string

	switch a.Kind {
	case KindStatus:
		result.Actual = e.response.StatusCode
		passed, msg = e.status(a.Expected)
	case KindEquals:
		actual, err := e.field(a.Path)
		if err != nil {
			result.Message = err.Error()
			return result
		}
		result.Actual = actual
		passed, msg = e.equals(actual, a.Expected)
	case KindExists:
		actual, err := e.field(a.Path)
		if err != nil {
			result.Message = err.Error()
			return result
		}
		result.Actual = actual
		passed, msg = e.exists(actual)
	case KindLength:
		actual, err := e.field(a.Path)
		if err != nil {
			result.Message = err.Error()
			return result
		}
		result.Actual = computeLength(actual)
		passed, msg = e.length(actual, a.Expected)
	case KindSchema:
		passed, msg = e.schema(a.SchemaName())
	case KindEmpty:
		result.Actual = len(e.response.Body)
		passed, msg = e.empty()
	default:
		msg = fmt.Sprintf("unknown assertion kind: %q", a.Kind)
	}

	result.Passed = passed
	result.Message = msg
	return result
}

// field looks up a gjson path in the body. A missing path yields nil.
func (e *Evaluator) field(path string) (any, error) {
	if !e.isJSON {
		return nil, fmt.Errorf("response body is not JSON")
	}
	path = strings.TrimPrefix(strings.TrimSpace(path), "body")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return e.bodyJSON.Value(), nil
	}

	res := e.bodyJSON.Get(convertBracketNotation(path))
	if !res.Exists() {
		return nil, nil
	}
	return res.Value(), nil
}

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "data[0].fact" -> "data.0.fact"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}

func (e *Evaluator) status(expected any) (bool, string) {
	code, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected status must be a number, got %v", expected)
	}
	if e.response.StatusCode == code {
		return true, ""
	}
	return false, fmt.Sprintf("expected status %d, got %d", code, e.response.StatusCode)
}

func (e *Evaluator) equals(actual, expected any) (bool, string) {
	if valuesEqual(actual, expected) {
		return true, ""
	}
	if actual != nil && fmt.Sprint(actual) == fmt.Sprint(expected) {
		return false, fmt.Sprintf("expected %v (%T), got %v (%T)", expected, expected, actual, actual)
	}
	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

// valuesEqual compares without coercion. Numbers of any Go numeric type
// compare by value; anything else must match in both type and value, so
// "4" never equals 4.
func valuesEqual(actual, expected any) bool {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk || eOk {
		return aOk && eOk && actualNum == expectedNum
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	// Composite expectations from YAML carry Go ints; bring them into the
	// shape gjson decodes to.
	switch expected.(type) {
	case []any, map[string]any:
		data, err := json.Marshal(expected)
		if err != nil {
			return false
		}
		var normalized any
		if err := json.Unmarshal(data, &normalized); err != nil {
			return false
		}
		return reflect.DeepEqual(actual, normalized)
	}
	return false
}

func (e *Evaluator) exists(actual any) (bool, string) {
	if actual == nil {
		return false, "expected to exist"
	}
	return true, ""
}

// computeLength returns the length of a value, or -1 if length cannot be computed
func computeLength(actual any) int {
	switch v := actual.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		return -1
	}
}

func (e *Evaluator) length(actual, expected any) (bool, string) {
	expectedLen, ok := toInt(expected)
	if !ok {
		return false, fmt.Sprintf("expected length must be a number, got %v", expected)
	}

	actualLen := computeLength(actual)
	if actualLen == -1 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}

	if actualLen == expectedLen {
		return true, ""
	}
	return false, fmt.Sprintf("expected length %d, got %d", expectedLen, actualLen)
}

func (e *Evaluator) schema(name string) (bool, string) {
	if e.schemas == nil {
		return false, "no schema source configured"
	}
	if !e.isJSON {
		return false, fmt.Sprintf("schema %s: response body is not JSON", name)
	}
	if err := e.schemas.Validate(name, e.bodyJSON.Value()); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (e *Evaluator) empty() (bool, string) {
	if e.response.IsEmpty() {
		return true, ""
	}
	return false, fmt.Sprintf("expected empty body, got %d bytes", len(e.response.Body))
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// EvaluateAll evaluates every assertion against resp, in order.
func EvaluateAll(resp *http.Response, list []Assertion, schemas SchemaSource) []*Result {
	evaluator := NewEvaluator(resp, schemas)
	results := make([]*Result, len(list))
	for i, a := range list {
		results[i] = evaluator.Evaluate(a)
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
