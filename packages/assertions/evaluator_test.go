package assertions

import (
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/http"
	"github.com/abdul-hamid-achik/smokecheck/packages/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

type stubSchemas struct {
	name string
	body any
	err  error
}

func (s *stubSchemas) Validate(name string, body any) error {
	s.name = name
	s.body = body
	return s.err
}

func TestEvaluator_Status(t *testing.T) {
	e := NewEvaluator(createResponse(201, `{}`), nil)

	result := e.Evaluate(Status(201))
	assert.True(t, result.Passed)
	assert.Equal(t, 201, result.Actual)
	assert.Equal(t, "status", result.Subject)

	result = e.Evaluate(Status(200))
	assert.False(t, result.Passed)
	assert.Equal(t, "expected status 200, got 201", result.Message)
}

func TestEvaluator_Equals(t *testing.T) {
	resp := createResponse(200, `{"id": 4, "token": "QpwL5tke4Pnpja7X4", "job": "Resident",
		"data": [{"fact": "a"}, {"fact": "b"}]}`)
	e := NewEvaluator(resp, nil)

	tests := []struct {
		name     string
		path     string
		expected any
		passed   bool
	}{
		{name: "string field", path: "job", expected: "Resident", passed: true},
		{name: "string mismatch", path: "job", expected: "QA", passed: false},
		{name: "int against json number", path: "id", expected: 4, passed: true},
		{name: "float against json number", path: "id", expected: 4.0, passed: true},
		{name: "body prefix", path: "body.id", expected: 4, passed: true},
		{name: "bracket index", path: "data[1].fact", expected: "b", passed: true},
		{name: "missing field", path: "error", expected: "Missing password", passed: false},
		{name: "numeric string is not a number", path: "id", expected: "4", passed: false},
		{name: "number is not a string", path: "job", expected: 4, passed: false},
		{name: "array of maps", path: "data", expected: []any{map[string]any{"fact": "a"}, map[string]any{"fact": "b"}}, passed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Evaluate(Equals(tt.path, tt.expected))
			assert.Equal(t, tt.passed, result.Passed, result.Message)
		})
	}
}

func TestEvaluator_Equals_NoCoercion(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"id": "4", "active": true, "count": [1, 2]}`), nil)

	result := e.Evaluate(Equals("id", 4))
	assert.False(t, result.Passed)
	assert.Equal(t, "expected 4 (int), got 4 (string)", result.Message)

	assert.False(t, e.Evaluate(Equals("active", "true")).Passed)
	assert.True(t, e.Evaluate(Equals("active", true)).Passed)
	assert.True(t, e.Evaluate(Equals("id", "4")).Passed)
	assert.True(t, e.Evaluate(Equals("count", []any{1, 2})).Passed)
}

func TestEvaluator_Equals_MismatchMessage(t *testing.T) {
	e := NewEvaluator(createResponse(400, `{"error": "Missing email or username"}`), nil)

	result := e.Evaluate(Equals("error", "Missing password"))

	assert.False(t, result.Passed)
	assert.Equal(t, "body.error", result.Subject)
	assert.Equal(t, "expected Missing password, got Missing email or username", result.Message)
}

func TestEvaluator_ExistsAndLength(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"token": "abc", "data": [1, 2]}`), nil)

	assert.True(t, e.Evaluate(Exists("token")).Passed)
	assert.False(t, e.Evaluate(Exists("id")).Passed)

	result := e.Evaluate(Length("data", 2))
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.Actual)

	result = e.Evaluate(Length("data", 3))
	assert.False(t, result.Passed)
	assert.Equal(t, "expected length 3, got 2", result.Message)

	result = e.Evaluate(Length("missing", 1))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "cannot get length")
}

func TestEvaluator_FieldOnNonJSONBody(t *testing.T) {
	e := NewEvaluator(createResponse(502, `<html>Bad Gateway</html>`), nil)

	result := e.Evaluate(Equals("job", "Resident"))

	assert.False(t, result.Passed)
	assert.Equal(t, "response body is not JSON", result.Message)
}

func TestEvaluator_Schema(t *testing.T) {
	stub := &stubSchemas{}
	e := NewEvaluator(createResponse(200, `{"id": 4, "token": "x"}`), stub)

	result := e.Evaluate(MatchesSchema("user_registration"))

	assert.True(t, result.Passed)
	assert.Equal(t, "user_registration", stub.name)
	assert.Equal(t, map[string]any{"id": float64(4), "token": "x"}, stub.body)

	stub.err = errors.New("schema user_registration: (root): token is required")
	result = e.Evaluate(MatchesSchema("user_registration"))
	assert.False(t, result.Passed)
	assert.Equal(t, stub.err.Error(), result.Message)
}

func TestEvaluator_SchemaWithDefaultLoader(t *testing.T) {
	loader := schema.DefaultLoader()

	ok := NewEvaluator(createResponse(200, `{"name":"Alex","job":"Resident","updatedAt":"2026-10-19T10:00:00.000Z"}`), loader)
	assert.True(t, ok.Evaluate(MatchesSchema("put_user")).Passed)

	bad := NewEvaluator(createResponse(200, `{"name":"Alex","job":7}`), loader)
	result := bad.Evaluate(MatchesSchema("put_user"))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "updatedAt")
	assert.Contains(t, result.Message, "job")
}

func TestEvaluator_SchemaErrors(t *testing.T) {
	result := NewEvaluator(createResponse(200, `{}`), nil).Evaluate(MatchesSchema("get_user"))
	assert.False(t, result.Passed)
	assert.Equal(t, "no schema source configured", result.Message)

	result = NewEvaluator(createResponse(204, ``), &stubSchemas{}).Evaluate(MatchesSchema("get_user"))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "not JSON")
}

func TestEvaluator_Empty(t *testing.T) {
	assert.True(t, NewEvaluator(createResponse(204, ""), nil).Evaluate(EmptyBody()).Passed)
	assert.True(t, NewEvaluator(createResponse(204, " \n"), nil).Evaluate(EmptyBody()).Passed)

	result := NewEvaluator(createResponse(200, `{"a":1}`), nil).Evaluate(EmptyBody())
	assert.False(t, result.Passed)
	assert.Equal(t, "expected empty body, got 7 bytes", result.Message)
}

func TestEvaluateAll(t *testing.T) {
	resp := createResponse(200, `{"job": "Resident"}`)

	results := EvaluateAll(resp, []Assertion{Status(200), Equals("job", "Resident")}, nil)
	require.Len(t, results, 2)
	assert.True(t, AllPassed(results))

	results = EvaluateAll(resp, []Assertion{Status(200), Equals("job", "QA")}, nil)
	assert.False(t, AllPassed(results))
}

func TestAssertion_Validate(t *testing.T) {
	valid := []Assertion{
		Status(204),
		Equals("id", 4),
		Exists("token"),
		Length("data", 0),
		MatchesSchema("get_user"),
		EmptyBody(),
	}
	for _, a := range valid {
		assert.NoError(t, a.Validate(), a.String())
	}

	invalid := []Assertion{
		{Kind: KindStatus, Expected: "abc"},
		{Kind: KindStatus, Expected: 42},
		{Kind: KindEquals, Expected: 1},
		{Kind: KindExists},
		{Kind: KindLength, Path: "data", Expected: -1},
		{Kind: KindSchema},
		{Kind: "regex", Path: "x"},
	}
	for _, a := range invalid {
		assert.Error(t, a.Validate(), "%+v", a)
	}
}

func TestAssertion_String(t *testing.T) {
	assert.Equal(t, "status == 200", Status(200).String())
	assert.Equal(t, "body.job == Resident", Equals("job", "Resident").String())
	assert.Equal(t, "body schema get_user", MatchesSchema("get_user").String())
	assert.Equal(t, "body empty", EmptyBody().String())
	assert.Equal(t, "body.token exists", Exists("token").String())
}
