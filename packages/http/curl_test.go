package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurl(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "plain get",
			req:      NewRequest("GET", "https://reqres.in/api/users/2"),
			expected: `curl -X GET 'https://reqres.in/api/users/2'`,
		},
		{
			name: "post with sorted headers and body",
			req: &Request{
				Method: "POST",
				URL:    "https://reqres.in/api/users/",
				Headers: map[string]string{
					"x-api-key":    "reqres-free-v1",
					"Content-Type": "application/json",
				},
				Body: `{"name":"Alex","job":"QA"}`,
			},
			expected: `curl -X POST -H 'Content-Type: application/json' -H 'x-api-key: reqres-free-v1' -d '{"name":"Alex","job":"QA"}' 'https://reqres.in/api/users/'`,
		},
		{
			name: "query params",
			req: &Request{
				Method:      "GET",
				URL:         "https://catfact.ninja/facts",
				QueryParams: map[string]string{"limit": "2"},
			},
			expected: `curl -X GET 'https://catfact.ninja/facts?limit=2'`,
		},
		{
			name: "single quote in body",
			req: &Request{
				Method: "PUT",
				URL:    "https://reqres.in/api/users/2",
				Body:   `{"name":"O'Neil"}`,
			},
			expected: `curl -X PUT -d '{"name":"O'"'"'Neil"}' 'https://reqres.in/api/users/2'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Curl(tt.req))
		})
	}
}

func TestClient_CurlIncludesDefaultHeaders(t *testing.T) {
	client := NewClient(WithDefaultHeader("x-api-key", "reqres-free-v1"))
	req := NewRequest("DELETE", "https://reqres.in/api/users/2")

	assert.Equal(t, `curl -X DELETE -H 'x-api-key: reqres-free-v1' 'https://reqres.in/api/users/2'`, client.Curl(req))
	assert.Empty(t, req.Headers)
}
