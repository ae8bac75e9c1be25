package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRouter_Match(t *testing.T) {
	r := NewRouter()
	r.Handle("GET", "/api/users", "list", nil)
	r.Handle("GET", "/api/users/{{id}}", "get", nil)

	route, params := r.Match("GET", "/api/users/")
	require.NotNil(t, route)
	assert.Equal(t, "list", route.Name)
	assert.Empty(t, params)

	route, params = r.Match("get", "/api/users/42")
	require.NotNil(t, route)
	assert.Equal(t, "get", route.Name)
	assert.Equal(t, map[string]string{"id": "42"}, params)

	route, _ = r.Match("POST", "/api/users")
	assert.Nil(t, route)
	route, _ = r.Match("GET", "/api/users/2/extra")
	assert.Nil(t, route)
}

func TestServer_Users(t *testing.T) {
	s := NewServer()

	rec, body := do(t, s, "GET", "/api/users/2", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "janet.weaver@reqres.in", body["data"].(map[string]any)["email"])

	rec, _ = do(t, s, "GET", "/api/users/23", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = do(t, s, "POST", "/api/users/", `{"name":"Alex","job":"QA"}`, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "QA", body["job"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["createdAt"])

	rec, body = do(t, s, "PUT", "/api/users/2", `{"name":"Alex","job":"Resident"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Resident", body["job"])
	assert.NotEmpty(t, body["updatedAt"])

	rec, _ = do(t, s, "DELETE", "/api/users/2", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestServer_Register(t *testing.T) {
	s := NewServer()

	rec, body := do(t, s, "POST", "/api/register", `{"email":"eve.holt@reqres.in","password":"pistol"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), body["id"])
	assert.NotEmpty(t, body["token"])

	rec, body = do(t, s, "POST", "/api/register", `{"email":"sydney@fife"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing password", body["error"])

	rec, _ = do(t, s, "POST", "/api/register", `{"email":"nobody@example.com","password":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CatFacts(t *testing.T) {
	s := NewServer()

	rec, body := do(t, s, "GET", "/fact", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(len(body["fact"].(string))), body["length"])

	rec, body = do(t, s, "GET", "/facts?limit=2", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(2), body["per_page"])
}

func TestServer_APIKey(t *testing.T) {
	s := NewServer(WithAPIKey("reqres-free-v1"))

	rec, body := do(t, s, "GET", "/api/users/2", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing API key", body["error"])

	rec, _ = do(t, s, "GET", "/api/users/2", "", map[string]string{"x-api-key": "reqres-free-v1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, "GET", "/fact", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "catfact routes need no key")
}

func TestServer_DelayIsCapped(t *testing.T) {
	s := NewServer(WithMaxDelay(20 * time.Millisecond))

	start := time.Now()
	rec, _ := do(t, s, "GET", "/api/users?delay=3", "", nil)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestServer_RecordsRequests(t *testing.T) {
	s := NewServer()
	do(t, s, "POST", "/api/users?x=1", `{"name":"Alex"}`, map[string]string{"X-Trace": "abc"})

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Equal(t, "/api/users", reqs[0].Path)
	assert.Equal(t, "x=1", reqs[0].Query)
	assert.Equal(t, "abc", reqs[0].Header.Get("X-Trace"))
	assert.JSONEq(t, `{"name":"Alex"}`, string(reqs[0].Body))
}

func TestServer_UnknownRoute(t *testing.T) {
	rec, _ := do(t, NewServer(), "GET", "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
