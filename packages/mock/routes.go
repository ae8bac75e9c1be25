package mock

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type user struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

var users = []user{
	{1, "george.bluth@reqres.in", "George", "Bluth", "https://reqres.in/img/faces/1-image.jpg"},
	{2, "janet.weaver@reqres.in", "Janet", "Weaver", "https://reqres.in/img/faces/2-image.jpg"},
	{3, "emma.wong@reqres.in", "Emma", "Wong", "https://reqres.in/img/faces/3-image.jpg"},
	{4, "eve.holt@reqres.in", "Eve", "Holt", "https://reqres.in/img/faces/4-image.jpg"},
	{5, "charles.morris@reqres.in", "Charles", "Morris", "https://reqres.in/img/faces/5-image.jpg"},
	{6, "tracey.ramos@reqres.in", "Tracey", "Ramos", "https://reqres.in/img/faces/6-image.jpg"},
}

var support = map[string]string{
	"url":  "https://contentcaddy.io",
	"text": "Tired of writing endless social media content? Let Content Caddy generate it for you.",
}

var facts = []string{
	"Cats sleep for around thirteen to sixteen hours a day.",
	"A group of cats is called a clowder.",
	"Cats have five toes on their front paws but only four on the back.",
	"A cat's nose print is unique, much like a human fingerprint.",
}

const reqresPrefix = "/api/"

func isReqres(route *Route) bool {
	return strings.HasPrefix(route.PathPattern, reqresPrefix)
}

func (s *Server) registerReqres(r *Router) {
	r.Handle(http.MethodGet, "/api/users", "list_users", s.listUsers)
	r.Handle(http.MethodGet, "/api/users/{{id}}", "get_user", getUser)
	r.Handle(http.MethodPost, "/api/users", "create_user", func(req *http.Request, _ map[string]string) *MockResponse {
		body := decodeObject(req)
		body["id"] = strconv.Itoa(100 + time.Now().Nanosecond()%900)
		body["createdAt"] = timestamp()
		return jsonResponse(http.StatusCreated, body)
	})
	r.Handle(http.MethodPut, "/api/users/{{id}}", "update_user", func(req *http.Request, _ map[string]string) *MockResponse {
		body := decodeObject(req)
		body["updatedAt"] = timestamp()
		return jsonResponse(http.StatusOK, body)
	})
	r.Handle(http.MethodDelete, "/api/users/{{id}}", "delete_user", func(*http.Request, map[string]string) *MockResponse {
		return &MockResponse{StatusCode: http.StatusNoContent}
	})
	r.Handle(http.MethodPost, "/api/register", "register", register)
	r.Handle(http.MethodPost, "/api/login", "login", login)
}

func registerCatFact(r *Router) {
	r.Handle(http.MethodGet, "/fact", "fact", func(*http.Request, map[string]string) *MockResponse {
		fact := facts[time.Now().Nanosecond()%len(facts)]
		return jsonResponse(http.StatusOK, map[string]any{"fact": fact, "length": len(fact)})
	})
	r.Handle(http.MethodGet, "/facts", "facts", func(req *http.Request, _ map[string]string) *MockResponse {
		limit := queryInt(req, "limit", 10)
		if limit > len(facts) {
			limit = len(facts)
		}
		data := make([]map[string]any, 0, limit)
		for _, f := range facts[:limit] {
			data = append(data, map[string]any{"fact": f, "length": len(f)})
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"current_page": 1,
			"data":         data,
			"last_page":    (len(facts) + limit - 1) / max(limit, 1),
			"per_page":     limit,
			"total":        len(facts),
		})
	})
}

func (s *Server) listUsers(req *http.Request, _ map[string]string) *MockResponse {
	if seconds := queryInt(req, "delay", 0); seconds > 0 {
		delay := time.Duration(seconds) * time.Second
		if s.maxDelay > 0 && delay > s.maxDelay {
			delay = s.maxDelay
		}
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
		}
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"page":        1,
		"per_page":    len(users),
		"total":       len(users),
		"total_pages": 1,
		"data":        users,
		"support":     support,
	})
}

func getUser(_ *http.Request, params map[string]string) *MockResponse {
	id, err := strconv.Atoi(params["id"])
	if err != nil || id < 1 || id > len(users) {
		return jsonResponse(http.StatusNotFound, map[string]any{})
	}
	return jsonResponse(http.StatusOK, map[string]any{"data": users[id-1], "support": support})
}

func register(req *http.Request, _ map[string]string) *MockResponse {
	body := decodeObject(req)
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	switch {
	case email == "":
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "Missing email or username"})
	case password == "":
		return jsonResponse(http.StatusBadRequest, map[string]any{"error": "Missing password"})
	}
	for _, u := range users {
		if u.Email == email {
			return jsonResponse(http.StatusOK, map[string]any{"id": u.ID, "token": "QpwL5tke4Pnpja7X" + strconv.Itoa(u.ID)})
		}
	}
	return jsonResponse(http.StatusBadRequest, map[string]any{"error": "Note: Only defined users succeed registration"})
}

func login(req *http.Request, params map[string]string) *MockResponse {
	resp := register(req, params)
	if resp.StatusCode != http.StatusOK {
		return resp
	}
	return jsonResponse(http.StatusOK, map[string]any{"token": "QpwL5tke4Pnpja7X4"})
}

func withBody(r *http.Request, body []byte) *http.Request {
	r.Body = io.NopCloser(bytes.NewReader(body))
	return r
}

func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	data, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()
	return data
}

func decodeObject(r *http.Request) map[string]any {
	body := make(map[string]any)
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	return body
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return fallback
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
