// Package mock serves a local stand-in for the reqres.in and catfact.ninja
// endpoints the built-in catalog exercises. It exists for writing case
// files offline and for tests; smoke runs target the live services.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RecordedRequest is a request the server received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a mock HTTP server for the demo APIs.
type Server struct {
	router   *Router
	port     int
	delay    time.Duration
	maxDelay time.Duration
	apiKey   string
	log      logrus.FieldLogger

	mu       sync.Mutex
	requests []RecordedRequest
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithMaxDelay caps the ?delay=N seconds honoured by GET /api/users.
func WithMaxDelay(d time.Duration) Option {
	return func(s *Server) {
		s.maxDelay = d
	}
}

// WithAPIKey makes /api routes answer 401 unless x-api-key equals key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer creates a mock server with the demo routes registered.
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   3000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		s.log = l
	}
	s.registerReqres(s.router)
	registerCatFact(s.router)
	return s
}

// Routes returns all registered routes
func (s *Server) Routes() []*Route {
	return s.router.Routes()
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// StartWithContext serves on the configured port until ctx is done.
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.WithField("routes", len(s.router.routes)).Infof("mock server listening on http://localhost:%d", s.port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body := readBody(r)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		s.log.Debugf("%s %s -> 404 (%s)", r.Method, r.URL.Path, time.Since(start))
		writeResponse(w, jsonResponse(http.StatusNotFound, map[string]any{}))
		return
	}

	var resp *MockResponse
	if s.apiKey != "" && isReqres(route) && r.Header.Get("x-api-key") != s.apiKey {
		resp = jsonResponse(http.StatusUnauthorized, map[string]any{"error": "Missing API key"})
	} else {
		resp = route.Respond(withBody(r, body), params)
	}

	writeResponse(w, resp)
	s.log.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, resp.StatusCode, time.Since(start))
}

func writeResponse(w http.ResponseWriter, resp *MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}

func jsonResponse(status int, body any) *MockResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return &MockResponse{StatusCode: http.StatusInternalServerError, ContentType: "text/plain", Body: err.Error()}
	}
	return &MockResponse{
		StatusCode:  status,
		ContentType: "application/json; charset=utf-8",
		Body:        string(data),
	}
}
