package http

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// PrettyJSON re-indents the body with four spaces. ok is false when the
// body is not JSON.
func (r *Response) PrettyJSON() (pretty []byte, ok bool) {
	if !json.Valid(r.Body) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Body, "", "    "); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// IsEmpty reports whether the body holds nothing but whitespace.
func (r *Response) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}
