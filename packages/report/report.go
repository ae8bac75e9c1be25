package report

import (
	"sync"
	"time"
)

// MIME types used for attachments.
const (
	TypeText = "text/plain"
	TypeJSON = "application/json"
)

// Attachment is a named diagnostic blob attached to a case result.
type Attachment struct {
	Name      string
	Type      string
	Extension string // including the leading dot
	Body      []byte
}

// Text returns a text/plain attachment.
func Text(name string, body []byte) Attachment {
	return Attachment{Name: name, Type: TypeText, Extension: ".txt", Body: body}
}

// JSON returns an application/json attachment. body should already be formatted.
func JSON(name string, body []byte) Attachment {
	return Attachment{Name: name, Type: TypeJSON, Extension: ".json", Body: body}
}

// Status is the outcome recorded for a case.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	// StatusBroken marks a case that never got a response.
	StatusBroken Status = "broken"
)

// CaseReport is everything a sink receives for one finished case.
type CaseReport struct {
	Name        string
	Target      string
	Tags        []string
	Status      Status
	Message     string
	Start       time.Time
	Stop        time.Time
	Attachments []Attachment
}

// Sink receives case reports as cases finish.
type Sink interface {
	Write(r *CaseReport) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Write(*CaseReport) error { return nil }

// MemorySink keeps reports in memory. Safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	reports []*CaseReport
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(r *CaseReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// Reports returns a copy of everything written so far.
func (s *MemorySink) Reports() []*CaseReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*CaseReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// Find returns the named attachment of the named case.
func (s *MemorySink) Find(caseName, attachment string) (Attachment, bool) {
	for _, r := range s.Reports() {
		if r.Name != caseName {
			continue
		}
		for _, a := range r.Attachments {
			if a.Name == attachment {
				return a, true
			}
		}
	}
	return Attachment{}, false
}
