package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DirSink writes allure-compatible results into a directory: one
// <uuid>-attachment<ext> file per attachment and one <uuid>-result.json
// per case.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating attachments dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) Dir() string {
	return s.dir
}

type resultFile struct {
	UUID          string           `json:"uuid"`
	Name          string           `json:"name"`
	FullName      string           `json:"fullName"`
	Status        Status           `json:"status"`
	StatusDetails *statusDetails   `json:"statusDetails,omitempty"`
	Start         int64            `json:"start"`
	Stop          int64            `json:"stop"`
	Labels        []label          `json:"labels,omitempty"`
	Attachments   []attachmentFile `json:"attachments"`
}

type statusDetails struct {
	Message string `json:"message"`
}

type label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type attachmentFile struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

func (s *DirSink) Write(r *CaseReport) error {
	result := resultFile{
		UUID:        uuid.NewString(),
		Name:        r.Name,
		FullName:    r.Target + "." + r.Name,
		Status:      r.Status,
		Start:       r.Start.UnixMilli(),
		Stop:        r.Stop.UnixMilli(),
		Attachments: make([]attachmentFile, 0, len(r.Attachments)),
	}
	if r.Message != "" {
		result.StatusDetails = &statusDetails{Message: r.Message}
	}
	if r.Target != "" {
		result.Labels = append(result.Labels, label{Name: "suite", Value: r.Target})
	}
	for _, tag := range r.Tags {
		result.Labels = append(result.Labels, label{Name: "tag", Value: tag})
	}

	for _, a := range r.Attachments {
		source := uuid.NewString() + "-attachment" + a.Extension
		if err := os.WriteFile(filepath.Join(s.dir, source), a.Body, 0644); err != nil {
			return fmt.Errorf("writing attachment %q: %w", a.Name, err)
		}
		result.Attachments = append(result.Attachments, attachmentFile{
			Name:   a.Name,
			Source: source,
			Type:   a.Type,
		})
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, result.UUID+"-result.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing result for %s: %w", r.Name, err)
	}
	return nil
}
