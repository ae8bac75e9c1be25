package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *CaseReport {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &CaseReport{
		Name:    "get_user",
		Target:  "reqres",
		Tags:    []string{"reqres", "users"},
		Status:  StatusFailed,
		Message: "expected status 200, got 404",
		Start:   start,
		Stop:    start.Add(150 * time.Millisecond),
		Attachments: []Attachment{
			Text("Curl", []byte("curl -X GET 'https://reqres.in/api/users/2'")),
			JSON("Response Json", []byte("{\n    \"id\": 2\n}")),
		},
	}
}

func TestAttachmentConstructors(t *testing.T) {
	txt := Text("Curl", []byte("x"))
	assert.Equal(t, TypeText, txt.Type)
	assert.Equal(t, ".txt", txt.Extension)

	js := JSON("Response Json", []byte("{}"))
	assert.Equal(t, TypeJSON, js.Type)
	assert.Equal(t, ".json", js.Extension)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	require.NoError(t, sink.Write(sampleReport()))

	reports := sink.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "get_user", reports[0].Name)

	curl, ok := sink.Find("get_user", "Curl")
	require.True(t, ok)
	assert.Contains(t, string(curl.Body), "curl -X GET")

	_, ok = sink.Find("get_user", "Response")
	assert.False(t, ok)
	_, ok = sink.Find("post_user", "Curl")
	assert.False(t, ok)
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	assert.NoError(t, sink.Write(sampleReport()))
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "allure-results")
	sink, err := NewDirSink(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, sink.Dir())

	require.NoError(t, sink.Write(sampleReport()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var resultPath string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "-result.json") {
			resultPath = filepath.Join(dir, e.Name())
		}
	}
	require.NotEmpty(t, resultPath)

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)

	var result resultFile
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "get_user", result.Name)
	assert.Equal(t, "reqres.get_user", result.FullName)
	assert.Equal(t, StatusFailed, result.Status)
	require.NotNil(t, result.StatusDetails)
	assert.Equal(t, "expected status 200, got 404", result.StatusDetails.Message)
	assert.Equal(t, int64(150), result.Stop-result.Start)
	assert.Contains(t, result.Labels, label{Name: "tag", Value: "users"})
	assert.Contains(t, result.Labels, label{Name: "suite", Value: "reqres"})

	require.Len(t, result.Attachments, 2)
	assert.Equal(t, "Curl", result.Attachments[0].Name)
	assert.Equal(t, TypeText, result.Attachments[0].Type)
	assert.True(t, strings.HasSuffix(result.Attachments[0].Source, "-attachment.txt"))
	assert.True(t, strings.HasSuffix(result.Attachments[1].Source, "-attachment.json"))

	body, err := os.ReadFile(filepath.Join(dir, result.Attachments[1].Source))
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"id\": 2\n}", string(body))
}

func TestDirSink_NoAttachments(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	require.NoError(t, err)

	r := sampleReport()
	r.Attachments = nil
	r.Message = ""
	r.Status = StatusPassed
	require.NoError(t, sink.Write(r))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"attachments": []`)
	assert.NotContains(t, string(data), "statusDetails")
}
