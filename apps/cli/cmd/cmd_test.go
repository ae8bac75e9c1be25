package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/core/config"
	"github.com/abdul-hamid-achik/smokecheck/packages/core/runner"
	smokehttp "github.com/abdul-hamid-achik/smokecheck/packages/http"
	"github.com/abdul-hamid-achik/smokecheck/packages/mock"
	"github.com/abdul-hamid-achik/smokecheck/packages/output"
	"github.com/abdul-hamid-achik/smokecheck/packages/suite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags() {
	configFlag, envFileFlag, nameFlag, tagsFlag = "", "", "", ""
	verboseFlag = 0
	bailFlag, noColorFlag, noBuiltinFlag, watchFlag, insecureFlag = false, false, false, false, false
	timeoutFlag, outputFlag, outputFileFlag, proxyFlag = "", "", "", ""
	attachmentsDirFlag, historyFlag, schemaDirFlag = "", "", ""
	rateFlag = 0
	historyLimitFlag, historyRunFlag = 20, ""
	forceInit = false
}

// runCLI executes args against the real command tree and returns the exit
// code plus stdout and stderr.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	code := execute(args)
	return code, stdout.String(), stderr.String()
}

// demoConfig starts the mock server and writes a config pointing both
// targets at it.
func demoConfig(t *testing.T, opts ...mock.Option) string {
	t.Helper()
	opts = append([]mock.Option{mock.WithMaxDelay(10 * time.Millisecond)}, opts...)
	server := httptest.NewServer(mock.NewServer(opts...))
	t.Cleanup(server.Close)
	return writeConfig(t, server.URL)
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "smokecheck.yaml")
	content := fmt.Sprintf("targets:\n  reqres:\n    baseURL: %s\n  catfact:\n    baseURL: %s\ntimeout: 5000\n", baseURL, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	chdir(t, dir)
	return path
}

func TestExitCodeFor(t *testing.T) {
	broken := &runner.CaseResult{Error: assert.AnError}
	failed := &runner.CaseResult{Response: &smokehttp.Response{StatusCode: 500}}
	misconfigured := &runner.CaseResult{Error: fmt.Errorf("case typo: %w %q", suite.ErrUnknownTarget, "reqress")}
	cancelled := &runner.CaseResult{Skipped: true, SkipReason: runner.SkipCancelled}
	filtered := &runner.CaseResult{Skipped: true, SkipReason: runner.SkipFiltered}

	tests := []struct {
		name   string
		result *runner.RunResult
		want   int
	}{
		{"all passed", &runner.RunResult{Passed: 3}, ExitSuccess},
		{"only broken", &runner.RunResult{Failed: 1, Results: []*runner.CaseResult{broken}}, ExitNetworkError},
		{"assertion failure", &runner.RunResult{Failed: 2, Results: []*runner.CaseResult{failed, broken}}, ExitTestFailure},
		{"unknown target is not a network error", &runner.RunResult{Failed: 1, Results: []*runner.CaseResult{misconfigured}}, ExitTestFailure},
		{"cancelled before any case", &runner.RunResult{Skipped: 2, Results: []*runner.CaseResult{cancelled, cancelled}}, ExitTestFailure},
		{"cancelled after passes", &runner.RunResult{Passed: 1, Skipped: 1, Results: []*runner.CaseResult{{Passed: true}, cancelled}}, ExitTestFailure},
		{"nothing matched", &runner.RunResult{Skipped: 2, Results: []*runner.CaseResult{filtered, filtered}}, ExitUsageError},
		{"empty run", &runner.RunResult{}, ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.result))
		})
	}
}

func TestExitError(t *testing.T) {
	err := exitf(ExitConfigError, "bad %s", "thing")
	assert.EqualError(t, err, "bad thing")

	bare := &ExitError{Code: ExitTestFailure}
	assert.EqualError(t, bare, "exit status 1")
	assert.NoError(t, bare.Unwrap())
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer

	f, err := newFormatter("JSON", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &output.JSONFormatter{}, f)

	f, err = newFormatter("junit", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &output.JUnitFormatter{}, f)

	f, err = newFormatter("", &buf, false, true)
	require.NoError(t, err)
	assert.IsType(t, &output.ConsoleFormatter{}, f)

	_, err = newFormatter("tap", &buf, false, true)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, logrus.WarnLevel, newLogger(&buf, 0, true).GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger(&buf, 1, true).GetLevel())
	assert.Equal(t, logrus.DebugLevel, newLogger(&buf, 3, true).GetLevel())
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"auth", "users"}, splitTags(" auth, ,users "))
	assert.Nil(t, splitTags(""))
}

func TestLoadCases(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(file, []byte("cases:\n  - name: extra\n    target: catfact\n    method: GET\n    path: /fact\n    status: 200\n"), 0644))

	cfg := config.DefaultConfig()
	cases, err := loadCases(cfg, []string{file})
	require.NoError(t, err)
	assert.Len(t, cases, len(suite.Builtin())+1)
	assert.Equal(t, "extra", cases[len(cases)-1].Name)

	cfg.Builtin = config.BoolPtr(false)
	cases, err = loadCases(cfg, []string{file})
	require.NoError(t, err)
	assert.Len(t, cases, 1)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("cases:\n  - name: get_user\n    target: reqres\n    method: GET\n    path: /api/users/2\n    status: 200\n"), 0644))
	_, err = loadCases(config.DefaultConfig(), []string{dup})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate case name")
	assert.Contains(t, err.Error(), "built-in catalog")

	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("cases:\n  - name: typo\n    target: reqress\n    method: GET\n    path: /api/users/2\n    status: 200\n"), 0644))
	_, err = loadCases(config.DefaultConfig(), []string{typo})
	require.Error(t, err)
	assert.ErrorIs(t, err, suite.ErrUnknownTarget)
	assert.Contains(t, err.Error(), typo)
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "smokecheck version dev")
}

func TestRunCommand_BuiltinAgainstMock(t *testing.T) {
	cfgPath := demoConfig(t)

	code, out, stderr := runCLI(t, "run", "--config", cfgPath, "--no-color")
	assert.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "smokecheck dev")
	assert.Contains(t, out, "12 passed")
	assert.Contains(t, out, "Latency:")
}

func TestRunCommand_JSONToFile(t *testing.T) {
	cfgPath := demoConfig(t)
	outFile := filepath.Join(t.TempDir(), "result.json")

	code, _, stderr := runCLI(t, "run", "--config", cfgPath, "-o", "json", "--output-file", outFile, "--tags", "catfact")
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result output.JSONOutput
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 2, result.Summary.Passed)
	assert.Equal(t, 10, result.Summary.Skipped)
}

func TestRunCommand_FailureExitCode(t *testing.T) {
	// Without the key every reqres case gets a 401.
	cfgPath := demoConfig(t, mock.WithAPIKey("expected-key"))

	code, out, _ := runCLI(t, "run", "--config", cfgPath, "--no-color", "--name", "get_user")
	assert.Equal(t, ExitTestFailure, code)
	assert.Contains(t, out, "1 failed")
}

func TestRunCommand_NetworkExitCode(t *testing.T) {
	server := httptest.NewServer(mock.NewServer())
	url := server.URL
	server.Close()
	cfgPath := writeConfig(t, url)

	code, out, _ := runCLI(t, "run", "--config", cfgPath, "--no-color", "--tags", "catfact")
	assert.Equal(t, ExitNetworkError, code)
	assert.Contains(t, out, "2 failed")
}

func TestRunCommand_UnknownTargetIsParseError(t *testing.T) {
	cfgPath := demoConfig(t)
	typo := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("cases:\n  - name: typo\n    target: reqress\n    method: GET\n    path: /api/users/2\n    status: 200\n"), 0644))

	code, out, _ := runCLI(t, "run", "--config", cfgPath, "--no-color", "--no-builtin", typo)
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, out, `unknown target "reqress"`)
	assert.NotContains(t, out, "failed")
}

func TestRunCommand_NoCasesMatched(t *testing.T) {
	cfgPath := demoConfig(t)

	code, _, stderr := runCLI(t, "run", "--config", cfgPath, "--no-color", "--name", "no_such_case")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "no cases matched")

	code, _, stderr = runCLI(t, "run", "--config", cfgPath, "--no-color", "--tags", "no_such_tag")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "no cases matched")
}

func TestRunCommand_UsageAndConfigErrors(t *testing.T) {
	cfgPath := demoConfig(t)

	code, _, stderr := runCLI(t, "run", "--config", cfgPath, "-o", "tap")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "unknown output format")

	code, _, stderr = runCLI(t, "run", "--config", cfgPath, "--timeout", "soon")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "invalid timeout")

	code, _, _ = runCLI(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitConfigError, code)

	code, _, _ = runCLI(t, "run", "--config", cfgPath, "--no-builtin")
	assert.Equal(t, ExitUsageError, code)
}

func TestRunCommand_AttachmentsAndHistory(t *testing.T) {
	cfgPath := demoConfig(t)
	attachments := filepath.Join(t.TempDir(), "allure-results")
	historyDB := filepath.Join(t.TempDir(), "history.db")

	code, _, stderr := runCLI(t, "run", "--config", cfgPath, "--no-color",
		"--attachments-dir", attachments, "--history", historyDB, "--name", "get_user")
	require.Equal(t, ExitSuccess, code, stderr)

	results, err := filepath.Glob(filepath.Join(attachments, "*-result.json"))
	require.NoError(t, err)
	assert.Len(t, results, 1, "filtered cases send no request and write no result")
	attachmentsWritten, err := filepath.Glob(filepath.Join(attachments, "*-attachment*"))
	require.NoError(t, err)
	assert.NotEmpty(t, attachmentsWritten)

	code, out, stderr := runCLI(t, "history", "--history", historyDB, "--no-color")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "11 skipped")
}

func TestListCommand(t *testing.T) {
	cfgPath := demoConfig(t)

	code, out, stderr := runCLI(t, "list", "--config", cfgPath)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "built-in catalog:")
	assert.Contains(t, out, "- get_user  [reqres] GET /api/users/2")
	assert.Contains(t, out, "tags: catfact")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := demoConfig(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("cases:\n  - name: facts\n    target: catfact\n    method: GET\n    path: /facts\n    schema: cat_facts\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("cases:\n  - name: ghost\n    target: catfact\n    method: GET\n    path: /fact\n    schema: no_such_schema\n"), 0644))

	code, out, stderr := runCLI(t, "validate", "--config", cfgPath, good)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "Valid: "+good+" (1 cases)")
	assert.Contains(t, out, "resolved from embedded")

	code, _, stderr = runCLI(t, "validate", "--config", cfgPath, bad)
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, stderr, "no_such_schema")

	typo := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(typo, []byte("cases:\n  - name: typo\n    target: reqress\n    method: GET\n    path: /api/users/2\n    status: 200\n"), 0644))
	code, out, stderr = runCLI(t, "validate", "--config", cfgPath, typo)
	assert.Equal(t, ExitParseError, code)
	assert.Contains(t, stderr, `unknown target "reqress"`)
	assert.NotContains(t, out, "Valid: "+typo)
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("REQRES_API_KEY", "")

	code, out, stderr := runCLI(t, "init")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "smokecheck project initialized!")

	cfg, err := config.LoadConfig(filepath.Join(dir, "smokecheck.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cases"}, cfg.Cases)
	assert.Equal(t, config.DefaultReqresAPIKey, cfg.TargetHeaders(suite.TargetReqres)["x-api-key"])

	cases, err := suite.LoadFile(filepath.Join(dir, "cases", "example.yaml"))
	require.NoError(t, err)
	assert.Len(t, cases, 2)

	code, _, stderr = runCLI(t, "init")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = runCLI(t, "init", "--force")
	assert.Equal(t, ExitSuccess, code)
}

func TestRerunLoop_DebouncesAndNeverOverlaps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu         sync.Mutex
		running    int
		maxRunning int
		names      []string
	)
	snapshot := func() (int, int, []string) {
		mu.Lock()
		defer mu.Unlock()
		return running, maxRunning, append([]string(nil), names...)
	}

	changes := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rerunLoop(ctx, changes, 20*time.Millisecond, func(name string) {
			mu.Lock()
			running++
			maxRunning = max(maxRunning, running)
			names = append(names, name)
			mu.Unlock()

			time.Sleep(100 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		})
	}()

	// A burst collapses into one rerun for the last change.
	changes <- "a.yaml"
	changes <- "b.yaml"
	changes <- "c.yaml"
	require.Eventually(t, func() bool { r, _, _ := snapshot(); return r == 1 }, time.Second, 5*time.Millisecond)

	// A change made during a rerun waits for it instead of starting another.
	changes <- "d.yaml"
	require.Eventually(t, func() bool { _, _, n := snapshot(); return len(n) == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { r, _, _ := snapshot(); return r == 1 }, time.Second, 5*time.Millisecond)

	// Cancelling mid-rerun returns only after the rerun finishes.
	cancel()
	<-done

	r, maxR, n := snapshot()
	assert.Zero(t, r)
	assert.Equal(t, 1, maxR)
	assert.Equal(t, []string{"c.yaml", "d.yaml"}, n)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
