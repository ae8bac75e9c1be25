package runner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/abdul-hamid-achik/smokecheck/packages/assertions"
	"github.com/abdul-hamid-achik/smokecheck/packages/http"
	"github.com/abdul-hamid-achik/smokecheck/packages/report"
	"github.com/abdul-hamid-achik/smokecheck/packages/schema"
	"github.com/abdul-hamid-achik/smokecheck/packages/suite"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Skip reasons reported for cases that were never sent.
const (
	SkipFiltered  = "filtered out"
	SkipBail      = "bail after failure"
	SkipCancelled = "run cancelled"
)

// Attachment names recorded for every case that sends a request.
const (
	AttachmentCurl         = "Curl"
	AttachmentResponseJSON = "Response Json"
	AttachmentResponse     = "Response"
)

type Runner struct {
	client  *http.Client
	config  *Config
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

type Config struct {
	// Targets maps target names to base URLs. Defaults to suite.DefaultTargets.
	Targets map[string]string
	// TargetHeaders are added to every request sent to the named target
	// unless the case sets the same header.
	TargetHeaders  map[string]map[string]string
	DefaultHeaders map[string]string

	Timeout time.Duration
	// NoFollowRedirect returns 3xx responses as-is. Redirects are followed
	// by default.
	NoFollowRedirect bool
	MaxRedirects     int
	Insecure         bool
	Proxy            string

	Bail       bool
	NameFilter string
	TagsFilter []string

	// Rate limits request starts per second. Zero means unlimited.
	Rate float64

	Schemas assertions.SchemaSource
	Sink    report.Sink
	Logger  logrus.FieldLogger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Targets == nil {
		cfg.Targets = suite.DefaultTargets()
	}
	if cfg.Schemas == nil {
		cfg.Schemas = schema.DefaultLoader()
	}
	if cfg.Sink == nil {
		cfg.Sink = report.NopSink{}
	}

	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(!cfg.NoFollowRedirect),
		http.WithValidateSSL(!cfg.Insecure),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if len(cfg.DefaultHeaders) > 0 {
		clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.DefaultHeaders))
	}

	r := &Runner{
		client: http.NewClient(clientOpts...),
		config: cfg,
		log:    log,
	}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return r
}

type RunResult struct {
	Results  []*CaseResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	Latency  *LatencySummary
}

// Broken counts failed cases that never got a response because the
// request could not be completed. A case naming an unknown target is a
// plain failure.
func (r *RunResult) Broken() int {
	n := 0
	for _, c := range r.Results {
		if c.Skipped || c.Error == nil || c.Response != nil {
			continue
		}
		if errors.Is(c.Error, suite.ErrUnknownTarget) {
			continue
		}
		n++
	}
	return n
}

// Cancelled reports whether any case was skipped because the run was
// cancelled before reaching it.
func (r *RunResult) Cancelled() bool {
	for _, c := range r.Results {
		if c.Skipped && c.SkipReason == SkipCancelled {
			return true
		}
	}
	return false
}

type CaseResult struct {
	Name        string
	Target      string
	Tags        []string
	Source      string
	Passed      bool
	Skipped     bool
	SkipReason  string
	Duration    time.Duration
	Request     *http.Request
	Response    *http.Response
	Assertions  []*assertions.Result
	Attachments []report.Attachment
	Error       error
}

// Status maps the result onto a report status.
func (r *CaseResult) Status() report.Status {
	switch {
	case r.Passed:
		return report.StatusPassed
	case r.Response == nil && !errors.Is(r.Error, suite.ErrUnknownTarget):
		return report.StatusBroken
	default:
		return report.StatusFailed
	}
}

// FailureMessage returns the transport error or every failed assertion
// message, joined.
func (r *CaseResult) FailureMessage() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	var msg string
	for _, a := range r.Assertions {
		if a.Passed {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += a.Message
	}
	return msg
}

// Run executes cases sequentially in the given order.
func (r *Runner) Run(ctx context.Context, cases []*suite.Case) *RunResult {
	start := time.Now()
	result := &RunResult{}
	latency := NewLatencyRecorder()

	for i, c := range cases {
		if !r.shouldRun(c) {
			result.Results = append(result.Results, skipped(c, SkipFiltered))
			result.Skipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			for _, rest := range cases[i:] {
				result.Results = append(result.Results, skipped(rest, SkipCancelled))
				result.Skipped++
			}
			break
		}

		caseResult := r.RunCase(ctx, c)
		result.Results = append(result.Results, caseResult)
		if caseResult.Response != nil {
			latency.Record(caseResult.Duration)
		}

		if caseResult.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.config.Bail {
			for _, rest := range cases[i+1:] {
				result.Results = append(result.Results, skipped(rest, SkipBail))
				result.Skipped++
			}
			break
		}
	}

	result.Duration = time.Since(start)
	result.Latency = latency.Summary()
	return result
}

func skipped(c *suite.Case, reason string) *CaseResult {
	return &CaseResult{
		Name:       c.Name,
		Target:     c.Target,
		Tags:       c.Tags,
		Source:     c.Source,
		Skipped:    true,
		SkipReason: reason,
	}
}

// RunCase sends exactly one request for c and evaluates every expectation.
func (r *Runner) RunCase(ctx context.Context, c *suite.Case) *CaseResult {
	result := &CaseResult{
		Name:   c.Name,
		Target: c.Target,
		Tags:   c.Tags,
		Source: c.Source,
	}
	log := r.log.WithField("case", c.Name)
	started := time.Now()
	defer func() { r.record(log, result, started) }()

	req, err := c.BuildRequest(r.config.Targets)
	if err != nil {
		result.Error = err
		return result
	}
	for k, v := range r.config.TargetHeaders[c.Target] {
		if req.Header(k) == "" {
			req.SetHeader(k, v)
		}
	}
	result.Request = req
	result.Attachments = append(result.Attachments, report.Text(AttachmentCurl, []byte(r.client.Curl(req))))

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Error = err
			return result
		}
	}

	log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.BuildURL(),
	}).Debug("sending request")

	start := time.Now()
	resp, err := r.client.Do(ctx, req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.Response = resp
	result.Attachments = append(result.Attachments, responseAttachment(resp))

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": result.Duration,
	}).Debug("response received")

	result.Assertions = assertions.EvaluateAll(resp, c.Expect, r.config.Schemas)
	result.Passed = assertions.AllPassed(result.Assertions)
	return result
}

func (r *Runner) record(log logrus.FieldLogger, result *CaseResult, started time.Time) {
	if result.Error != nil {
		entry := log.WithError(result.Error)
		if errors.Is(result.Error, context.Canceled) {
			entry.Info("request cancelled")
		} else {
			entry.Info("request failed")
		}
	}

	err := r.config.Sink.Write(&report.CaseReport{
		Name:        result.Name,
		Target:      result.Target,
		Tags:        result.Tags,
		Status:      result.Status(),
		Message:     result.FailureMessage(),
		Start:       started,
		Stop:        time.Now(),
		Attachments: result.Attachments,
	})
	if err != nil {
		log.WithError(err).Warn("could not write attachments")
	}
}

func responseAttachment(resp *http.Response) report.Attachment {
	if pretty, ok := resp.PrettyJSON(); ok {
		return report.JSON(AttachmentResponseJSON, pretty)
	}
	return report.Text(AttachmentResponse, resp.Body)
}

func (r *Runner) shouldRun(c *suite.Case) bool {
	if r.config.NameFilter != "" {
		if !matchesPattern(c.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !c.HasTag(r.config.TagsFilter...) {
			return false
		}
	}

	return true
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}
