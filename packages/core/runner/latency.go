package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 2m, 3 significant digits.
const (
	minLatencyUs = 1
	maxLatencyUs = 120_000_000
)

// LatencySummary describes case durations over one run.
type LatencySummary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// LatencyRecorder collects durations into an HDR histogram. Not safe for
// concurrent use; the runner records from a single goroutine.
type LatencyRecorder struct {
	histogram *hdrhistogram.Histogram
}

func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Record adds d, clamped to the histogram range.
func (l *LatencyRecorder) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.histogram.RecordValue(us)
}

// Summary returns nil when nothing was recorded.
func (l *LatencyRecorder) Summary() *LatencySummary {
	if l.histogram.TotalCount() == 0 {
		return nil
	}
	h := l.histogram
	return &LatencySummary{
		Count: h.TotalCount(),
		Min:   usToDuration(h.Min()),
		Mean:  time.Duration(h.Mean() * float64(time.Microsecond)),
		P50:   usToDuration(h.ValueAtQuantile(50)),
		P95:   usToDuration(h.ValueAtQuantile(95)),
		P99:   usToDuration(h.ValueAtQuantile(99)),
		Max:   usToDuration(h.Max()),
	}
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
