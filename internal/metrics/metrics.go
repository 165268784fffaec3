// Package metrics provides metrics collection for the form auditor.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates audit metrics.
type Collector struct {
	// Counters
	formsParsed       atomic.Int64
	variantsGenerated atomic.Int64
	targetsSkipped    atomic.Int64
	submissionsTotal  atomic.Int64
	submissionsFailed atomic.Int64
	nonceRefreshes    atomic.Int64
	nonceFailures     atomic.Int64

	// Response time tracking
	responseTimesSum atomic.Int64
	responseTimesNum atomic.Int64

	// Status code breakdown
	statusCodes map[int]*atomic.Int64
	statusMu    sync.RWMutex

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		statusCodes: make(map[int]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordFormParsed increments the parsed-forms counter.
func (c *Collector) RecordFormParsed() {
	c.formsParsed.Add(1)
}

// RecordVariantsGenerated adds one mutation round's variant count.
func (c *Collector) RecordVariantsGenerated(n int) {
	c.variantsGenerated.Add(int64(n))
}

// RecordTargetSkipped increments the audited-set skip counter.
func (c *Collector) RecordTargetSkipped() {
	c.targetsSkipped.Add(1)
}

// RecordSubmission records a completed submission.
func (c *Collector) RecordSubmission(statusCode int, duration time.Duration) {
	c.submissionsTotal.Add(1)
	c.responseTimesSum.Add(duration.Milliseconds())
	c.responseTimesNum.Add(1)

	c.statusMu.Lock()
	counter, ok := c.statusCodes[statusCode]
	if !ok {
		counter = &atomic.Int64{}
		c.statusCodes[statusCode] = counter
	}
	c.statusMu.Unlock()
	counter.Add(1)
}

// RecordSubmissionError records a failed submission.
func (c *Collector) RecordSubmissionError() {
	c.submissionsTotal.Add(1)
	c.submissionsFailed.Add(1)
}

// RecordNonceRefresh records a nonce refresh attempt.
func (c *Collector) RecordNonceRefresh(ok bool) {
	c.nonceRefreshes.Add(1)
	if !ok {
		c.nonceFailures.Add(1)
	}
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	FormsParsed       int64         `json:"forms_parsed"`
	VariantsGenerated int64         `json:"variants_generated"`
	TargetsSkipped    int64         `json:"targets_skipped"`
	SubmissionsTotal  int64         `json:"submissions_total"`
	SubmissionsFailed int64         `json:"submissions_failed"`
	NonceRefreshes    int64         `json:"nonce_refreshes"`
	NonceFailures     int64         `json:"nonce_failures"`
	AvgResponseTimeMs int64         `json:"avg_response_time_ms"`
	StatusCodes       map[int]int64 `json:"status_codes"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Snapshot returns the current metrics.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		FormsParsed:       c.formsParsed.Load(),
		VariantsGenerated: c.variantsGenerated.Load(),
		TargetsSkipped:    c.targetsSkipped.Load(),
		SubmissionsTotal:  c.submissionsTotal.Load(),
		SubmissionsFailed: c.submissionsFailed.Load(),
		NonceRefreshes:    c.nonceRefreshes.Load(),
		NonceFailures:     c.nonceFailures.Load(),
		StatusCodes:       make(map[int]int64),
		Elapsed:           time.Since(c.startTime),
	}

	if n := c.responseTimesNum.Load(); n > 0 {
		s.AvgResponseTimeMs = c.responseTimesSum.Load() / n
	}

	c.statusMu.RLock()
	for code, counter := range c.statusCodes {
		s.StatusCodes[code] = counter.Load()
	}
	c.statusMu.RUnlock()

	return s
}
