// Package output assembles and writes audit run results.
package output

import (
	"time"

	"github.com/PentesterFlow/OpenAuditor/internal/metrics"
)

// AuditResult represents the complete result of an audit run.
type AuditResult struct {
	Target      string             `json:"target"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
	Stats       metrics.Snapshot   `json:"stats"`
	Submissions []SubmissionRecord `json:"submissions"`
	Errors      []ErrorRecord      `json:"errors,omitempty"`
}

// SubmissionRecord is one dispatched form variant and its response.
type SubmissionRecord struct {
	Action      string            `json:"action"`
	Method      string            `json:"method"`
	State       string            `json:"state"`
	Mode        string            `json:"mode"`
	Fields      map[string]string `json:"fields"`
	StatusCode  int               `json:"status_code"`
	ContentType string            `json:"content_type,omitempty"`
	Duration    time.Duration     `json:"duration"`
	Timestamp   time.Time         `json:"timestamp"`
}

// ErrorRecord is one submission that failed or was skipped.
type ErrorRecord struct {
	Action    string    `json:"action"`
	State     string    `json:"state"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
