package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/PentesterFlow/OpenAuditor/internal/metrics"
)

// Writer accumulates submission records and writes the final report.
type Writer struct {
	mu     sync.Mutex
	result AuditResult
}

// NewWriter creates a writer for one audit run.
func NewWriter(target string) *Writer {
	return &Writer{
		result: AuditResult{
			Target:    target,
			StartedAt: time.Now(),
		},
	}
}

// AddSubmission appends a completed submission.
func (w *Writer) AddSubmission(rec SubmissionRecord) {
	w.mu.Lock()
	w.result.Submissions = append(w.result.Submissions, rec)
	w.mu.Unlock()
}

// AddError appends a failed or skipped submission.
func (w *Writer) AddError(rec ErrorRecord) {
	w.mu.Lock()
	w.result.Errors = append(w.result.Errors, rec)
	w.mu.Unlock()
}

// SetStats attaches the run's metrics snapshot to the report.
func (w *Writer) SetStats(stats metrics.Snapshot) {
	w.mu.Lock()
	w.result.Stats = stats
	w.mu.Unlock()
}

// Result returns a copy of the accumulated result.
func (w *Writer) Result() AuditResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// WriteJSON writes the report as indented JSON.
func (w *Writer) WriteJSON(out io.Writer) error {
	w.mu.Lock()
	w.result.CompletedAt = time.Now()
	data, err := json.MarshalIndent(w.result, "", "  ")
	w.mu.Unlock()
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

// WriteFile writes the report to a file, or stdout when path is empty.
func (w *Writer) WriteFile(path string) error {
	if path == "" {
		return w.WriteJSON(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return w.WriteJSON(f)
}
