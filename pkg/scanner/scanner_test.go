package scanner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
)

type hitLog struct {
	mu   sync.Mutex
	hits []map[string]string
}

func (h *hitLog) record(r *http.Request) {
	_ = r.ParseForm()
	values := make(map[string]string)
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}
	h.mu.Lock()
	h.hits = append(h.hits, values)
	h.mu.Unlock()
}

func (h *hitLog) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.hits)
}

const contactPage = `
	<html><body>
	<form action="/contact" method="post">
		<input type="text" name="name">
		<input type="email" name="email">
		<textarea name="message"></textarea>
		<input type="submit" value="Send">
	</form>
	</body></html>
`

func newTarget(t *testing.T, page string) (*httptest.Server, *hitLog) {
	t.Helper()
	log := &hitLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			log.record(r)
			io.WriteString(w, "received")
			return
		}
		io.WriteString(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func TestScanner_Run(t *testing.T) {
	srv, log := newTarget(t, contactPage)

	s, err := New(
		WithTarget(srv.URL+"/"),
		WithSeeds("<payload>"),
		WithWorkers(2),
		WithRateLimit(1000, 100),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// One injected variant per field (name, email, message) plus the
	// Original and SampleFilled classes.
	if result.Stats.FormsParsed != 1 {
		t.Errorf("FormsParsed = %d, want 1", result.Stats.FormsParsed)
	}
	if result.Stats.VariantsGenerated != 5 {
		t.Errorf("VariantsGenerated = %d, want 5", result.Stats.VariantsGenerated)
	}
	if log.count() != 5 {
		t.Errorf("server hits = %d, want 5", log.count())
	}
	if int(result.Stats.SubmissionsTotal) != 5 {
		t.Errorf("SubmissionsTotal = %d, want 5", result.Stats.SubmissionsTotal)
	}
	if len(result.Submissions) != 5 {
		t.Errorf("len(Submissions) = %d, want 5", len(result.Submissions))
	}
}

func TestScanner_Run_DeduplicatesAcrossRuns(t *testing.T) {
	srv, log := newTarget(t, contactPage)
	checkpoint := filepath.Join(t.TempDir(), "audited.db")

	run := func() {
		s, err := New(
			WithTarget(srv.URL+"/"),
			WithSeeds("<payload>"),
			WithRateLimit(1000, 100),
			WithCheckpoint(checkpoint),
		)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer s.Close()
		if _, err := s.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	run()
	first := log.count()
	run()

	// The second run re-sends the injected variants (distinct payloads are
	// never globally deduplicated) but skips Original and SampleFilled.
	if got := log.count() - first; got != first-2 {
		t.Errorf("second run hits = %d, want %d", got, first-2)
	}
}

func TestScanner_Run_SkipOriginal(t *testing.T) {
	srv, log := newTarget(t, contactPage)

	s, err := New(
		WithTarget(srv.URL+"/"),
		WithSeeds("<payload>"),
		WithSkipOriginal(true),
		WithRateLimit(1000, 100),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if log.count() != 3 {
		t.Errorf("server hits = %d, want injected variants only", log.count())
	}
	for _, sub := range result.Submissions {
		if sub.State != "injected" {
			t.Errorf("submission state = %q, want injected", sub.State)
		}
	}
}

func TestScanner_Run_NonceForm(t *testing.T) {
	// Every GET serves a fresh token; the POST only accepts the latest.
	var mu sync.Mutex
	token := 0
	accepted, rejected := 0, 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			if r.PostForm.Get("csrf_token") == tokenValue(token) {
				accepted++
			} else {
				rejected++
			}
			io.WriteString(w, "received")
			return
		}
		token++
		io.WriteString(w, `
			<form action="/save" method="post">
				<input type="text" name="bio">
				<input type="hidden" name="csrf_token" value="`+tokenValue(token)+`">
			</form>
		`)
	}))
	defer srv.Close()

	s, err := New(
		WithTarget(srv.URL+"/"),
		WithSeeds("<payload>"),
		WithRateLimit(1000, 100),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// csrf_token is auto-detected, so every variant goes through a
	// synchronous refresh and carries the newest token.
	if rejected != 0 {
		t.Errorf("rejected = %d, want every submission to carry a fresh token", rejected)
	}
	if accepted == 0 {
		t.Error("no submission accepted")
	}
	if result.Stats.NonceRefreshes == 0 {
		t.Error("no nonce refresh recorded")
	}
	if result.Stats.NonceFailures != 0 {
		t.Errorf("NonceFailures = %d", result.Stats.NonceFailures)
	}
}

func tokenValue(n int) string {
	return "tok-" + string(rune('a'+n%26))
}

func TestScanner_Run_NoForms(t *testing.T) {
	srv, log := newTarget(t, "<html><body>no forms here</body></html>")

	s, err := New(
		WithTarget(srv.URL+"/"),
		WithSeeds("<payload>"),
		WithRateLimit(1000, 100),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Stats.FormsParsed != 0 || log.count() != 0 {
		t.Errorf("FormsParsed = %d, hits = %d, want 0/0",
			result.Stats.FormsParsed, log.count())
	}
}
