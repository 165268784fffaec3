package transport

import (
	"context"
	"sync"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
	"github.com/PentesterFlow/OpenAuditor/internal/logger"
)

// Preparer readies a form immediately before its submission goes out.
// The nonce refresh coordinator implements this; for nonce-free forms it
// is a no-op.
type Preparer interface {
	Prepare(ctx context.Context, f *form.Form) error
}

// Result is the outcome of one dispatched submission.
type Result struct {
	Form     *form.Form
	Response *Response
	Err      error
}

// Dispatcher runs submissions across a worker pool. Forms that require
// synchronous dispatch bypass the queue: their prepare-then-submit
// sequence runs as one unit of work on the calling goroutine, so two
// nonce refreshes for the same form can never interleave.
type Dispatcher struct {
	client   *Client
	preparer Preparer
	queue    *SubmissionQueue
	workers  int
	onResult func(Result)
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. onResult is invoked for every
// completed or skipped submission, from whichever goroutine ran it.
func NewDispatcher(client *Client, preparer Preparer, workers int, onResult func(Result), log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		client:   client,
		preparer: preparer,
		queue:    NewSubmissionQueue(),
		workers:  workers,
		onResult: onResult,
		log:      log.WithComponent("dispatcher"),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			wlog := d.log.WithWorker(workerID)
			for {
				sub, err := d.queue.PopWait()
				if err != nil {
					return
				}
				if ctx.Err() != nil {
					return
				}
				d.process(ctx, sub.Form, ModeQueued, wlog)
			}
		}(i)
	}
}

// Dispatch hands a form to the transport. The form's own capability
// decides the transfer mode: nonce-bearing forms submit in blocking mode
// right here, everything else is queued for the worker pool.
func (d *Dispatcher) Dispatch(ctx context.Context, f *form.Form) error {
	if f.RequiresSyncDispatch() {
		d.process(ctx, f, ModeBlocking, d.log)
		return nil
	}
	return d.queue.Push(f)
}

func (d *Dispatcher) process(ctx context.Context, f *form.Form, mode Mode, log *logger.Logger) {
	if d.preparer != nil {
		if err := d.preparer.Prepare(ctx, f); err != nil {
			// Submitting with a stale nonce would corrupt the result;
			// skip this one dispatch and let the scan continue.
			log.WithAction(f.Action).WithError(err).Warn("Skipping dispatch")
			d.emit(Result{Form: f, Err: err})
			return
		}
	}

	resp, err := d.client.Submit(ctx, f, mode)
	if err != nil {
		log.WithAction(f.Action).WithError(err).Warn("Submission failed")
		d.emit(Result{Form: f, Err: err})
		return
	}

	log.SubmissionEvent(f.Action, f.Method, f.State.String(), resp.StatusCode, resp.Duration)
	d.emit(Result{Form: f, Response: resp})
}

func (d *Dispatcher) emit(r Result) {
	if d.onResult != nil {
		d.onResult(r)
	}
}

// Pending returns the number of queued submissions.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// Close stops accepting submissions and waits for the workers to drain.
func (d *Dispatcher) Close() {
	d.queue.Close()
	d.wg.Wait()
}
