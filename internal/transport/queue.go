package transport

import (
	"errors"
	"sync"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

var (
	// ErrQueueEmpty is returned by Pop on an empty queue.
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrQueueClosed is returned once the queue has been closed.
	ErrQueueClosed = errors.New("queue is closed")
)

// Submission is one queued form variant awaiting dispatch.
type Submission struct {
	Form *form.Form
	Key  string // structural key, used for in-queue dedup
}

// SubmissionQueue is a thread-safe FIFO of pending submissions. Literal
// duplicates (same structural key) already waiting are silently dropped.
type SubmissionQueue struct {
	mu     sync.Mutex
	items  []*Submission
	keySet map[string]struct{}
	closed bool
	cond   *sync.Cond
}

// NewSubmissionQueue creates an empty queue.
func NewSubmissionQueue() *SubmissionQueue {
	q := &SubmissionQueue{
		keySet: make(map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a submission to the queue.
func (q *SubmissionQueue) Push(f *form.Form) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	key := f.StructuralKey()
	if _, exists := q.keySet[key]; exists {
		return nil
	}

	q.keySet[key] = struct{}{}
	q.items = append(q.items, &Submission{Form: f, Key: key})
	q.cond.Signal()
	return nil
}

// Pop removes and returns the next submission without blocking.
func (q *SubmissionQueue) Pop() (*Submission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed && len(q.items) == 0 {
		return nil, ErrQueueClosed
	}
	if len(q.items) == 0 {
		return nil, ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// PopWait removes and returns the next submission, blocking while empty.
func (q *SubmissionQueue) PopWait() (*Submission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return nil, ErrQueueClosed
	}
	return q.popLocked(), nil
}

func (q *SubmissionQueue) popLocked() *Submission {
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	delete(q.keySet, item.Key)
	return item
}

// Len returns the number of pending submissions.
func (q *SubmissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Contains checks whether an equivalent submission is already pending.
func (q *SubmissionQueue) Contains(f *form.Form) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, exists := q.keySet[f.StructuralKey()]
	return exists
}

// Close wakes all waiters; pending items can still be drained with Pop
// until the queue is empty.
func (q *SubmissionQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
	return nil
}
