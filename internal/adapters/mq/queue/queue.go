// Package queue holds pending recompute jobs between ingestion and the
// pipeline worker.
//
// The queue is bounded and coalescing: while a job for a dataset is waiting,
// further requests for the same dataset are absorbed, since one replay picks
// up every snapshot stored before it starts.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 16
)

// Job asks for one full replay of a dataset.
type Job struct {
	ID         string
	Dataset    model.Dataset
	Reason     string
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue schedules a replay of dataset. It returns the pending job and
	// true when a job was queued or one was already waiting, and false when
	// the queue is full or closed.
	Enqueue(ctx context.Context, dataset model.Dataset, reason string) (Job, bool)

	// Dequeue returns a channel that delivers jobs in FIFO order. The channel
	// is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of waiting jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu      sync.Mutex
	pending map[model.Dataset]Job
	closed  bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		pending:  make(map[model.Dataset]Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateQueueLength(0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, dataset model.Dataset, reason string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return Job{}, false
	}
	if job, ok := q.pending[dataset]; ok {
		metrics.RecordJob("coalesced")
		return job, true
	}
	job := Job{ID: uuid.NewString(), Dataset: dataset, Reason: reason, EnqueuedAt: time.Now()}

	select {
	case q.jobs <- job:
		q.pending[dataset] = job
		metrics.RecordJob("queued")
		metrics.UpdateQueueLength(len(q.jobs))
		return job, true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return Job{}, false
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return Job{}, false
	}
}

// Dequeue implements Queue. A job stops absorbing new requests once it has
// been handed to a consumer.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				q.mu.Lock()
				delete(q.pending, job.Dataset)
				metrics.UpdateQueueLength(len(q.jobs))
				q.mu.Unlock()
				select {
				case out <- job:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}
