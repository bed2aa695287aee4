package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
	ErrQueueFull = errors.New("notification queue full")
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("notification queue closed")
)

const jobTimeout = 30 * time.Second

// Dispatcher sends one request. *Notifier implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

// Queue sends requests on a background worker so handlers never block on mail.
type Queue struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	jobs       chan Request

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	// OnResult, if set, is called after each attempt. Set before Start.
	OnResult func(req Request, err error)
}

// NewQueue creates a queue holding at most size pending requests.
func NewQueue(dispatcher Dispatcher, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		dispatcher: dispatcher,
		logger:     logger,
		jobs:       make(chan Request, size),
		done:       make(chan struct{}),
	}
}

// Start runs the worker until Close is called. Pending jobs are drained first.
// ctx is the parent for every send; cancelling it aborts in-flight sends.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.done)
		for req := range q.jobs {
			q.run(ctx, req)
		}
	}()
}

func (q *Queue) run(ctx context.Context, req Request) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	err := q.dispatcher.Dispatch(jobCtx, req)
	switch {
	case errors.Is(err, ErrNotDelivered):
		q.logger.Info("email logged, not delivered",
			zap.String("kind", string(req.Kind)),
			zap.String("ref", req.Ref),
		)
	case err != nil:
		q.logger.Error("email failed",
			zap.String("kind", string(req.Kind)),
			zap.String("ref", req.Ref),
			zap.Error(err),
		)
	default:
		q.logger.Info("email sent",
			zap.String("kind", string(req.Kind)),
			zap.String("ref", req.Ref),
		)
	}
	if q.OnResult != nil {
		q.OnResult(req, err)
	}
}

// Enqueue schedules req without blocking.
func (q *Queue) Enqueue(req Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting requests and waits for the worker to drain,
// or for ctx to expire.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
