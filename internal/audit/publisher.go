package audit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrQueueFull is returned by Queue.Emit when the worker cannot keep up.
	ErrQueueFull = errors.New("audit queue full")
	// ErrQueueClosed is returned by Queue.Emit after Close.
	ErrQueueClosed = errors.New("audit queue closed")
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher writes events synchronously to its store.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

// Queue accepts events without blocking the caller. A Worker drains it.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

func (q *Queue) Emit(_ context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- base:
		return nil
	default:
		return ErrQueueFull
	}
}

// Events is the worker side of the queue.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close stops accepting events. Buffered events remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
