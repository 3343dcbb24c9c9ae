package audit

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned by Queue.Emit when the worker has fallen behind.
var ErrQueueFull = errors.New("audit queue full")

// Queue is a non-blocking Emit front for a Worker.
type Queue struct {
	events chan Event
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{events: make(chan Event, size)}
}

// Emit enqueues the event without waiting. A full queue drops the event.
func (q *Queue) Emit(_ context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	select {
	case q.events <- base:
		return nil
	default:
		return ErrQueueFull
	}
}

// Events exposes the receive side for a Worker.
func (q *Queue) Events() <-chan Event {
	return q.events
}

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// Run persists events until ctx is cancelled, then drains what is already
// queued. Cancellation is a normal stop and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return w.drain()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) drain() error {
	for {
		select {
		case event := <-w.inbox:
			if err := w.store.Append(context.Background(), event); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
