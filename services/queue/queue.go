package queue

import (
	"log"
	"sync"
	"time"
)

// DispatchFunc delivers one command to the active connection. Delivery is
// fire-and-forget: failures are the dispatcher's problem to log or surface,
// the queue never retries.
type DispatchFunc func(command string)

// Queue is a FIFO of outbound Minecraft commands drained by a single lazy
// worker. The worker starts on demand when a command is enqueued, sleeps the
// cooldown between dispatches, and exits once the queue is empty.
type Queue struct {
	mu       sync.Mutex
	items    []string
	running  bool
	stopped  bool
	cooldown time.Duration
	dispatch DispatchFunc
	wake     chan struct{}
}

func New(cooldown time.Duration, dispatch DispatchFunc) *Queue {
	return &Queue{
		cooldown: cooldown,
		dispatch: dispatch,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue appends a command to the tail. Never blocks, never errors. Safe
// for concurrent producers.
func (q *Queue) Enqueue(command string) {
	if command == "" {
		return
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		log.Printf("⚠️ Command queue stopped - dropping command: %s", command)
		return
	}
	q.items = append(q.items, command)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.drain()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops all pending commands without touching the worker.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Stop clears the queue and prevents any further dispatching. The drain
// worker, if sleeping through a cooldown, wakes up and exits.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if q.stopped || len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.dispatch(next)

		select {
		case <-q.wake:
		case <-time.After(q.cooldown):
		}
	}
}
