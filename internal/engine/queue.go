package engine

import (
	"sync"

	"github.com/roach88/walletsync/internal/domain"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeLocal is an edit originating on this device.
	EventTypeLocal EventType = iota + 1
	// EventTypeRemote is a full snapshot received from a transport.
	EventTypeRemote
	// EventTypeAdopt is an authoritative bootstrap snapshot: an existing
	// shared document a freshly joined device takes wholesale.
	EventTypeAdopt
	// EventTypeMaterialize asks the loop to run recurrence catch-up.
	EventTypeMaterialize
)

// Mutator transforms the current document into a new one. It must not
// modify its argument; return a derived copy instead.
type Mutator func(domain.GlobalData) (domain.GlobalData, error)

// Event wraps local edits and remote snapshots for the event queue.
type Event struct {
	Type   EventType
	Mutate Mutator
	Remote *domain.GlobalData
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so that transports and CLI handlers never
// block on submission. Thread-safety covers external enqueuing while
// the Run loop dequeues.
//
// A buffered signal channel lets the Run loop wait for work in a
// select alongside context cancellation and the materialize ticker.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1; coalesces wakeups
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Nil out the slot so the backing array does not pin the event's
	// snapshot pointer until reallocation.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
