package rules

import "errors"

// ErrQueueEmpty is returned when popping an empty queue.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is the double-ended event queue settlement drains. Consequences of the
// event being resolved go to the front; flow that must wait goes to the back.
type Queue struct {
	items []Event
}

// NewQueue creates a queue holding events in order.
func NewQueue(events ...Event) *Queue {
	q := &Queue{items: make([]Event, 0, len(events)+16)}
	q.items = append(q.items, events...)
	return q
}

// PushFront places events ahead of everything queued, keeping their order.
func (q *Queue) PushFront(events ...Event) {
	if len(events) == 0 {
		return
	}
	items := make([]Event, 0, len(events)+len(q.items))
	items = append(items, events...)
	q.items = append(items, q.items...)
}

// PushBack appends events behind everything queued.
func (q *Queue) PushBack(events ...Event) {
	q.items = append(q.items, events...)
}

// PopFront removes the next event.
func (q *Queue) PopFront() (Event, error) {
	if len(q.items) == 0 {
		return Event{}, ErrQueueEmpty
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, nil
}

// Peek returns the next event without removing it.
func (q *Queue) Peek() (Event, bool) {
	if len(q.items) == 0 {
		return Event{}, false
	}
	return q.items[0], true
}

// Drain removes and returns everything queued.
func (q *Queue) Drain() []Event {
	out := q.items
	q.items = nil
	return out
}

// List returns a copy of the queued events, front first.
func (q *Queue) List() []Event {
	return CloneAll(q.items)
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}
