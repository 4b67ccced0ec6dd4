// Package queue implements the deferred event FIFO, the only cross-tick
// scheduling primitive of the engine.
package queue

import "github.com/nathoo/regioncore/types"

// Event is a deferred (target, event, payload, eligible tick) tuple.
type Event struct {
	Target   int64             `json:"target"`
	Name     string            `json:"name"`
	Payload  types.ScriptValue `json:"payload"`
	Eligible int64             `json:"eligible"`
}

// Queue is a FIFO of deferred events.
type Queue struct {
	events []Event
}

// Push enqueues an event during tick now. An event never becomes eligible
// before the next tick.
func (q *Queue) Push(now int64, e Event) {
	if e.Eligible <= now {
		e.Eligible = now + 1
	}
	q.events = append(q.events, e)
}

// Drain removes and returns, in FIFO order, every event eligible at tick.
func (q *Queue) Drain(tick int64) []Event {
	var ready, waiting []Event
	for _, e := range q.events {
		if e.Eligible <= tick {
			ready = append(ready, e)
		} else {
			waiting = append(waiting, e)
		}
	}
	q.events = waiting
	return ready
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Pending returns a copy of the queued events.
func (q *Queue) Pending() []Event {
	return append([]Event(nil), q.events...)
}

// Count returns how many queued events match target and name.
func (q *Queue) Count(target int64, name string) int {
	n := 0
	for _, e := range q.events {
		if e.Target == target && e.Name == name {
			n++
		}
	}
	return n
}
