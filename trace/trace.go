// Package trace records scheduling decisions without allocating, so the
// kernel can report them from the tick interrupt.
package trace

import "sync/atomic"

// Event is one switch decided by the scheduler. From is -1 for the boot
// switch.
type Event struct {
	Tick uint64
	From int32
	To   int32
}

const recorderSlots = 256

// Recorder is a fixed-size single-producer, single-consumer ring of events.
// The producer is the scheduler; events that do not fit are counted and
// dropped.
type Recorder struct {
	_       [0]func() // prevent accidental copying.
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint64
	slots   [recorderSlots]Event
}

// Scheduled records a switch. It never blocks.
func (r *Recorder) Scheduled(tick uint64, fromID, toID int) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= recorderSlots {
		r.dropped.Add(1)
		return
	}
	r.slots[head%recorderSlots] = Event{Tick: tick, From: int32(fromID), To: int32(toID)}
	r.head.Store(head + 1)
}

// TryNext dequeues one event, returning false if the ring is empty.
func (r *Recorder) TryNext() (Event, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		return Event{}, false
	}

	ev := r.slots[tail%recorderSlots]
	r.tail.Store(tail + 1)
	return ev, true
}

// Drain appends every queued event to dst.
func (r *Recorder) Drain(dst []Event) []Event {
	for {
		ev, ok := r.TryNext()
		if !ok {
			return dst
		}
		dst = append(dst, ev)
	}
}

// Dropped returns the number of events lost to a full ring.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }
