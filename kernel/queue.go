package kernel

import "ember/hal"

// ReadyQueue is the round-robin rotation order. The front is the thread that
// is running or about to be switched in.
//
// Each method is exactly one critical section; callers needing several
// operations to be atomic must hold their own (Rotate is one such operation).
type ReadyQueue struct {
	irq  hal.Interrupts
	buf  []*Thread
	head int
	n    int
}

func newReadyQueue(irq hal.Interrupts, capacity int) *ReadyQueue {
	if capacity < 4 {
		capacity = 4
	}
	return &ReadyQueue{irq: irq, buf: make([]*Thread, capacity)}
}

// PushBack appends t to the rotation. It may grow the buffer, so it must not
// be called from interrupt context.
func (q *ReadyQueue) PushBack(t *Thread) {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)

	if q.n == len(q.buf) {
		q.grow()
	}
	q.pushBack(t)
}

// PopFront removes and returns the head, or nil if the queue is empty.
func (q *ReadyQueue) PopFront() *Thread {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)
	return q.popFront()
}

// Front returns the head, or nil if the queue is empty.
func (q *ReadyQueue) Front() *Thread {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)
	return q.front()
}

func (q *ReadyQueue) Len() int {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)
	return q.n
}

// Snapshot returns the queue in rotation order.
func (q *ReadyQueue) Snapshot() []*Thread {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)

	out := make([]*Thread, q.n)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

// Rotate moves the head to the tail and returns the new head. With fewer than
// two threads it does nothing and reports false. It never allocates.
func (q *ReadyQueue) Rotate() (next *Thread, rotated bool) {
	state := q.irq.DisableInterrupts()
	defer q.irq.RestoreInterrupts(state)

	if q.n < 2 {
		return q.front(), false
	}
	out := q.popFront()
	next = q.front()
	q.pushBack(out)
	return next, true
}

func (q *ReadyQueue) front() *Thread {
	if q.n == 0 {
		return nil
	}
	return q.buf[q.head]
}

func (q *ReadyQueue) popFront() *Thread {
	if q.n == 0 {
		return nil
	}
	t := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return t
}

func (q *ReadyQueue) pushBack(t *Thread) {
	q.buf[(q.head+q.n)%len(q.buf)] = t
	q.n++
}

func (q *ReadyQueue) grow() {
	buf := make([]*Thread, 2*len(q.buf))
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
