package kernel

import (
	"errors"
	"fmt"

	"ember/hal"
)

// StackAlign is the alignment of stack blocks and of every initial SP
// (AAPCS requires 8 at public interfaces).
const StackAlign = 8

var (
	ErrStackTooSmall  = errors.New("kernel: stack too small for the initial frame")
	ErrNilEntry       = errors.New("kernel: nil thread entry")
	ErrNotInitialized = errors.New("kernel: scheduler not initialized")
)

// Allocator supplies stack memory. There is no free. The kernel only calls it
// with interrupts masked.
type Allocator interface {
	Alloc(size, align uint32) (hal.Address, error)
}

// Thread is one schedulable unit. It owns its stack block for the lifetime
// of the system; the ready queue holds shared references to it.
type Thread struct {
	id    int
	name  string
	sp    hal.Address
	entry hal.Entry
	param hal.Address
	stack hal.Address
	size  uint32
}

// newThread allocates a stack and writes the initial frame at its top, so
// the first switch into the thread returns into entry(param).
//
// An allocator failure is fatal: it happens while the system boots and there
// is nothing to fall back to.
func newThread(cpu hal.CPU, alloc Allocator, id int, name string, entry hal.Entry, param hal.Address, stackSize uint32) (*Thread, error) {
	if entry == nil {
		return nil, ErrNilEntry
	}
	if stackSize < FrameSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrStackTooSmall, stackSize, FrameSize)
	}

	base, err := alloc.Alloc(stackSize, StackAlign)
	if err != nil {
		Fatal(fmt.Errorf("kernel: stack for %q: %w", name, err))
	}

	// Stacks grow down: the frame sits at the top of the block.
	top := (base + stackSize) &^ (StackAlign - 1)
	sp := top - FrameSize
	frame := NewFrame(cpu.EntryPC(entry), param)
	frame.WriteTo(cpu, sp)

	return &Thread{
		id:    id,
		name:  name,
		sp:    sp,
		entry: entry,
		param: param,
		stack: base,
		size:  stackSize,
	}, nil
}

func (t *Thread) ID() int            { return t.id }
func (t *Thread) Name() string       { return t.name }
func (t *Thread) Param() hal.Address { return t.param }
func (t *Thread) Stack() hal.Address { return t.stack }
func (t *Thread) StackSize() uint32  { return t.size }

// SP is the saved stack pointer. It is only meaningful while the thread is
// switched out.
func (t *Thread) SP() hal.Address { return t.sp }

func (t *Thread) String() string {
	return fmt.Sprintf("thread %d (%s) sp:%#08x stack:%#08x+%d", t.id, t.name, t.sp, t.stack, t.size)
}
