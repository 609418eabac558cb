package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Address is a 32-bit target address: a stack pointer, a code address or a
// location in RAM.
type Address = uint32

// Entry is a thread entry function. It receives one machine word and must
// never return.
//
// On TinyGo the entry must be a top-level function: the switch routine enters
// it with r0 = param and no closure context.
type Entry func(param Address)

// IRQState is the interrupt-enable state captured when entering a critical
// section.
type IRQState uintptr

// Interrupts masks and restores interrupts (PRIMASK on Cortex-M).
type Interrupts interface {
	DisableInterrupts() IRQState
	RestoreInterrupts(state IRQState)
}

// Memory is word access to target RAM.
type Memory interface {
	Load32(addr Address) uint32
	Store32(addr Address, v uint32)
}

// SwitchSlots is the state shared between the scheduler and the PendSV
// context-switch routine. The field order is part of the routine's ABI:
// From at offset 0, To at offset 4.
//
// From is the stack pointer of the outgoing thread (0: nothing to save). After
// a switch the routine overwrites it with the SP the outgoing registers were
// pushed to. To is the stack pointer of the incoming thread; the routine
// consumes it and leaves 0.
type SwitchSlots struct {
	From Address
	To   Address
}

// CPU is the processor-specific half of the kernel.
type CPU interface {
	Interrupts
	Memory

	// PendSwitch arms the lowest-priority switch exception.
	PendSwitch()
	// CancelSwitch disarms a switch exception that has not run yet.
	CancelSwitch()
	// SwitchSlots returns the storage read by the switch routine.
	SwitchSlots() *SwitchSlots

	// EntryPC returns the code address the exception return jumps to for fn.
	EntryPC(fn Entry) Address
	// IdleEntry returns the wait loop run by the idle thread.
	IdleEntry() Entry
	// Nop is one instruction; pending interrupts may be taken after it.
	Nop()

	// StartTick starts the periodic tick and calls handler from its
	// interrupt.
	StartTick(handler func())
	// HeapRegion is the RAM handed to the allocator at boot.
	HeapRegion() (base Address, size uint32)
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	CPU() CPU
}
