package kernel

import (
	"unsafe"

	"ember/hal"
)

const (
	// Poison fills the callee-saved registers of a thread that has never run.
	Poison uint32 = 0xDEADBEEF

	// XPSRThumb is the only xPSR bit a fresh thread needs: Thumb state.
	XPSRThumb uint32 = 0x0100_0000

	// FrameSize is the size in bytes of StackFrame.
	FrameSize = 16 * 4
	// FrameWords is the number of words in StackFrame.
	FrameWords = FrameSize / 4
)

// ExceptionFrame is what the core stacks on exception entry and unstacks on
// exception return, lowest address first.
type ExceptionFrame struct {
	R0   uint32
	R1   uint32
	R2   uint32
	R3   uint32
	R12  uint32
	LR   uint32
	PC   uint32
	XPSR uint32
}

// StackFrame is the saved state of a suspended thread: r4-r11 as pushed by the
// switch routine, then the hardware exception frame.
type StackFrame struct {
	R4  uint32
	R5  uint32
	R6  uint32
	R7  uint32
	R8  uint32
	R9  uint32
	R10 uint32
	R11 uint32

	Exception ExceptionFrame
}

// Layout is ABI: the switch routine pops eight words and the exception return
// pops eight more. Either array length goes negative if the struct drifts.
var (
	_ [FrameSize - unsafe.Sizeof(StackFrame{})]struct{}
	_ [unsafe.Sizeof(StackFrame{}) - FrameSize]struct{}
)

// NewFrame returns the frame a new thread resumes into: entry(param) in Thumb
// state. entry is a code address; its Thumb bit is cleared because exception
// return requires an even PC.
func NewFrame(entry, param hal.Address) StackFrame {
	return StackFrame{
		R4:  Poison,
		R5:  Poison,
		R6:  Poison,
		R7:  Poison,
		R8:  Poison,
		R9:  Poison,
		R10: Poison,
		R11: Poison,
		Exception: ExceptionFrame{
			R0:   param,
			PC:   entry &^ 1,
			XPSR: XPSRThumb,
		},
	}
}

// Words returns the frame in memory order.
func (f *StackFrame) Words() [FrameWords]uint32 {
	e := &f.Exception
	return [FrameWords]uint32{
		f.R4, f.R5, f.R6, f.R7, f.R8, f.R9, f.R10, f.R11,
		e.R0, e.R1, e.R2, e.R3, e.R12, e.LR, e.PC, e.XPSR,
	}
}

// WriteTo stores the frame at addr.
func (f *StackFrame) WriteTo(mem hal.Memory, addr hal.Address) {
	for i, w := range f.Words() {
		mem.Store32(addr+hal.Address(i*4), w)
	}
}
