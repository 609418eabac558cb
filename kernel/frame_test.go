package kernel

import (
	"testing"
	"unsafe"
)

func TestStackFrameSize(t *testing.T) {
	if got := unsafe.Sizeof(StackFrame{}); got != FrameSize {
		t.Fatalf("Sizeof(StackFrame) = %d, want %d", got, FrameSize)
	}
	if got := unsafe.Offsetof(StackFrame{}.Exception); got != 32 {
		t.Fatalf("Offsetof(Exception) = %d, want 32", got)
	}
}

func TestNewFrameWords(t *testing.T) {
	f := NewFrame(0x0800_0101, 0x1234)
	w := f.Words()

	for i := 0; i < 8; i++ {
		if w[i] != Poison {
			t.Fatalf("word %d = %#x, want %#x", i, w[i], Poison)
		}
	}
	want := [8]uint32{0x1234, 0, 0, 0, 0, 0, 0x0800_0100, XPSRThumb}
	for i, v := range want {
		if w[8+i] != v {
			t.Fatalf("word %d = %#x, want %#x", 8+i, w[8+i], v)
		}
	}
}

func TestFrameWriteTo(t *testing.T) {
	cpu := newFakeCPU()
	f := NewFrame(0x0800_0000, 7)
	f.WriteTo(cpu, 0x2000_0100)

	if got := cpu.Load32(0x2000_0100); got != Poison {
		t.Fatalf("R4 = %#x, want %#x", got, Poison)
	}
	if got := cpu.Load32(0x2000_0100 + 32); got != 7 {
		t.Fatalf("R0 = %d, want 7", got)
	}
	if got := cpu.Load32(0x2000_0100 + 60); got != XPSRThumb {
		t.Fatalf("xPSR = %#x, want %#x", got, XPSRThumb)
	}
}
