package kernel

import (
	"errors"
	"testing"

	"ember/heap"
)

func TestNewThreadFrameAtTop(t *testing.T) {
	cpu := newFakeCPU()
	alloc := &bumpAlloc{next: 0x2000_0004}

	th, err := newThread(cpu, alloc, 1, "a", nopEntry, 42, 256)
	if err != nil {
		t.Fatalf("newThread() err = %v", err)
	}
	if th.Stack() != 0x2000_0008 {
		t.Fatalf("Stack() = %#x, want %#x", th.Stack(), 0x2000_0008)
	}
	if want := uint32(0x2000_0008 + 256 - FrameSize); th.SP() != want {
		t.Fatalf("SP() = %#x, want %#x", th.SP(), want)
	}
	if th.SP()%StackAlign != 0 {
		t.Fatalf("SP() = %#x, not %d-aligned", th.SP(), StackAlign)
	}
	if got := cpu.Load32(th.SP() + 32); got != 42 {
		t.Fatalf("frame R0 = %d, want 42", got)
	}
	if got := cpu.Load32(th.SP() + 56); got&1 != 0 {
		t.Fatalf("frame PC = %#x, want Thumb bit clear", got)
	}
}

func TestNewThreadOddStackSize(t *testing.T) {
	cpu := newFakeCPU()
	alloc := &bumpAlloc{next: 0x2000_0000}

	th, err := newThread(cpu, alloc, 1, "odd", nopEntry, 0, 100)
	if err != nil {
		t.Fatalf("newThread() err = %v", err)
	}
	// Top is 0x20000064 rounded down to 0x20000060.
	if want := uint32(0x2000_0060 - FrameSize); th.SP() != want {
		t.Fatalf("SP() = %#x, want %#x", th.SP(), want)
	}
}

func TestNewThreadStackTooSmall(t *testing.T) {
	_, err := newThread(newFakeCPU(), &bumpAlloc{}, 1, "tiny", nopEntry, 0, FrameSize-4)
	if !errors.Is(err, ErrStackTooSmall) {
		t.Fatalf("newThread() err = %v, want %v", err, ErrStackTooSmall)
	}
}

func TestNewThreadNilEntry(t *testing.T) {
	_, err := newThread(newFakeCPU(), &bumpAlloc{}, 1, "nil", nil, 0, 256)
	if !errors.Is(err, ErrNilEntry) {
		t.Fatalf("newThread() err = %v, want %v", err, ErrNilEntry)
	}
}

func resetFatal(t *testing.T) {
	t.Helper()
	ResetFatal()
	t.Cleanup(ResetFatal)
}

func TestNewThreadAllocFailureIsFatal(t *testing.T) {
	resetFatal(t)

	var got FatalInfo
	calls := 0
	SetFatalHandler(func(info FatalInfo) {
		calls++
		got = info
	})

	allocErr := &heap.AllocError{Size: 256, Align: StackAlign, Free: 16}
	alloc := &bumpAlloc{fail: allocErr}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("newThread() did not panic")
			}
		}()
		newThread(newFakeCPU(), alloc, 1, "big", nopEntry, 0, 256)
	}()

	if calls != 1 {
		t.Fatalf("fatal handler calls = %d, want 1", calls)
	}
	var ae *heap.AllocError
	if !errors.As(got.Err, &ae) {
		t.Fatalf("FatalInfo.Err = %v, want *heap.AllocError", got.Err)
	}
	if ae.Size != 256 || ae.Align != StackAlign {
		t.Fatalf("AllocError = %+v, want size 256 align %d", ae, StackAlign)
	}
	if !InFatal() {
		t.Fatalf("InFatal() = false, want true")
	}
	if len(got.Stack) == 0 {
		t.Fatalf("FatalInfo.Stack is empty")
	}
}
