package heap

import (
	"errors"
	"testing"
)

func TestAllocAligns(t *testing.T) {
	var h Heap
	h.Init(0x2000_0001, 256)

	a, err := h.Alloc(10, 8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if a != 0x2000_0008 {
		t.Fatalf("Alloc() = %#x, want %#x", a, 0x2000_0008)
	}

	b, err := h.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if b != 0x2000_0014 {
		t.Fatalf("Alloc() = %#x, want %#x", b, 0x2000_0014)
	}
	if got := h.Used(); got != 0x17 {
		t.Fatalf("Used() = %d, want %d", got, 0x17)
	}
}

func TestAllocExhausted(t *testing.T) {
	var h Heap
	h.Init(0x2000_0000, 64)

	if _, err := h.Alloc(64, 8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	_, err := h.Alloc(8, 8)
	var ae *AllocError
	if !errors.As(err, &ae) {
		t.Fatalf("Alloc() err = %v, want *AllocError", err)
	}
	if ae.Size != 8 || ae.Align != 8 || ae.Free != 0 {
		t.Fatalf("AllocError = %+v, want size 8 align 8 free 0", *ae)
	}
}

func TestAllocNearTopOfAddressSpace(t *testing.T) {
	var h Heap
	h.Init(0xFFFF_FF00, 0xF0)

	if _, err := h.Alloc(0x100, 8); err == nil {
		t.Fatal("expected error for block past the end")
	}
}

func TestAllocUninitialized(t *testing.T) {
	var h Heap
	if _, err := h.Alloc(8, 8); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Alloc() err = %v, want ErrNotInitialized", err)
	}
}

func TestAllocBadAlignment(t *testing.T) {
	var h Heap
	h.Init(0x2000_0000, 64)
	if _, err := h.Alloc(8, 3); err == nil {
		t.Fatal("expected error for non power-of-two alignment")
	}
}
