// Package heap hands out stack blocks from a fixed RAM region.
//
// Blocks are never freed: threads live for the lifetime of the system, so a
// bump allocator is all the kernel needs.
package heap

import (
	"errors"
	"fmt"

	"ember/hal"
)

var ErrNotInitialized = errors.New("heap: not initialized")

// AllocError reports an allocation the heap could not satisfy.
type AllocError struct {
	Size  uint32
	Align uint32
	Free  uint32
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("heap: alloc of %d bytes (align %d) failed, %d bytes free", e.Size, e.Align, e.Free)
}

// Heap is a bump allocator over [base, base+size).
type Heap struct {
	base hal.Address
	end  hal.Address
	next hal.Address
}

// Init hands the region to the heap. It must run before the scheduler starts.
func (h *Heap) Init(base hal.Address, size uint32) {
	h.base = base
	h.end = base + size
	h.next = base
}

// Alloc returns the address of size bytes aligned to align, a power of two.
func (h *Heap) Alloc(size, align uint32) (hal.Address, error) {
	if h.end == 0 {
		return 0, ErrNotInitialized
	}
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("heap: alignment %d is not a power of two", align)
	}
	addr := (h.next + align - 1) &^ (align - 1)
	if addr < h.next || addr > h.end || size > h.end-addr {
		return 0, &AllocError{Size: size, Align: align, Free: h.Free()}
	}
	h.next = addr + size
	return addr, nil
}

// Used returns the number of bytes handed out, including alignment padding.
func (h *Heap) Used() uint32 { return h.next - h.base }

// Free returns the number of bytes left.
func (h *Heap) Free() uint32 { return h.end - h.next }
