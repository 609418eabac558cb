package kernel

import (
	"fmt"

	"ember/hal"
)

// fakeCPU records what the kernel asks of the core. complete plays the switch
// routine.
type fakeCPU struct {
	primask bool
	ram     map[hal.Address]uint32
	slots   hal.SwitchSlots

	pended  bool
	pends   int
	cancels int
	nextPC  hal.Address
	tick    func()
}

func newFakeCPU() *fakeCPU {
	return &fakeCPU{ram: make(map[hal.Address]uint32), nextPC: 0x0800_0000}
}

func (c *fakeCPU) DisableInterrupts() hal.IRQState {
	var prev hal.IRQState
	if c.primask {
		prev = 1
	}
	c.primask = true
	return prev
}

func (c *fakeCPU) RestoreInterrupts(state hal.IRQState) { c.primask = state != 0 }

func (c *fakeCPU) Load32(addr hal.Address) uint32 { return c.ram[addr] }

func (c *fakeCPU) Store32(addr hal.Address, v uint32) {
	if addr&3 != 0 {
		panic(fmt.Sprintf("unaligned store at %#x", addr))
	}
	c.ram[addr] = v
}

func (c *fakeCPU) PendSwitch() {
	c.pended = true
	c.pends++
}

func (c *fakeCPU) CancelSwitch() {
	c.pended = false
	c.cancels++
}

func (c *fakeCPU) SwitchSlots() *hal.SwitchSlots { return &c.slots }

func (c *fakeCPU) EntryPC(hal.Entry) hal.Address {
	pc := c.nextPC
	c.nextPC += 4
	return pc | 1
}

func (c *fakeCPU) IdleEntry() hal.Entry { return func(hal.Address) {} }
func (c *fakeCPU) Nop()                 {}
func (c *fakeCPU) StartTick(fn func())  { c.tick = fn }

func (c *fakeCPU) HeapRegion() (hal.Address, uint32) { return 0x2000_0000, 16 << 10 }

// complete runs a pended switch the way the routine does: the outgoing
// registers go 32 bytes below the live SP and To is consumed.
func (c *fakeCPU) complete(liveSP hal.Address) {
	if !c.pended {
		return
	}
	c.pended = false
	if c.slots.From != 0 {
		c.slots.From = liveSP - 32
	}
	c.slots.To = 0
}

// bumpAlloc hands out consecutive blocks from base.
type bumpAlloc struct {
	next hal.Address
	fail error
}

func (a *bumpAlloc) Alloc(size, align uint32) (hal.Address, error) {
	if a.fail != nil {
		return 0, a.fail
	}
	a.next = (a.next + align - 1) &^ (align - 1)
	base := a.next
	a.next += size
	return base, nil
}

type recordObserver struct {
	events [][3]int
}

func (o *recordObserver) Scheduled(tick uint64, from, to int) {
	o.events = append(o.events, [3]int{int(tick), from, to})
}

func nopEntry(hal.Address) {}
