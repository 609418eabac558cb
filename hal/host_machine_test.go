//go:build !tinygo

package hal

import (
	"errors"
	"sync/atomic"
	"testing"
)

func writeWords(m *Machine, addr Address, words []uint32) {
	for i, w := range words {
		m.Store32(addr+Address(i*4), w)
	}
}

func TestPendSVSavesAndRestores(t *testing.T) {
	m := NewMachine(MachineConfig{})

	// Incoming thread: r4-r11 = 0xB4..0xBB, then its exception frame.
	const toSP = RAMBase + 0x400
	var frame []uint32
	for r := 4; r <= 11; r++ {
		frame = append(frame, 0xB0+uint32(r))
	}
	writeWords(m, toSP, frame)

	// Outgoing thread is live on PSP with r4-r11 = 0xA4..0xAB.
	const livePSP = RAMBase + 0x200
	m.psp = livePSP
	m.spsel = true
	for r := 4; r <= 11; r++ {
		m.r[r] = 0xA0 + uint32(r)
	}
	m.slots = SwitchSlots{From: 0x1234, To: toSP}
	m.lr = excReturnMSP

	m.pendSVHandler()

	for r := 4; r <= 11; r++ {
		if got, want := m.r[r], 0xB0+uint32(r); got != want {
			t.Fatalf("r%d = %#x, want %#x", r, got, want)
		}
		if got, want := m.Load32(livePSP-32+Address((r-4)*4)), 0xA0+uint32(r); got != want {
			t.Fatalf("saved r%d = %#x, want %#x", r, got, want)
		}
	}
	if m.psp != toSP+32 {
		t.Fatalf("psp = %#x, want %#x", m.psp, toSP+32)
	}
	if m.slots.From != livePSP-32 || m.slots.To != 0 {
		t.Fatalf("slots = %+v, want From %#x To 0", m.slots, livePSP-32)
	}
	if m.lr != excReturnPSP {
		t.Fatalf("lr = %#x, want %#x", m.lr, excReturnPSP)
	}
	if m.primask {
		t.Fatalf("primask left set")
	}
	if m.Switches() != 1 {
		t.Fatalf("Switches() = %d, want 1", m.Switches())
	}
}

func TestPendSVFirstSwitchSkipsSave(t *testing.T) {
	m := NewMachine(MachineConfig{})
	const toSP = RAMBase + 0x400
	writeWords(m, toSP, []uint32{1, 2, 3, 4, 5, 6, 7, 8})
	m.psp = RAMBase + 0x200
	m.slots = SwitchSlots{To: toSP}

	m.pendSVHandler()

	if got := m.Load32(RAMBase + 0x200 - 4); got != 0 {
		t.Fatalf("memory below psp = %#x, want untouched", got)
	}
	if m.slots.From != 0 || m.slots.To != 0 {
		t.Fatalf("slots = %+v, want zero", m.slots)
	}
	if m.r[4] != 1 || m.r[11] != 8 {
		t.Fatalf("r4, r11 = %d, %d, want 1, 8", m.r[4], m.r[11])
	}
}

func TestPendSVKeepsPrimask(t *testing.T) {
	m := NewMachine(MachineConfig{})
	m.slots = SwitchSlots{To: RAMBase + 0x100}
	m.primask = true

	m.pendSVHandler()

	if !m.primask {
		t.Fatalf("primask cleared, want restored to set")
	}
}

// switchTo boots a machine whose main thread pends a switch to a hand-built
// frame.
func switchTo(t *testing.T, build func(m *Machine) []uint32) error {
	t.Helper()
	m := NewMachine(MachineConfig{})
	return m.Boot(func() {
		sp := RAMBase + 0x400
		writeWords(m, sp, build(m))
		m.SwitchSlots().To = sp
		m.PendSwitch()
		m.Nop()
		t.Errorf("switch did not leave the main thread")
		m.Halt()
	})
}

func frameWords(pc, xpsr uint32) []uint32 {
	return []uint32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, pc, xpsr}
}

func TestExceptionReturnInvalidState(t *testing.T) {
	err := switchTo(t, func(m *Machine) []uint32 {
		pc := m.EntryPC(func(Address) { select {} })
		return frameWords(pc&^1, 0)
	})

	var f *Fault
	if !errors.As(err, &f) || f.Reason != "INVSTATE: xPSR Thumb bit clear" {
		t.Fatalf("Boot() err = %v, want INVSTATE fault", err)
	}
}

func TestExceptionReturnOddPC(t *testing.T) {
	err := switchTo(t, func(m *Machine) []uint32 {
		pc := m.EntryPC(func(Address) { select {} })
		return frameWords(pc, xpsrThumb)
	})

	var f *Fault
	if !errors.As(err, &f) || f.Reason != "exception return to odd PC" {
		t.Fatalf("Boot() err = %v, want odd PC fault", err)
	}
}

func TestExceptionReturnEntersThread(t *testing.T) {
	var got Address
	err := switchTo(t, func(m *Machine) []uint32 {
		pc := m.EntryPC(func(p Address) {
			got = p
			m.Halt()
			m.Nop()
		})
		w := frameWords(pc&^1, xpsrThumb)
		w[8] = 0xCAFE
		return w
	})
	if err != nil {
		t.Fatalf("Boot() err = %v", err)
	}
	if got != 0xCAFE {
		t.Fatalf("entry param = %#x, want 0xCAFE", got)
	}
}

func TestExceptionReturnEntryReturns(t *testing.T) {
	err := switchTo(t, func(m *Machine) []uint32 {
		pc := m.EntryPC(func(Address) {})
		return frameWords(pc&^1, xpsrThumb)
	})

	var f *Fault
	if !errors.As(err, &f) || f.Reason != "thread entry returned" {
		t.Fatalf("Boot() err = %v, want entry-returned fault", err)
	}
}

func TestMemoryFaults(t *testing.T) {
	m := NewMachine(MachineConfig{RAMSize: 1 << 10})
	tests := []struct {
		name   string
		addr   Address
		reason string
	}{
		{"below RAM", 0, "bus error"},
		{"past RAM", RAMBase + 1<<10, "bus error"},
		{"unaligned", RAMBase + 2, "unaligned word access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				f, ok := recover().(*Fault)
				if !ok || f.Reason != tt.reason {
					t.Fatalf("Load32(%#x) panic = %v, want %q", tt.addr, f, tt.reason)
				}
			}()
			m.Load32(tt.addr)
		})
	}
}

func TestTickRateAndMaxTicks(t *testing.T) {
	m := NewMachine(MachineConfig{Reload: 10, MaxTicks: 5})
	var ticks int
	err := m.Boot(func() {
		m.StartTick(func() { ticks++ })
		for {
			m.Nop()
		}
	})
	if err != nil {
		t.Fatalf("Boot() err = %v", err)
	}
	if ticks != 5 || m.Ticks() != 5 {
		t.Fatalf("ticks = %d, Ticks() = %d, want 5", ticks, m.Ticks())
	}
	if m.Cycles() != 50 {
		t.Fatalf("Cycles() = %d, want 50", m.Cycles())
	}
}

func TestPrimaskDefersTick(t *testing.T) {
	m := NewMachine(MachineConfig{Reload: 4, MaxTicks: 1})
	var masked uint64
	err := m.Boot(func() {
		m.StartTick(func() {})
		state := m.DisableInterrupts()
		for i := 0; i < 10; i++ {
			m.Nop()
		}
		masked = m.Ticks()
		m.RestoreInterrupts(state)
		for {
			m.Nop()
		}
	})
	if err != nil {
		t.Fatalf("Boot() err = %v", err)
	}
	if masked != 0 {
		t.Fatalf("Ticks() while masked = %d, want 0", masked)
	}
	if m.Ticks() != 1 {
		t.Fatalf("Ticks() = %d, want 1", m.Ticks())
	}
}

func TestBootWaitsForLiveContext(t *testing.T) {
	m := NewMachine(MachineConfig{})
	started := make(chan struct{})
	go func() {
		<-started
		m.Halt()
	}()

	var a, b int
	var exited atomic.Bool
	err := m.Boot(func() {
		defer exited.Store(true)
		close(started)
		for {
			a++
			m.Nop()
			b++
		}
	})
	if err != nil {
		t.Fatalf("Boot() err = %v", err)
	}
	if !exited.Load() {
		t.Fatalf("Boot() returned while the main context was still running")
	}
	if a != b+1 {
		t.Fatalf("a, b = %d, %d, want the context stopped inside Nop", a, b)
	}
}
