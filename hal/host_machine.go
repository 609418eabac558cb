//go:build !tinygo

package hal

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Memory map of the simulated core.
const (
	RAMBase Address = 0x2000_0000

	codeBase   Address = 0x0800_0000 // entry functions handed out by EntryPC
	resumeBase Address = 0x0900_0000 // return addresses of interrupted contexts
)

const (
	excReturnMSP uint32 = 0xFFFF_FFF9 // thread mode, main stack
	excReturnPSP uint32 = 0xFFFF_FFFD // thread mode, process stack

	xpsrThumb uint32 = 0x0100_0000

	hwFrameBytes = 8 * 4
)

// MachineConfig sizes the simulated core.
type MachineConfig struct {
	// RAMSize is the size of RAM at RAMBase. Default 16 KiB.
	RAMSize uint32
	// MainStack is reserved at the top of RAM for MSP. Default 1 KiB.
	MainStack uint32
	// Reload is the number of instructions per SysTick. Default 100.
	Reload uint64
	// MaxTicks halts the machine after that many ticks (0 = never).
	MaxTicks uint64
	// Pace sleeps this long in every SysTick, to watch the machine run.
	Pace time.Duration
}

func (c *MachineConfig) withDefaults() MachineConfig {
	out := *c
	if out.RAMSize == 0 {
		out.RAMSize = 16 << 10
	}
	if out.MainStack == 0 {
		out.MainStack = 1 << 10
	}
	if out.Reload == 0 {
		out.Reload = 100
	}
	return out
}

// Fault is a simulated processor fault. It halts the machine.
type Fault struct {
	Addr   Address
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("hal: fault at %#08x: %s", f.Addr, f.Reason)
}

type simContext struct {
	ret  Address
	wake chan struct{}
}

// Machine is a single-core Cortex-M simulator: register file, MSP/PSP,
// PRIMASK, SysTick and PendSV with hardware exception stacking, and RAM.
//
// Thread code runs on goroutines, but only the goroutine of the context that
// is live on the core executes; the others are parked until an exception
// return pops their return address. Thread code marks instruction boundaries
// with Nop, which is where pending exceptions are taken.
type Machine struct {
	cfg MachineConfig
	ram []byte

	r       [13]uint32 // r0-r12
	msp     uint32
	psp     uint32
	lr      uint32
	xpsr    uint32
	spsel   bool // thread mode runs on PSP
	handler bool
	primask bool

	pendSV   bool
	pendTick bool
	tickOn   bool
	tick     func()

	slots    SwitchSlots
	cycles   uint64
	ticks    atomic.Uint64
	switches atomic.Uint64

	code       map[Address]Entry
	nextCode   Address
	ctxs       map[Address]*simContext
	nextResume Address
	cur        *simContext

	once sync.Once
	done chan struct{}
	err  error
	// live counts context goroutines that have not exited yet.
	live sync.WaitGroup
}

// NewMachine returns a powered-off machine.
func NewMachine(cfg MachineConfig) *Machine {
	cfg = cfg.withDefaults()
	m := &Machine{
		cfg:        cfg,
		ram:        make([]byte, cfg.RAMSize),
		code:       make(map[Address]Entry),
		nextCode:   codeBase,
		ctxs:       make(map[Address]*simContext),
		nextResume: resumeBase,
		done:       make(chan struct{}),
	}
	m.msp = RAMBase + cfg.RAMSize
	m.xpsr = xpsrThumb
	return m
}

// Boot runs main in thread mode on the main stack and blocks until the
// machine halts and every context has stopped: the live one at its next
// instruction boundary, the parked ones at once. It returns the fault that
// halted it, if any.
func (m *Machine) Boot(main func()) error {
	ctx := m.newContext()
	m.cur = ctx
	m.live.Add(1)
	go func() {
		defer m.live.Done()
		defer m.recoverThread()
		main()
		m.halt(nil)
	}()
	<-m.done
	m.live.Wait()
	return m.err
}

// Halt stops the machine at the next instruction boundary.
func (m *Machine) Halt() { m.halt(nil) }

// Done is closed once the machine has halted.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Step executes one instruction boundary: it advances the cycle counter and
// takes pending exceptions.
func (m *Machine) Step() {
	select {
	case <-m.done:
		runtime.Goexit()
	default:
	}
	m.cycles++
	if m.tickOn && m.cycles%m.cfg.Reload == 0 {
		m.pendTick = true
	}
	m.takeExceptions()
}

func (m *Machine) takeExceptions() {
	for !m.primask && !m.handler {
		switch {
		case m.pendTick:
			m.pendTick = false
			m.enter()
			m.sysTick()
			m.exceptionReturn()
		case m.pendSV:
			m.pendSV = false
			m.enter()
			m.pendSVHandler()
			m.exceptionReturn()
		default:
			return
		}
	}
}

func (m *Machine) sysTick() {
	n := m.ticks.Add(1)
	if m.tick != nil {
		m.tick()
	}
	if m.cfg.Pace > 0 {
		time.Sleep(m.cfg.Pace)
	}
	if m.cfg.MaxTicks > 0 && n >= m.cfg.MaxTicks {
		m.halt(nil)
		runtime.Goexit()
	}
}

// enter stacks the hardware exception frame of the interrupted context.
func (m *Machine) enter() {
	sp := m.threadSP() - hwFrameBytes
	frame := [8]uint32{m.r[0], m.r[1], m.r[2], m.r[3], m.r[12], m.lr, m.cur.ret, m.xpsr}
	for i, w := range frame {
		m.Store32(sp+uint32(i*4), w)
	}
	m.setThreadSP(sp)
	if m.spsel {
		m.lr = excReturnPSP
	} else {
		m.lr = excReturnMSP
	}
	m.handler = true
}

// exceptionReturn unstacks the frame selected by EXC_RETURN in lr and resumes
// whatever context the popped PC belongs to.
func (m *Machine) exceptionReturn() {
	m.handler = false
	switch m.lr {
	case excReturnPSP:
		m.spsel = true
	case excReturnMSP:
		m.spsel = false
	default:
		m.fault(m.lr, "invalid EXC_RETURN")
	}

	sp := m.threadSP()
	var frame [8]uint32
	for i := range frame {
		frame[i] = m.Load32(sp + uint32(i*4))
	}
	m.setThreadSP(sp + hwFrameBytes)
	m.r[0], m.r[1], m.r[2], m.r[3], m.r[12] = frame[0], frame[1], frame[2], frame[3], frame[4]
	m.lr = frame[5]
	pc := frame[6]
	m.xpsr = frame[7]

	if m.xpsr&xpsrThumb == 0 {
		m.fault(pc, "INVSTATE: xPSR Thumb bit clear")
	}
	if pc&1 != 0 {
		m.fault(pc, "exception return to odd PC")
	}
	m.dispatch(pc)
}

func (m *Machine) dispatch(pc Address) {
	prev := m.cur
	if pc == prev.ret {
		return
	}
	if next, ok := m.ctxs[pc]; ok {
		m.cur = next
		next.wake <- struct{}{}
	} else if fn, ok := m.code[pc]; ok {
		next := m.newContext()
		m.cur = next
		m.live.Add(1)
		go m.run(fn, m.r[0])
	} else {
		m.fault(pc, "no code at PC")
	}

	select {
	case <-prev.wake:
	case <-m.done:
		runtime.Goexit()
	}
}

func (m *Machine) run(fn Entry, param Address) {
	defer m.live.Done()
	defer m.recoverThread()
	fn(param)
	m.fault(m.lr, "thread entry returned")
}

func (m *Machine) recoverThread() {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			m.halt(err)
			return
		}
		m.halt(fmt.Errorf("hal: thread panicked: %v", r))
	}
}

func (m *Machine) newContext() *simContext {
	ctx := &simContext{ret: m.nextResume, wake: make(chan struct{}, 1)}
	m.ctxs[ctx.ret] = ctx
	m.nextResume += 4
	return ctx
}

func (m *Machine) threadSP() uint32 {
	if m.spsel {
		return m.psp
	}
	return m.msp
}

func (m *Machine) setThreadSP(sp uint32) {
	if m.spsel {
		m.psp = sp
		return
	}
	m.msp = sp
}

func (m *Machine) halt(err error) {
	m.once.Do(func() {
		m.err = err
		close(m.done)
	})
}

func (m *Machine) fault(addr Address, reason string) {
	m.halt(&Fault{Addr: addr, Reason: reason})
	runtime.Goexit()
}

// DisableInterrupts sets PRIMASK and returns its previous value.
func (m *Machine) DisableInterrupts() IRQState {
	var prev IRQState
	if m.primask {
		prev = 1
	}
	m.primask = true
	return prev
}

// RestoreInterrupts restores PRIMASK. Pending exceptions are taken at the
// next instruction boundary.
func (m *Machine) RestoreInterrupts(state IRQState) {
	m.primask = state != 0
}

func (m *Machine) PendSwitch()               { m.pendSV = true }
func (m *Machine) CancelSwitch()             { m.pendSV = false }
func (m *Machine) SwitchSlots() *SwitchSlots { return &m.slots }
func (m *Machine) Nop()                      { m.Step() }

// EntryPC registers fn and returns its code address. Like a Thumb function
// pointer, the returned address has bit 0 set.
func (m *Machine) EntryPC(fn Entry) Address {
	pc := m.nextCode
	m.nextCode += 4
	m.code[pc] = fn
	return pc | 1
}

func (m *Machine) IdleEntry() Entry {
	return func(Address) {
		for {
			m.Step()
		}
	}
}

func (m *Machine) StartTick(handler func()) {
	m.tick = handler
	m.tickOn = true
}

func (m *Machine) HeapRegion() (Address, uint32) {
	return RAMBase, m.cfg.RAMSize - m.cfg.MainStack
}

func (m *Machine) Load32(addr Address) uint32 {
	off := m.offset(addr)
	return binary.LittleEndian.Uint32(m.ram[off : off+4])
}

func (m *Machine) Store32(addr Address, v uint32) {
	off := m.offset(addr)
	binary.LittleEndian.PutUint32(m.ram[off:off+4], v)
}

func (m *Machine) offset(addr Address) uint32 {
	if addr&3 != 0 {
		panic(&Fault{Addr: addr, Reason: "unaligned word access"})
	}
	if addr < RAMBase || addr-RAMBase > m.cfg.RAMSize-4 {
		panic(&Fault{Addr: addr, Reason: "bus error"})
	}
	return addr - RAMBase
}

// Reg returns general-purpose register rN (0-12).
func (m *Machine) Reg(n int) uint32 { return m.r[n] }

// SetReg writes general-purpose register rN (0-12).
func (m *Machine) SetReg(n int, v uint32) { m.r[n] = v }

func (m *Machine) PSP() uint32      { return m.psp }
func (m *Machine) MSP() uint32      { return m.msp }
func (m *Machine) Primask() bool    { return m.primask }
func (m *Machine) Cycles() uint64   { return m.cycles }
func (m *Machine) Ticks() uint64    { return m.ticks.Load() }
func (m *Machine) Switches() uint64 { return m.switches.Load() }
