package kernel

import (
	"fmt"

	"ember/hal"
)

// DefaultIdleStack leaves room below the initial frame for the exception
// frame stacked when the idle thread is preempted.
const DefaultIdleStack = 64 * 4

// Observer is told about every switch the scheduler decides on. It is called
// from the tick interrupt with interrupts masked and must not block.
type Observer interface {
	Scheduled(tick uint64, fromID, toID int)
}

// Config wires a Kernel to its collaborators.
type Config struct {
	CPU       hal.CPU
	Heap      Allocator
	Logger    hal.Logger
	Observer  Observer
	IdleStack uint32
}

// Kernel is a preemptive round-robin scheduler: every tick it rotates the
// ready queue and, if the front changed, arms PendSV to switch to it.
type Kernel struct {
	cpu       hal.CPU
	heap      Allocator
	log       hal.Logger
	obs       Observer
	idleStack uint32

	ready *ReadyQueue
	sw    SwitchService

	threads []*Thread
	idle    *Thread
	// running is the thread live on the core as of the last settle; pending
	// is the target of a switch the routine has not run yet.
	running *Thread
	pending *Thread

	ticks    uint64
	switches uint64
}

// New creates a kernel. Nothing runs until Init or Start.
func New(cfg Config) *Kernel {
	if cfg.IdleStack == 0 {
		cfg.IdleStack = DefaultIdleStack
	}
	return &Kernel{
		cpu:       cfg.CPU,
		heap:      cfg.Heap,
		log:       cfg.Logger,
		obs:       cfg.Observer,
		idleStack: cfg.IdleStack,
		ready:     newReadyQueue(cfg.CPU, 8),
		sw:        newSwitchService(cfg.CPU),
	}
}

// Init creates the idle thread, makes it the switch target with nothing to
// switch from, and requests the first switch. Execution enters the idle
// thread as soon as interrupts are enabled.
func (k *Kernel) Init() error {
	state := k.cpu.DisableInterrupts()
	if k.idle != nil {
		k.cpu.RestoreInterrupts(state)
		return nil
	}
	idle, err := newThread(k.cpu, k.heap, 0, "idle", k.cpu.IdleEntry(), 0, k.idleStack)
	if err != nil {
		k.cpu.RestoreInterrupts(state)
		return fmt.Errorf("kernel: idle thread: %w", err)
	}
	k.idle = idle
	k.threads = append(k.threads, idle)
	k.ready.PushBack(idle)
	k.sw.set(0, idle.sp)
	k.pending = idle
	k.sw.RequestSwitch()
	if k.obs != nil {
		k.obs.Scheduled(k.ticks, -1, idle.id)
	}
	k.cpu.RestoreInterrupts(state)

	k.logf("kernel: %v", idle)
	return nil
}

// Spawn creates a thread and appends it to the rotation. Threads run in
// creation order, after the idle thread. Threads may call Spawn; the ID, the
// stack allocation and the append happen in one critical section.
func (k *Kernel) Spawn(name string, entry hal.Entry, param hal.Address, stackSize uint32) (*Thread, error) {
	state := k.cpu.DisableInterrupts()
	t, err := k.spawn(name, entry, param, stackSize)
	k.cpu.RestoreInterrupts(state)
	if err != nil {
		return nil, err
	}

	k.logf("kernel: %v", t)
	return t, nil
}

// spawn must be called with interrupts masked.
func (k *Kernel) spawn(name string, entry hal.Entry, param hal.Address, stackSize uint32) (*Thread, error) {
	if k.idle == nil {
		return nil, ErrNotInitialized
	}
	t, err := newThread(k.cpu, k.heap, len(k.threads), name, entry, param, stackSize)
	if err != nil {
		return nil, err
	}
	k.threads = append(k.threads, t)
	k.ready.PushBack(t)
	return t, nil
}

// Start runs Init and setup with interrupts masked, starts the tick and
// unmasks interrupts, which lets the pending switch into the idle thread
// happen. It only returns if Init or setup fail.
func (k *Kernel) Start(setup func(*Kernel) error) error {
	state := k.cpu.DisableInterrupts()
	if err := k.Init(); err != nil {
		k.cpu.RestoreInterrupts(state)
		return err
	}
	if setup != nil {
		if err := setup(k); err != nil {
			k.cpu.RestoreInterrupts(state)
			return err
		}
	}
	k.cpu.StartTick(k.Tick)
	k.cpu.RestoreInterrupts(state)

	for {
		k.cpu.Nop()
	}
}

// Tick is the tick-interrupt callback: one rotation per period.
func (k *Kernel) Tick() {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)

	k.ticks++
	k.schedule()
}

// Schedule runs one rotation outside the tick.
func (k *Kernel) Schedule() {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)

	k.schedule()
}

// Yield gives the rest of the time slice to the next thread.
func (k *Kernel) Yield() {
	k.Schedule()
	k.cpu.Nop()
}

// schedule must be called with interrupts masked.
func (k *Kernel) schedule() {
	k.settle()

	next, rotated := k.ready.Rotate()
	if !rotated {
		return
	}
	last := k.pending
	if last == nil {
		last = k.running
	}
	if next == last {
		return
	}
	if next == k.running {
		// Rotation came back around before the armed switch ran.
		k.sw.cancel()
		k.pending = nil
		return
	}

	var from hal.Address
	fromID := -1
	if k.running != nil {
		from = k.running.sp
		fromID = k.running.id
	}
	k.sw.set(from, next.sp)
	k.pending = next
	k.sw.RequestSwitch()

	if k.obs != nil {
		k.obs.Scheduled(k.ticks, fromID, next.id)
	}
}

// settle records a switch the routine has completed: the outgoing thread's
// registers now sit at the SP the routine left in From.
func (k *Kernel) settle() {
	if k.pending == nil || !k.sw.consumed() {
		return
	}
	if k.running != nil {
		k.running.sp = k.sw.saved()
	}
	k.running = k.pending
	k.pending = nil
	k.switches++
}

// Running returns the thread live on the core, or nil before the first switch.
func (k *Kernel) Running() *Thread {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)

	k.settle()
	return k.running
}

// Idle returns the idle thread.
func (k *Kernel) Idle() *Thread { return k.idle }

// Threads returns every thread in creation order.
func (k *Kernel) Threads() []*Thread {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)
	return append([]*Thread(nil), k.threads...)
}

// Ready returns the ready queue.
func (k *Kernel) Ready() *ReadyQueue { return k.ready }

// Switch returns the context-switch service.
func (k *Kernel) Switch() *SwitchService { return &k.sw }

// Ticks returns the number of ticks seen.
func (k *Kernel) Ticks() uint64 {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)
	return k.ticks
}

// Switches returns the number of completed switches, the boot switch
// included.
func (k *Kernel) Switches() uint64 {
	state := k.cpu.DisableInterrupts()
	defer k.cpu.RestoreInterrupts(state)

	k.settle()
	return k.switches
}

func (k *Kernel) logf(format string, args ...any) {
	if k.log == nil {
		return
	}
	k.log.WriteLineString(fmt.Sprintf(format, args...))
}
