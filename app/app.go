// Package app boots the kernel with a set of demo workload threads.
package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"ember/console"
	"ember/hal"
	"ember/heap"
	"ember/internal/buildinfo"
	"ember/kernel"
	"ember/trace"
)

// DefaultStackSize is the stack of every workload thread: 64 words.
const DefaultStackSize = 64 * 4

type Config struct {
	// HeapSize limits the heap to the first HeapSize bytes of the region the
	// CPU provides (0 = all of it).
	HeapSize uint32
	// StackSize is the stack of each workload thread.
	StackSize uint32
	// IdleStack is the idle thread's stack.
	IdleStack uint32
	// Workload is the threads spawned at boot, in rotation order.
	Workload []Workload
	// Trace receives one line per scheduling decision (host only).
	Trace io.Writer
}

type system struct {
	h   hal.HAL
	cfg Config
	log hal.Logger

	heap heap.Heap
	k    *kernel.Kernel
	rec  trace.Recorder
	con  *console.Console

	names map[int]string
	fatal atomic.Pointer[kernel.FatalInfo]

	// drain runs a thread that logs the trace; paint draws the fatal screen
	// from the fatal handler. Both are for targets without a host poller.
	drain bool
	paint bool
}

// active is the system the thread bodies belong to.
var active *system

func newSystem(h hal.HAL, cfg Config) *system {
	if cfg.StackSize == 0 {
		cfg.StackSize = DefaultStackSize
	}
	if len(cfg.Workload) == 0 {
		cfg.Workload = mustParseWorkload(DefaultWorkload)
	}

	s := &system{
		h:     h,
		cfg:   cfg,
		log:   h.Logger(),
		names: map[int]string{0: "idle"},
	}
	if d := h.Display(); d != nil {
		s.con = console.New(d.Framebuffer())
	}
	s.k = kernel.New(kernel.Config{
		CPU:       h.CPU(),
		Heap:      &s.heap,
		Logger:    s.log,
		Observer:  &s.rec,
		IdleStack: cfg.IdleStack,
	})

	active = s
	cpu = h.CPU()
	led = h.LED()
	counter.Store(0)
	slots = make([]slot, len(cfg.Workload))
	for i, w := range cfg.Workload {
		slots[i].delta = w.delta()
		s.names[i+1] = w.Name
	}
	return s
}

// boot sets up the heap and the kernel and starts scheduling. It only
// returns on error.
func (s *system) boot() error {
	kernel.ResetFatal()
	kernel.SetFatalHandler(s.onFatal)

	base, size := s.h.CPU().HeapRegion()
	if s.cfg.HeapSize != 0 {
		if s.cfg.HeapSize > size {
			return fmt.Errorf("app: heap of %d bytes does not fit the %d-byte region", s.cfg.HeapSize, size)
		}
		size = s.cfg.HeapSize
	}
	s.heap.Init(base, size)

	s.log.WriteLineString("ember " + buildinfo.Long())
	s.log.WriteLineString(fmt.Sprintf("heap %#08x+%d, %d threads", base, size, len(s.cfg.Workload)))

	return s.k.Start(s.spawn)
}

func (s *system) spawn(k *kernel.Kernel) error {
	for i, w := range s.cfg.Workload {
		if _, err := k.Spawn(w.Name, w.entry(), hal.Address(i), s.cfg.StackSize); err != nil {
			return fmt.Errorf("app: spawn %s: %w", w.Name, err)
		}
	}
	if s.drain {
		t, err := k.Spawn("trace", traceEntry, 0, s.cfg.StackSize)
		if err != nil {
			return fmt.Errorf("app: spawn trace: %w", err)
		}
		s.names[t.ID()] = t.Name()
	}
	return nil
}

func (s *system) onFatal(info kernel.FatalInfo) {
	s.fatal.Store(&info)
	s.log.WriteLineString("FATAL: " + info.Err.Error())
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line != "" {
			s.log.WriteLineString(line)
		}
	}
	if s.paint {
		s.paintFatal(&info)
	}
}

func (s *system) paintFatal(info *kernel.FatalInfo) {
	if s.con == nil {
		return
	}
	lines := strings.Split(info.Err.Error(), ": ")
	if len(info.Stack) == 0 {
		lines = append(lines, "stack: unavailable")
	}
	if err := s.con.Fatal("ember: fatal", lines...); err != nil {
		s.log.WriteLineString("fatal screen: " + err.Error())
	}
}

// appendEvent formats ev into dst without allocating when dst has room.
func (s *system) appendEvent(dst []byte, ev trace.Event) []byte {
	dst = append(dst, "tick "...)
	dst = strconv.AppendUint(dst, ev.Tick, 10)
	dst = append(dst, ' ')
	dst = s.appendName(dst, int(ev.From))
	dst = append(dst, " -> "...)
	return s.appendName(dst, int(ev.To))
}

func (s *system) appendName(dst []byte, id int) []byte {
	if id < 0 {
		return append(dst, '-')
	}
	if name, ok := s.names[id]; ok {
		return append(dst, name...)
	}
	dst = append(dst, '#')
	return strconv.AppendInt(dst, int64(id), 10)
}

var traceLine [64]byte

func traceEntry(hal.Address) {
	s := active
	for {
		for ev, ok := s.rec.TryNext(); ok; ev, ok = s.rec.TryNext() {
			s.log.WriteLineBytes(s.appendEvent(traceLine[:0], ev))
		}
		cpu.Nop()
	}
}
