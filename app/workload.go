package app

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"ember/hal"

	"github.com/google/shlex"
)

// Kind selects a workload thread body.
type Kind uint8

const (
	KindInc Kind = iota + 1
	KindDec
	KindBlink
	KindSpin
)

var kindNames = map[string]Kind{
	"inc":   KindInc,
	"dec":   KindDec,
	"blink": KindBlink,
	"spin":  KindSpin,
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Workload is one thread spawned at boot.
type Workload struct {
	Kind Kind
	// Step is what inc adds to and dec subtracts from the shared counter.
	Step int32
	Name string
}

// DefaultWorkload is the two-counter demo plus a heartbeat LED.
const DefaultWorkload = "inc:1 dec:1 blink"

// ParseWorkload parses a space-separated list of kind[:step] words, e.g.
// "inc:3 dec blink". Quoting follows shell rules.
func ParseWorkload(s string) ([]Workload, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}
	seen := make(map[string]int)
	out := make([]Workload, 0, len(words))
	for _, word := range words {
		name, arg, hasArg := strings.Cut(word, ":")
		kind, ok := kindNames[name]
		if !ok {
			return nil, fmt.Errorf("workload: unknown kind %q", name)
		}
		w := Workload{Kind: kind, Step: 1, Name: name}
		if hasArg {
			if kind != KindInc && kind != KindDec {
				return nil, fmt.Errorf("workload: %q takes no step", name)
			}
			n, err := strconv.ParseInt(arg, 10, 32)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("workload: bad step %q for %s", arg, name)
			}
			w.Step = int32(n)
		}
		if seen[name]++; seen[name] > 1 {
			w.Name = name + strconv.Itoa(seen[name])
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("workload: empty")
	}
	return out, nil
}

func mustParseWorkload(s string) []Workload {
	w, err := ParseWorkload(s)
	if err != nil {
		panic(err)
	}
	return w
}

// blinkPeriod is the number of iterations between LED toggles.
const blinkPeriod = 1024

// Thread bodies are top-level functions that find their state through the
// param index: on TinyGo an entry cannot be a closure.
var (
	cpu     hal.CPU
	led     hal.LED
	counter atomic.Int32
	slots   []slot
)

type slot struct {
	delta int32
	iters atomic.Uint32
}

func (w Workload) entry() hal.Entry {
	switch w.Kind {
	case KindInc, KindDec:
		return countEntry
	case KindBlink:
		return blinkEntry
	default:
		return spinEntry
	}
}

func (w Workload) delta() int32 {
	switch w.Kind {
	case KindInc:
		return w.Step
	case KindDec:
		return -w.Step
	}
	return 0
}

func countEntry(param hal.Address) {
	s := &slots[param]
	for {
		counter.Add(s.delta)
		s.iters.Add(1)
		cpu.Nop()
	}
}

func blinkEntry(param hal.Address) {
	s := &slots[param]
	on := false
	for {
		if s.iters.Add(1)%blinkPeriod == 0 {
			on = !on
			if on {
				led.High()
			} else {
				led.Low()
			}
		}
		cpu.Nop()
	}
}

func spinEntry(param hal.Address) {
	s := &slots[param]
	for {
		s.iters.Add(1)
		cpu.Nop()
	}
}

// Counter returns the shared counter and the value it should hold given the
// iterations each counting thread has completed. They only agree once the
// core has stopped.
func Counter() (got, want int32) {
	for i := range slots {
		want += slots[i].delta * int32(slots[i].iters.Load())
	}
	return counter.Load(), want
}
