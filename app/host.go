//go:build !tinygo

package app

import (
	"fmt"
	"io"

	"ember/hal"
	"ember/kernel"
	"ember/trace"
)

// App is the host side of a simulated run: Main runs on the core, Step is
// polled from the host to drain the trace.
type App struct {
	s       *system
	printer *trace.Printer
	sum     trace.Summary
	evs     []trace.Event
	line    []byte
	painted bool
}

// New prepares a system on h. Nothing runs until Main is called on the core.
func New(h hal.HAL, cfg Config) *App {
	a := &App{s: newSystem(h, cfg)}
	if cfg.Trace != nil {
		a.printer = trace.NewPrinter(cfg.Trace, a.s.names)
	}
	return a
}

// Main boots the kernel. Boot errors are fatal.
func (a *App) Main() {
	if err := a.s.boot(); err != nil {
		kernel.Fatal(err)
	}
}

// Step drains the trace into the summary, the trace writer and the console.
func (a *App) Step() error {
	a.evs = a.s.rec.Drain(a.evs[:0])
	for _, ev := range a.evs {
		a.sum.Add(ev)
		if a.printer != nil {
			if err := a.printer.Print(ev); err != nil {
				return err
			}
		}
		if a.s.con != nil {
			a.line = append(a.s.appendEvent(a.line[:0], ev), '\r', '\n')
			a.s.con.Write(a.line)
		}
	}
	a.sum.Dropped = a.s.rec.Dropped()

	if info := a.s.fatal.Load(); info != nil {
		if !a.painted {
			a.painted = true
			a.s.paintFatal(info)
		}
		return nil
	}
	if a.s.con != nil {
		return a.s.con.Flush()
	}
	return nil
}

// Summary returns the slices counted so far.
func (a *App) Summary() *trace.Summary { return &a.sum }

// Report writes the per-thread slice counts and the counter check. Call it
// once the core has halted.
func (a *App) Report(w io.Writer) error {
	if err := a.Step(); err != nil {
		return err
	}
	p := trace.NewPrinter(w, a.s.names).Plain()
	if err := p.PrintSummary(&a.sum, 0); err != nil {
		return err
	}
	got, want := Counter()
	_, err := fmt.Fprintf(w, "  counter %d, expected %d\n", got, want)
	return err
}
