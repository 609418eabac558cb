//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is how often the host polls the app (trace drain, console).
	Hz int
	// Ticks stops the machine after N SysTicks (0 = run until cancelled).
	Ticks uint64
	// Reload is the number of simulated instructions per SysTick.
	Reload uint64
	// Pace slows every SysTick down by this much wall-clock time.
	Pace time.Duration
	// RAM is the simulated RAM size in bytes.
	RAM uint32
	// Log receives logger output (default stdout).
	Log io.Writer
}

func (c HeadlessConfig) machineConfig() MachineConfig {
	return MachineConfig{
		RAMSize:  c.RAM,
		Reload:   c.Reload,
		MaxTicks: c.Ticks,
		Pace:     c.Pace,
	}
}

// RunHeadless boots the app on a simulated core without opening a window.
//
// newApp returns the code that runs on the core (it never returns while the
// core is live) and a step function polled from the host.
func RunHeadless(ctx context.Context, newApp func(HAL) (main func(), step func() error), cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHost(cfg.machineConfig(), cfg.Log)
	main, step := newApp(h)
	if step == nil {
		step = func() error { return nil }
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.m.Boot(main)
	})
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-h.m.Done():
				return step()
			case <-gctx.Done():
				select {
				case <-h.m.Done():
					// The core halted on its own; let the app see the end.
					return step()
				default:
				}
				h.m.Halt()
				return gctx.Err()
			case <-t.C:
				if err := step(); err != nil {
					h.m.Halt()
					return err
				}
			}
		}
	})
	return g.Wait()
}
