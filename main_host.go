//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"ember/app"
	"ember/hal"

	"github.com/mattn/go-colorable"
)

func main() {
	var (
		config   = flag.String("config", "", "YAML run file; flags given explicitly override it.")
		headless = flag.Bool("headless", false, "Run without a window.")
		hz       = flag.Int("hz", 60, "Host poll rate (trace drain, console).")
		ticks    = flag.Uint64("ticks", 0, "Halt the core after N ticks (0 = run until interrupted).")
		reload   = flag.Uint64("reload", 100, "Simulated instructions per tick.")
		pace     = flag.Duration("pace", 0, "Wall-clock delay per tick, to watch the rotation.")
		ram      = flag.String("ram", "16KB", "Simulated RAM size.")
		heapSize = flag.String("heap", "0B", "Heap size (0 = all RAM below the main stack).")
		stack    = flag.String("stack", "256B", "Stack size of each workload thread.")
		workload = flag.String("workload", app.DefaultWorkload, "Threads to spawn: kind[:step] ... (inc, dec, blink, spin).")
		trace    = flag.Bool("trace", false, "Print every scheduling decision.")
	)
	flag.Parse()

	var (
		cfg  app.Config
		hcfg hal.HeadlessConfig
	)
	if *config != "" {
		f, err := app.ReadFile(*config)
		if err != nil {
			fail(err)
		}
		if err := f.Apply(&cfg, &hcfg); err != nil {
			fail(err)
		}
	}

	// Unset fields fall back to the same defaults the flags advertise.
	var err error
	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "headless":
			hcfg.Enabled = *headless
		case "hz":
			hcfg.Hz = *hz
		case "ticks":
			hcfg.Ticks = *ticks
		case "reload":
			hcfg.Reload = *reload
		case "pace":
			hcfg.Pace = *pace
		case "ram":
			hcfg.RAM, err = app.ParseSize(*ram)
		case "heap":
			cfg.HeapSize, err = app.ParseSize(*heapSize)
		case "stack":
			cfg.StackSize, err = app.ParseSize(*stack)
		case "workload":
			cfg.Workload, err = app.ParseWorkload(*workload)
		}
		if err != nil {
			err = fmt.Errorf("-%s: %w", f.Name, err)
		}
	})
	if err != nil {
		fail(err)
	}
	if *trace {
		cfg.Trace = colorable.NewColorableStdout()
	}

	var a *app.App
	newApp := func(h hal.HAL) (func(), func() error) {
		a = app.New(h, cfg)
		return a.Main, a.Step
	}

	start := time.Now()
	if hcfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, hcfg)
	} else {
		err = hal.RunWindow(newApp, hcfg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fail(err)
	}
	if a != nil {
		fmt.Printf("halted after %v\n", time.Since(start).Round(time.Millisecond))
		if err := a.Report(os.Stdout); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
