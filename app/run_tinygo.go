//go:build tinygo

package app

import (
	"ember/hal"
	"ember/kernel"
)

// Run boots the default workload and never returns.
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

// RunWithConfig boots cfg and never returns. The trace is logged by a thread
// of its own.
func RunWithConfig(h hal.HAL, cfg Config) {
	s := newSystem(h, cfg)
	s.drain = true
	s.paint = true
	if err := s.boot(); err != nil {
		kernel.Fatal(err)
	}
}
