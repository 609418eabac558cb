//go:build !tinygo

package app

import (
	"fmt"
	"math"
	"os"

	"ember/hal"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

// File is a run described in YAML:
//
//	workload: inc:2 dec:1 blink
//	stack: 256B
//	heap: 8KB
//	ram: 16KB
//	ticks: 500
//	reload: 200
//
// Sizes take bytesize units. Unset fields keep their defaults.
type File struct {
	Workload string `yaml:"workload"`
	Stack    string `yaml:"stack"`
	Heap     string `yaml:"heap"`
	RAM      string `yaml:"ram"`
	Ticks    uint64 `yaml:"ticks"`
	Reload   uint64 `yaml:"reload"`
}

// ReadFile loads a run file. Unknown keys are an error.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Apply copies the fields set in f into cfg and hcfg.
func (f *File) Apply(cfg *Config, hcfg *hal.HeadlessConfig) error {
	if f.Workload != "" {
		w, err := ParseWorkload(f.Workload)
		if err != nil {
			return err
		}
		cfg.Workload = w
	}
	for _, sz := range []struct {
		name string
		s    string
		dst  *uint32
	}{
		{"stack", f.Stack, &cfg.StackSize},
		{"heap", f.Heap, &cfg.HeapSize},
		{"ram", f.RAM, &hcfg.RAM},
	} {
		if sz.s == "" {
			continue
		}
		n, err := ParseSize(sz.s)
		if err != nil {
			return fmt.Errorf("%s: %w", sz.name, err)
		}
		*sz.dst = n
	}
	if f.Ticks != 0 {
		hcfg.Ticks = f.Ticks
	}
	if f.Reload != 0 {
		hcfg.Reload = f.Reload
	}
	return nil
}

// ParseSize parses a byte size such as "256B" or "8KB" into a 32-bit count.
func ParseSize(s string) (uint32, error) {
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, err
	}
	if b < 0 || float64(b) > math.MaxUint32 || float64(b) != math.Trunc(float64(b)) {
		return 0, fmt.Errorf("size %s out of range", s)
	}
	return uint32(b), nil
}
