package app

import (
	"errors"
	"strings"
	"testing"

	"ember/console"
	"ember/hal"
	"ember/kernel"
)

type lineLog struct {
	lines []string
}

func (l *lineLog) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *lineLog) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

var errPresent = errors.New("present failed")

// brokenFB is a framebuffer whose Present always fails.
type brokenFB struct {
	buf []byte
}

func (f *brokenFB) Width() int              { return 64 }
func (f *brokenFB) Height() int             { return 32 }
func (f *brokenFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *brokenFB) StrideBytes() int        { return 64 * 2 }
func (f *brokenFB) Buffer() []byte          { return f.buf }
func (f *brokenFB) ClearRGB(r, g, b uint8)  {}
func (f *brokenFB) Present() error          { return errPresent }

func TestDefaultWorkloadParses(t *testing.T) {
	w := mustParseWorkload(DefaultWorkload)
	if len(w) != 3 {
		t.Fatalf("mustParseWorkload(%q) = %v, want 3 threads", DefaultWorkload, w)
	}
}

func TestMustParseWorkloadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("mustParseWorkload(%q) did not panic", "nap")
		}
	}()
	mustParseWorkload("nap")
}

func TestPaintFatalLogsPresentError(t *testing.T) {
	log := &lineLog{}
	s := &system{log: log, con: console.New(&brokenFB{buf: make([]byte, 64*32*2)})}

	s.paintFatal(&kernel.FatalInfo{Err: errors.New("kernel: stack: heap exhausted")})

	for _, line := range log.lines {
		if strings.Contains(line, errPresent.Error()) {
			return
		}
	}
	t.Fatalf("log = %q, want a line with %q", log.lines, errPresent.Error())
}
