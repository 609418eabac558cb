// Package console is a scrolling text terminal on a framebuffer, used to show
// the scheduler trace and the fatal screen.
package console

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const (
	fontHeight = 10
	fontOffset = 7
)

var (
	font = &proggy.TinySZ8pt7b

	fatalBG = color.RGBA{R: 0x80, A: 0xFF}
	fatalFG = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Console writes text to a framebuffer. It is safe for concurrent use.
type Console struct {
	mu    sync.Mutex
	d     *fbDisplay
	t     *tinyterm.Terminal
	dirty bool
}

// New returns a cleared console on fb, or nil if fb is nil.
func New(fb hal.Framebuffer) *Console {
	if fb == nil {
		return nil
	}
	c := &Console{d: &fbDisplay{fb: fb}}
	c.reset()
	return c
}

func (c *Console) reset() {
	c.d.fb.ClearRGB(0, 0, 0)
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:              font,
		FontHeight:        fontHeight,
		FontOffset:        fontOffset,
		UseSoftwareScroll: true,
	})
	c.dirty = true
}

// Reset clears the screen.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
	return c.t.Write(p)
}

// Linef writes a formatted line.
func (c *Console) Linef(format string, args ...any) {
	s := strings.TrimRight(fmt.Sprintf(format, args...), "\r\n")
	c.Write([]byte(s + "\r\n"))
}

// Flush presents the framebuffer if anything was written since the last
// flush.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	c.dirty = false
	return c.d.Display()
}

// Fatal replaces the screen with a red panel showing title and lines, and
// presents it. Long lines wrap; what does not fit is cut.
func (c *Console) Fatal(title string, lines ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, h := c.d.Size()
	_ = c.d.FillRectangle(0, 0, w, h, fatalBG)

	_, outbox := tinyfont.LineWidth(font, "0")
	cols := 1
	if outbox > 0 && int(w) > 8 {
		cols = max(1, (int(w)-8)/int(outbox))
	}

	y := int16(fontHeight)
	draw := func(s string) bool {
		if y > h {
			return false
		}
		tinyfont.WriteLine(c.d, font, 4, y, s, fatalFG)
		y += fontHeight
		return true
	}
	draw(title)
	for _, line := range lines {
		for {
			chunk, rest := takeRunes(line, cols)
			if !draw(chunk) {
				break
			}
			line = strings.TrimLeft(rest, " ")
			if line == "" {
				break
			}
		}
	}
	c.dirty = false
	return c.d.Display()
}

func takeRunes(s string, n int) (head, tail string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
