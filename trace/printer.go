//go:build !tinygo

package trace

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var palette = []color.Attribute{
	color.FgCyan,
	color.FgGreen,
	color.FgYellow,
	color.FgMagenta,
	color.FgBlue,
	color.FgRed,
}

// Printer writes events as one line each, coloured by the incoming thread.
type Printer struct {
	w      io.Writer
	names  map[int]string
	colors map[int]*color.Color
	plain  bool
}

// NewPrinter returns a printer writing to w. names maps thread IDs to the
// names printed; unknown IDs print as numbers.
func NewPrinter(w io.Writer, names map[int]string) *Printer {
	return &Printer{w: w, names: names, colors: make(map[int]*color.Color)}
}

// Plain turns colouring off, for output that is not a terminal.
func (p *Printer) Plain() *Printer {
	p.plain = true
	return p
}

func (p *Printer) name(id int) string {
	if id < 0 {
		return "-"
	}
	if n, ok := p.names[id]; ok {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

func (p *Printer) color(id int) *color.Color {
	c, ok := p.colors[id]
	if !ok {
		c = color.New(palette[(id%len(palette)+len(palette))%len(palette)])
		if p.plain {
			c.DisableColor()
		}
		p.colors[id] = c
	}
	return c
}

// Print writes ev.
func (p *Printer) Print(ev Event) error {
	_, err := p.color(int(ev.To)).Fprintf(p.w, "tick %6d  %-8s -> %s\n", ev.Tick, p.name(int(ev.From)), p.name(int(ev.To)))
	return err
}

// PrintSummary writes one line per thread and the fairness over the non-idle
// threads.
func (p *Printer) PrintSummary(s *Summary, idle int) error {
	for _, id := range s.IDs() {
		if _, err := fmt.Fprintf(p.w, "  %-8s %6d slices\n", p.name(id), s.Slices[id]); err != nil {
			return err
		}
	}
	mean, std := s.Fairness(idle)
	_, err := fmt.Fprintf(p.w, "  events %d dropped %d mean %.2f stddev %.2f spread %d\n", s.Events, s.Dropped, mean, std, s.Spread(idle))
	return err
}
