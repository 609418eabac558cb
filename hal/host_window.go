//go:build !tinygo && cgo

package hal

import (
	"ember/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow boots the app on a simulated core and shows the framebuffer in a
// desktop window. It blocks until the window closes or the core halts.
func RunWindow(newApp func(HAL) (main func(), step func() error), cfg HeadlessConfig) error {
	h := newHost(cfg.machineConfig(), cfg.Log)
	main, step := newApp(h)

	bootErr := make(chan error, 1)
	go func() { bootErr <- h.m.Boot(main) }()

	g := &hostGame{h: h, step: step, bootErr: bootErr}
	ebiten.SetWindowTitle("ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)

	// Closing the window stops the core; wait until it has.
	h.m.Halt()
	if !g.halted {
		<-bootErr
	}
	return err
}

type hostGame struct {
	h       *hostHAL
	step    func() error
	bootErr <-chan error
	halted  bool
	fbImg   *ebiten.Image
	pix     []byte
	frame   uint64
}

func (g *hostGame) Update() error {
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	select {
	case err := <-g.bootErr:
		g.halted = true
		if err != nil {
			return err
		}
		return ebiten.Termination
	default:
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil {
		g.pix = make([]byte, fb.width*fb.height*4)
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	if frame := fb.snapshotRGBA(g.pix, g.frame); frame != g.frame {
		g.frame = frame
		g.fbImg.WritePixels(g.pix)
	}
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
