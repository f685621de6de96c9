package testbed

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
}

// NewTestGame builds the testbed for the given config. The render strategy
// is picked by cfg.Renderer.Strategy.
func NewTestGame(cfg *engine.ApplicationConfig) (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: cfg,
			State:             &gameState{},
		},
	}

	color, err := cfg.Renderer.Color()
	if err != nil {
		return nil, err
	}
	switch cfg.Renderer.Strategy {
	case "", "clear":
		tg.Renderer = renderer.NewClearRenderer(color)
	case "pulse":
		tg.Renderer = NewPulseRenderer(color, 1.0)
	default:
		return nil, errors.Newf("unknown render strategy %q", cfg.Renderer.Strategy)
	}

	tg.FnInitialize = tg.Initialize
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("TestGame resized to %dx%d.", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}

// PulseRenderer clears to its base color scaled by a sine wave over time.
type PulseRenderer struct {
	mu        sync.Mutex
	base      mgl32.Vec4
	frequency float64
	elapsed   float64
}

func NewPulseRenderer(base mgl32.Vec4, frequency float64) *PulseRenderer {
	return &PulseRenderer{base: base, frequency: frequency}
}

func (p *PulseRenderer) SetClearColor(color mgl32.Vec4) {
	p.mu.Lock()
	p.base = color
	p.mu.Unlock()
}

// Color advances the animation by delta seconds and returns the clear color.
// Alpha is never scaled.
func (p *PulseRenderer) Color(delta float64) mgl32.Vec4 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.elapsed += delta
	intensity := float32(0.5 + 0.5*math.Sin(2*math.Pi*p.frequency*p.elapsed))
	rgb := p.base.Vec3().Mul(intensity)
	return rgb.Vec4(p.base.W())
}

func (p *PulseRenderer) RenderFrame(ctx *renderer.FrameContext) (renderer.Future, error) {
	return renderer.ClearFrame(ctx, p.Color(ctx.DeltaTime))
}
