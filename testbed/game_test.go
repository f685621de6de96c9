package testbed

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestGameStrategies(t *testing.T) {
	cfg := engine.DefaultApplicationConfig()

	tg, err := NewTestGame(cfg)
	require.NoError(t, err)
	assert.IsType(t, &renderer.ClearRenderer{}, tg.Renderer)

	cfg.Renderer.Strategy = "pulse"
	tg, err = NewTestGame(cfg)
	require.NoError(t, err)
	assert.IsType(t, &PulseRenderer{}, tg.Renderer)

	cfg.Renderer.Strategy = "wireframe"
	_, err = NewTestGame(cfg)
	assert.Error(t, err)
}

func TestTestGameOnResize(t *testing.T) {
	tg, err := NewTestGame(engine.DefaultApplicationConfig())
	require.NoError(t, err)
	require.NoError(t, tg.FnOnResize(800, 600))

	state := tg.State.(*gameState)
	assert.Equal(t, uint32(800), state.width)
	assert.Equal(t, uint32(600), state.height)
}

func TestPulseRendererColor(t *testing.T) {
	p := NewPulseRenderer(mgl32.Vec4{1, 0.5, 0, 0.25}, 1)

	// sin(0) gives half intensity.
	assert.True(t, p.Color(0).ApproxEqual(mgl32.Vec4{0.5, 0.25, 0, 0.25}))
	// A quarter period later the color peaks.
	assert.True(t, p.Color(0.25).ApproxEqualThreshold(mgl32.Vec4{1, 0.5, 0, 0.25}, 1e-5))
	// Half a period after the peak it is black, alpha untouched.
	assert.True(t, p.Color(0.5).ApproxEqualThreshold(mgl32.Vec4{0, 0, 0, 0.25}, 1e-5))

	p.SetClearColor(mgl32.Vec4{0, 0, 1, 1})
	c := p.Color(0.25)
	assert.InDelta(t, 0.5, c.Z(), 1e-5)
	assert.Equal(t, float32(1), c.W())
}
