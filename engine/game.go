package engine

import "github.com/spaghettifunk/ember/engine/renderer"

// Game is what an application hands to the engine. Every field but
// ApplicationConfig is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	// Renderer records each frame. A ClearRenderer using the configured clear
	// color is installed when nil.
	Renderer     renderer.FrameRenderer
	State        interface{}
	FnInitialize Initialize
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Initialize runs once the renderer is ready, before the first frame.
type Initialize func() error

// OnResize runs after the swapchain was rebuilt for a new size.
type OnResize func(width uint32, height uint32) error

type Shutdown func() error
