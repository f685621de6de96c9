package platform

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/renderer"
)

type EventType uint8

const (
	// The user or the OS asked the window to close.
	EventCloseRequested EventType = iota + 1
	// The framebuffer changed size. Width and Height carry the new size.
	EventResized
	// The event batch is drained and a frame may be drawn.
	EventRedrawReady
)

func (t EventType) String() string {
	switch t {
	case EventCloseRequested:
		return "CloseRequested"
	case EventResized:
		return "Resized"
	case EventRedrawReady:
		return "RedrawReady"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

type Event struct {
	Type   EventType
	Width  uint32
	Height uint32
}

func CloseRequested() Event { return Event{Type: EventCloseRequested} }

func Resized(width, height uint32) Event {
	return Event{Type: EventResized, Width: width, Height: height}
}

func RedrawReady() Event { return Event{Type: EventRedrawReady} }

type WindowConfig struct {
	Title  string
	X, Y   uint32
	Width  uint32
	Height uint32
}

// Window is a platform window and the source of its events.
type Window interface {
	renderer.Window

	Startup(config WindowConfig) error
	// PollEvents pumps the platform queue and returns the pending events in
	// the order they happened. A batch ends with RedrawReady unless the window
	// is closing.
	PollEvents() []Event
	// RequestClose queues CloseRequested. Safe to call from any goroutine.
	RequestClose()
	Shutdown() error
}
