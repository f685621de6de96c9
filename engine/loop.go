package engine

import (
	"fmt"

	"github.com/spaghettifunk/ember/engine/platform"
)

type FrameState uint8

const (
	// Nothing drawn yet, or the last frame degraded.
	FrameIdle FrameState = iota
	// A redraw was requested and the frame is being prepared.
	FrameBegin
	// The render callback is recording the frame.
	FrameRendering
	// The frame's work has been handed to the queue.
	FrameSubmitted
	// The image went to the presentation engine.
	FramePresented
	// The swapchain must be rebuilt before the next frame can be drawn.
	FrameResizePending
	// The window is closing. Nothing leaves this state.
	FrameShuttingDown
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameBegin:
		return "FrameBegin"
	case FrameRendering:
		return "Rendering"
	case FrameSubmitted:
		return "Submitted"
	case FramePresented:
		return "Presented"
	case FrameResizePending:
		return "ResizePending"
	case FrameShuttingDown:
		return "ShuttingDown"
	default:
		return fmt.Sprintf("FrameState(%d)", uint8(s))
	}
}

type loopState struct {
	state FrameState
	// Set by a resize, cleared once a swapchain was rebuilt for the new size.
	resizePending bool
}

// transition applies a platform event. Frame work past FrameBegin happens in
// drawFrame.
func transition(s loopState, e platform.Event) loopState {
	if s.state == FrameShuttingDown {
		return s
	}
	switch e.Type {
	case platform.EventCloseRequested:
		s.state = FrameShuttingDown
	case platform.EventResized:
		s.resizePending = true
	case platform.EventRedrawReady:
		s.state = FrameBegin
	}
	return s
}
