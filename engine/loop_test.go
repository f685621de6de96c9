package engine

import (
	"testing"

	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  loopState
		event platform.Event
		want  loopState
	}{
		{"redraw begins a frame", loopState{state: FrameIdle}, platform.RedrawReady(), loopState{state: FrameBegin}},
		{"redraw after present", loopState{state: FramePresented}, platform.RedrawReady(), loopState{state: FrameBegin}},
		{"redraw keeps the resize flag", loopState{state: FrameResizePending, resizePending: true}, platform.RedrawReady(), loopState{state: FrameBegin, resizePending: true}},
		{"resize only sets the flag", loopState{state: FramePresented}, platform.Resized(800, 600), loopState{state: FramePresented, resizePending: true}},
		{"close from idle", loopState{state: FrameIdle}, platform.CloseRequested(), loopState{state: FrameShuttingDown}},
		{"close from resize pending", loopState{state: FrameResizePending, resizePending: true}, platform.CloseRequested(), loopState{state: FrameShuttingDown, resizePending: true}},
		{"shutting down ignores redraw", loopState{state: FrameShuttingDown}, platform.RedrawReady(), loopState{state: FrameShuttingDown}},
		{"shutting down ignores resize", loopState{state: FrameShuttingDown}, platform.Resized(1, 1), loopState{state: FrameShuttingDown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transition(tt.from, tt.event))
		})
	}
}

func TestTransitionIsAbsorbingAfterClose(t *testing.T) {
	s := loopState{state: FrameIdle}
	events := []platform.Event{
		platform.RedrawReady(),
		platform.CloseRequested(),
		platform.Resized(10, 10),
		platform.RedrawReady(),
		platform.CloseRequested(),
	}
	for _, e := range events {
		s = transition(s, e)
	}
	assert.Equal(t, FrameShuttingDown, s.state)
	assert.False(t, s.resizePending)
}

func TestFrameStateString(t *testing.T) {
	assert.Equal(t, "ResizePending", FrameResizePending.String())
	assert.Equal(t, "FrameState(42)", FrameState(42).String())
}
