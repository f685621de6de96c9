package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventConstructors(t *testing.T) {
	assert.Equal(t, Event{Type: EventCloseRequested}, CloseRequested())
	assert.Equal(t, Event{Type: EventResized, Width: 800, Height: 600}, Resized(800, 600))
	assert.Equal(t, Event{Type: EventRedrawReady}, RedrawReady())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "CloseRequested", EventCloseRequested.String())
	assert.Equal(t, "Resized", EventResized.String())
	assert.Equal(t, "RedrawReady", EventRedrawReady.String())
	assert.Equal(t, "EventType(9)", EventType(9).String())
}
