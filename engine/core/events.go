package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EventCodeApplicationQuit SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	// Data: *SystemEvent with the new framebuffer size.
	EventCodeResized SystemEventCode = 0x02

	// The swapchain and everything sized after it was rebuilt.
	// Data: *SwapchainEvent.
	EventCodeSwapchainRecreated SystemEventCode = 0x03

	// A redraw tick did not render, the swapchain has to be rebuilt first.
	// Data: *FrameEvent.
	EventCodeFrameSkipped SystemEventCode = 0x04

	// Presentation failed for a reason other than staleness.
	// Data: *FrameEvent.
	EventCodePresentDegraded SystemEventCode = 0x05

	MaxEventCode SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MaxMessageCodes = 16384

type EventContext struct {
	Type   SystemEventCode
	Sender interface{}
	Data   interface{}
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type SwapchainEvent struct {
	Generation  uint64
	Width       uint32
	Height      uint32
	ImageCount  int
	Description string
}

type FrameEvent struct {
	FrameNumber uint64
	Err         error
}

// Should return true if handled.
type FnOnEvent func(context EventContext, listener interface{}) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventSystem dispatches engine notifications to registered listeners.
// Listeners must be comparable values, usually pointers.
type EventSystem struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

// Register listens for events sent with the provided code. A listener can
// only be registered once per code; a duplicate returns false.
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || code >= MaxMessageCodes || onEvent == nil {
		return false
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	for _, e := range es.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code `%d`", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops the listener from receiving the code. Returns false if no
// matching registration exists.
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends the event to the listeners of its code in registration order.
// If a handler returns true the event is considered handled and is not passed
// on to any more listeners.
func (es *EventSystem) Fire(context EventContext) bool {
	es.mu.RLock()
	events := make([]*registeredEvent, len(es.registered[context.Type]))
	copy(events, es.registered[context.Type])
	es.mu.RUnlock()

	for _, e := range events {
		if e.callback(context, e.listener) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (es *EventSystem) Shutdown() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.registered = make(map[SystemEventCode][]*registeredEvent)
}
