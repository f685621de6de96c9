package rendertest

import (
	"sync"
	"unsafe"

	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// Window replays scripted event batches. Once the script runs out it reports
// CloseRequested so loops driven by it always terminate.
type Window struct {
	Extensions []string
	StartupErr error
	Config     platform.WindowConfig
	Started    bool
	ShutDown   bool

	mu      sync.Mutex
	size    renderer.Extent
	batches [][]platform.Event
	closing bool
	polls   int
}

func NewWindow(width, height uint32) *Window {
	return &Window{
		Extensions: []string{"VK_KHR_surface"},
		size:       renderer.Extent{Width: width, Height: height},
	}
}

// Queue appends one poll batch made of events followed by RedrawReady.
func (w *Window) Queue(events ...platform.Event) {
	batch := append(append([]platform.Event{}, events...), platform.RedrawReady())
	w.mu.Lock()
	w.batches = append(w.batches, batch)
	w.mu.Unlock()
}

// QueueFrames appends n batches that only carry RedrawReady.
func (w *Window) QueueFrames(n int) {
	for i := 0; i < n; i++ {
		w.Queue()
	}
}

// SetSize changes the framebuffer size without emitting an event.
func (w *Window) SetSize(width, height uint32) {
	w.mu.Lock()
	w.size = renderer.Extent{Width: width, Height: height}
	w.mu.Unlock()
}

func (w *Window) Polls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polls
}

func (w *Window) Startup(config platform.WindowConfig) error {
	if w.StartupErr != nil {
		return w.StartupErr
	}
	w.Config = config
	w.Started = true
	return nil
}

// PollEvents pops the next batch. Resized events update the framebuffer size
// as they are delivered.
func (w *Window) PollEvents() []platform.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++

	if w.closing || len(w.batches) == 0 {
		return []platform.Event{platform.CloseRequested()}
	}
	batch := w.batches[0]
	w.batches = w.batches[1:]
	for _, e := range batch {
		if e.Type == platform.EventResized {
			w.size = renderer.Extent{Width: e.Width, Height: e.Height}
		}
	}
	return batch
}

func (w *Window) RequestClose() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
}

func (w *Window) FramebufferSize() renderer.Extent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

func (w *Window) RequiredInstanceExtensions() []string { return w.Extensions }

func (w *Window) CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error) {
	return 0, nil
}

func (w *Window) Shutdown() error {
	w.ShutDown = true
	return nil
}
