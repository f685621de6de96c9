package renderer

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameContext is everything a FrameRenderer may touch while recording one frame.
type FrameContext struct {
	Device      Device
	Queue       Queue
	Allocator   CommandBufferAllocator
	Framebuffer Framebuffer
	Viewport    Viewport
	ImageIndex  uint32
	FrameNumber uint64
	DeltaTime   float64
	// Previous completes when the last frame's work is done.
	Previous Future
	// Acquired completes when the target image is ready to be written.
	Acquired Future
}

// After joins the previous frame and the image acquisition. Submissions of a
// frame must wait on it.
func (fc *FrameContext) After() Future {
	return fc.Previous.Join(fc.Acquired)
}

// FrameRenderer records and submits the GPU work of a frame and returns the
// future of that work.
type FrameRenderer interface {
	RenderFrame(ctx *FrameContext) (Future, error)
}

// ClearRenderer clears the target to a single color.
type ClearRenderer struct {
	mu    sync.RWMutex
	color mgl32.Vec4
}

func NewClearRenderer(color mgl32.Vec4) *ClearRenderer {
	return &ClearRenderer{color: color}
}

func (r *ClearRenderer) SetClearColor(color mgl32.Vec4) {
	r.mu.Lock()
	r.color = color
	r.mu.Unlock()
}

func (r *ClearRenderer) ClearColor() mgl32.Vec4 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.color
}

func (r *ClearRenderer) RenderFrame(ctx *FrameContext) (Future, error) {
	return ClearFrame(ctx, r.ClearColor())
}

// ClearFrame records a render pass that only clears the target and submits it
// after the previous frame and the acquisition.
func ClearFrame(ctx *FrameContext, color mgl32.Vec4) (Future, error) {
	cb, err := ctx.Allocator.Allocate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate command buffer")
	}
	if err := recordClear(cb, ctx, color); err != nil {
		cb.Free()
		return nil, err
	}
	return ctx.Queue.Submit(ctx.After(), cb)
}

func recordClear(cb CommandBuffer, ctx *FrameContext, color mgl32.Vec4) error {
	if err := cb.BeginRenderPass(ctx.Framebuffer, color); err != nil {
		return err
	}
	cb.SetViewport(ctx.Viewport)
	if err := cb.EndRenderPass(); err != nil {
		return err
	}
	return cb.End()
}
