package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// drawFrame runs one frame from FrameBegin. Only fatal conditions return an
// error; stale swapchains and failed presentations leave the loop running.
func (e *Engine) drawFrame(delta float64) error {
	if e.loop.resizePending {
		rebuilt, err := e.recreateSwapchain()
		if err != nil {
			return err
		}
		if !rebuilt {
			e.skipFrame(nil)
			return nil
		}
		e.loop.resizePending = false
	}

	e.previous.CleanupFinished()

	acquired, err := e.swapchain.Swapchain().AcquireNextImage(e.acquireTimeout)
	switch {
	case errors.Is(err, core.ErrOutOfDate):
		e.loop.resizePending = true
		e.skipFrame(err)
		return nil
	case errors.Is(err, core.ErrTimeout):
		core.LogWarn("No swapchain image available after %s, skipping frame.", e.acquireTimeout)
		e.loop.state = FrameIdle
		e.fireFrame(core.EventCodeFrameSkipped, err)
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to acquire next image")
	}
	if acquired.Suboptimal {
		e.loop.resizePending = true
		e.skipFrame(nil)
		return nil
	}

	e.loop.state = FrameRendering
	ctx := &renderer.FrameContext{
		Device:      e.device,
		Queue:       e.queue,
		Allocator:   e.allocator,
		Framebuffer: e.framebuffers.At(acquired.Index),
		Viewport:    e.viewport,
		ImageIndex:  acquired.Index,
		FrameNumber: e.frameNumber,
		DeltaTime:   delta,
		Previous:    e.previous,
		Acquired:    acquired.Future,
	}
	rendered, err := e.frameRenderer.RenderFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "render failed, shutting down")
	}
	e.loop.state = FrameSubmitted

	presented, err := e.queue.Present(rendered, e.swapchain.Swapchain(), acquired.Index)
	switch {
	case errors.Is(err, core.ErrOutOfDate):
		e.loop.resizePending = true
		e.loop.state = FrameResizePending
		e.previous = e.device.Now()
	case err != nil:
		core.LogError("Failed to present frame %d: %s", e.frameNumber, err)
		e.loop.state = FrameIdle
		e.previous = e.device.Now()
		e.fireFrame(core.EventCodePresentDegraded, err)
	default:
		e.loop.state = FramePresented
		e.previous = presented
	}

	e.frameNumber++
	if e.metrics.Update(delta) {
		fps, frameTime := e.metrics.Frame()
		core.LogDebug("FPS: %.0f, frame time: %.2fms", fps, frameTime)
	}
	return nil
}

// skipFrame ends the tick without rendering. The swapchain gets rebuilt on
// the next redraw.
func (e *Engine) skipFrame(cause error) {
	e.loop.state = FrameResizePending
	e.fireFrame(core.EventCodeFrameSkipped, cause)
}

func (e *Engine) fireFrame(code core.SystemEventCode, cause error) {
	e.events.Fire(core.EventContext{
		Type:   code,
		Sender: e,
		Data:   &core.FrameEvent{FrameNumber: e.frameNumber, Err: cause},
	})
}

// recreateSwapchain rebuilds the swapchain for the current window size along
// with the framebuffers and the viewport. It reports false when the surface
// cannot take that size yet; nothing changes in that case.
func (e *Engine) recreateSwapchain() (bool, error) {
	if err := e.device.WaitIdle(); err != nil {
		return false, errors.Wrap(err, "failed to wait for device idle")
	}
	// Everything the previous token guarded is done now.
	e.previous = e.device.Now()

	rebuilt, err := e.swapchain.Recreate()
	if err != nil || !rebuilt {
		return false, err
	}

	framebuffers, err := renderer.BuildFramebuffers(e.device, e.renderPass, e.swapchain, &e.viewport)
	if err != nil {
		return false, errors.Wrap(err, "failed to rebuild framebuffers")
	}
	e.framebuffers.Destroy()
	e.framebuffers = framebuffers

	extent := e.swapchain.Extent()
	e.events.Fire(core.EventContext{
		Type:   core.EventCodeSwapchainRecreated,
		Sender: e,
		Data: &core.SwapchainEvent{
			Generation:  e.swapchain.Generation(),
			Width:       extent.Width,
			Height:      extent.Height,
			ImageCount:  len(e.swapchain.Images()),
			Description: e.swapchain.ID().String(),
		},
	})
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(extent.Width, extent.Height); err != nil {
			return false, errors.Wrap(err, "game resize failed")
		}
	}
	return true, nil
}
