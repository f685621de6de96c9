package renderer_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/renderer"
	"github.com/spaghettifunk/ember/engine/renderer/rendertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrameContext(t *testing.T) (*renderer.FrameContext, *rendertest.Device) {
	t.Helper()
	physical := rendertest.NewPhysicalDevice("gpu", renderer.DeviceTypeDiscreteGPU)
	device := newDevice(t, physical)
	allocator, err := device.CreateCommandBufferAllocator(0)
	require.NoError(t, err)

	previous := device.Now()
	acquired := device.Now()
	return &renderer.FrameContext{
		Device:      device,
		Queue:       device.Queue(),
		Allocator:   allocator,
		Framebuffer: &rendertest.Framebuffer{Ext: renderer.Extent{Width: 4, Height: 4}},
		Viewport:    renderer.NewViewport(),
		Previous:    previous,
		Acquired:    acquired,
	}, device
}

func TestClearRenderer(t *testing.T) {
	ctx, device := newFrameContext(t)
	color := mgl32.Vec4{0.1, 0.2, 0.3, 1}
	r := renderer.NewClearRenderer(color)

	future, err := r.RenderFrame(ctx)
	require.NoError(t, err)
	require.Len(t, device.Submitted, 1)

	cb := device.Submitted[0]
	assert.Equal(t, []string{"BeginRenderPass", "SetViewport", "EndRenderPass", "End"}, cb.Commands)
	assert.Equal(t, color, cb.ClearColor)
	assert.Same(t, ctx.Framebuffer, cb.Framebuffer)

	f := future.(*rendertest.Future)
	assert.True(t, f.DependsOn(ctx.Previous.(*rendertest.Future)))
	assert.True(t, f.DependsOn(ctx.Acquired.(*rendertest.Future)))
}

func TestClearRendererSetClearColor(t *testing.T) {
	r := renderer.NewClearRenderer(mgl32.Vec4{})
	want := mgl32.Vec4{1, 0, 0, 1}
	r.SetClearColor(want)
	assert.Equal(t, want, r.ClearColor())

	ctx, device := newFrameContext(t)
	_, err := r.RenderFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, device.Submitted[0].ClearColor)
}

func TestClearFrameAllocationError(t *testing.T) {
	ctx, device := newFrameContext(t)
	device.AllocateErr = assert.AnError

	_, err := renderer.ClearFrame(ctx, mgl32.Vec4{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, device.Submitted)
}

func TestVertexLayout(t *testing.T) {
	layout := renderer.Vertex{}.Layout()
	assert.Equal(t, uint32(0), layout.Binding)
	assert.Equal(t, uint32(12), layout.Stride)
	require.Len(t, layout.Attributes, 1)
	assert.Equal(t, renderer.VertexAttribute{Location: 0, Format: renderer.VertexFormatVec3, Offset: 0}, layout.Attributes[0])
}

func TestClearFrameRecordingErrorFreesCommandBuffer(t *testing.T) {
	ctx, device := newFrameContext(t)
	device.RecordErr = assert.AnError

	_, err := renderer.ClearFrame(ctx, mgl32.Vec4{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, device.Submitted)

	allocator := ctx.Allocator.(*rendertest.CommandBufferAllocator)
	require.Len(t, allocator.Allocated, 1)
	assert.True(t, allocator.Allocated[0].Freed)
}
