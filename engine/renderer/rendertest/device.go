package rendertest

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// AcquireOutcome scripts the result of one AcquireNextImage call.
type AcquireOutcome struct {
	Err        error
	Suboptimal bool
}

// Device records every call made against it. Scripts are consumed in order;
// once empty, calls succeed.
type Device struct {
	Info renderer.DeviceCreateInfo

	SwapchainErr   error
	RecreateErr    error
	RenderPassErr  error
	FramebufferErr error
	AllocatorErr   error
	AllocateErr    error
	RecordErr      error
	SubmitErr      error
	WaitIdleErr    error
	AcquireScript  []AcquireOutcome
	PresentScript  []error

	Swapchains   []*Swapchain
	RenderPasses []*RenderPass
	Framebuffers []*Framebuffer
	Allocators   []*CommandBufferAllocator
	Submitted    []*CommandBuffer
	Presented    []uint32

	Acquires    int
	Presents    int
	Recreations int
	WaitIdles   int
	Destroyed   bool

	physical *PhysicalDevice
	queue    *Queue
	futures  int
	// Futures still running and the ones completing at the next cleanup.
	// Work completes one cleanup after it was created.
	inFlight  []*Future
	finishing []*Future
}

func (d *Device) PhysicalDevice() renderer.PhysicalDevice { return d.physical }

func (d *Device) Queue() *Queue { return d.queue }

func (d *Device) CreateSwapchain(surface renderer.Surface, info renderer.SwapchainCreateInfo) (renderer.Swapchain, []renderer.Image, error) {
	if d.SwapchainErr != nil {
		return nil, nil, d.SwapchainErr
	}
	sc := d.newSwapchain(surface, info)
	return sc, sc.images(), nil
}

func (d *Device) newSwapchain(surface renderer.Surface, info renderer.SwapchainCreateInfo) *Swapchain {
	count := info.MinImageCount + 1
	if limit := d.physical.Caps.MaxImageCount; limit > 0 && count > limit {
		count = limit
	}
	sc := &Swapchain{Info: info, device: d, surface: surface}
	for i := uint32(0); i < count; i++ {
		sc.Images = append(sc.Images, &Image{Ext: info.ImageExtent, Fmt: info.ImageFormat.Format})
	}
	d.Swapchains = append(d.Swapchains, sc)
	return sc
}

// CurrentSwapchain is the last swapchain created, or nil.
func (d *Device) CurrentSwapchain() *Swapchain {
	if len(d.Swapchains) == 0 {
		return nil
	}
	return d.Swapchains[len(d.Swapchains)-1]
}

func (d *Device) CreateRenderPass(info renderer.RenderPassCreateInfo) (renderer.RenderPass, error) {
	if d.RenderPassErr != nil {
		return nil, d.RenderPassErr
	}
	rp := &RenderPass{Fmt: info.ColorFormat}
	d.RenderPasses = append(d.RenderPasses, rp)
	return rp, nil
}

func (d *Device) CreateFramebuffer(pass renderer.RenderPass, image renderer.Image) (renderer.Framebuffer, error) {
	if d.FramebufferErr != nil {
		return nil, d.FramebufferErr
	}
	img, ok := image.(*Image)
	if !ok {
		return nil, errors.Newf("unexpected image type %T", image)
	}
	fb := &Framebuffer{Ext: img.Ext, Image: img}
	d.Framebuffers = append(d.Framebuffers, fb)
	return fb, nil
}

// LiveFramebuffers counts the framebuffers not yet destroyed.
func (d *Device) LiveFramebuffers() int {
	n := 0
	for _, fb := range d.Framebuffers {
		if !fb.Destroyed {
			n++
		}
	}
	return n
}

func (d *Device) CreateCommandBufferAllocator(queueFamilyIndex uint32) (renderer.CommandBufferAllocator, error) {
	if d.AllocatorErr != nil {
		return nil, d.AllocatorErr
	}
	a := &CommandBufferAllocator{device: d, FamilyIndex: queueFamilyIndex}
	d.Allocators = append(d.Allocators, a)
	return a, nil
}

func (d *Device) Now() renderer.Future {
	return d.newFuture(true)
}

func (d *Device) newFuture(ready bool, parents ...*Future) *Future {
	d.futures++
	f := &Future{ID: d.futures, Ready: ready, Parents: parents, device: d}
	if !ready {
		d.inFlight = append(d.inFlight, f)
	}
	return f
}

// cleanup completes the work created before the previous cleanup. Completed
// futures drop their ancestry.
func (d *Device) cleanup() {
	for _, f := range d.finishing {
		f.complete()
	}
	d.finishing, d.inFlight = d.inFlight, nil
}

func (d *Device) WaitIdle() error {
	d.WaitIdles++
	if d.WaitIdleErr != nil {
		return d.WaitIdleErr
	}
	for _, f := range append(d.finishing, d.inFlight...) {
		f.complete()
	}
	d.finishing, d.inFlight = nil, nil
	return nil
}

func (d *Device) Destroy() { d.Destroyed = true }

type Queue struct {
	device *Device
	family uint32
}

func (q *Queue) FamilyIndex() uint32 { return q.family }

func (q *Queue) Submit(after renderer.Future, commands renderer.CommandBuffer) (renderer.Future, error) {
	if q.device.SubmitErr != nil {
		return nil, q.device.SubmitErr
	}
	cb, ok := commands.(*CommandBuffer)
	if !ok {
		return nil, errors.Newf("unexpected command buffer type %T", commands)
	}
	if !cb.ended {
		return nil, errors.New("command buffer submitted before End")
	}
	q.device.Submitted = append(q.device.Submitted, cb)
	return q.device.newFuture(false, asFuture(after)), nil
}

func (q *Queue) Present(after renderer.Future, swapchain renderer.Swapchain, imageIndex uint32) (renderer.Future, error) {
	d := q.device
	d.Presents++
	if len(d.PresentScript) > 0 {
		err := d.PresentScript[0]
		d.PresentScript = d.PresentScript[1:]
		if err != nil {
			return nil, err
		}
	}
	if sc, ok := swapchain.(*Swapchain); ok && sc.Retired {
		return nil, errors.New("present on a retired swapchain")
	}
	d.Presented = append(d.Presented, imageIndex)
	return d.newFuture(false, asFuture(after)), nil
}

type Swapchain struct {
	Info      renderer.SwapchainCreateInfo
	Images    []*Image
	Retired   bool
	Destroyed bool

	device  *Device
	surface renderer.Surface
	next    uint32
}

func (s *Swapchain) images() []renderer.Image {
	out := make([]renderer.Image, len(s.Images))
	for i, img := range s.Images {
		out[i] = img
	}
	return out
}

func (s *Swapchain) CreateInfo() renderer.SwapchainCreateInfo { return s.Info }

func (s *Swapchain) Recreate(info renderer.SwapchainCreateInfo) (renderer.Swapchain, []renderer.Image, error) {
	caps, err := s.device.physical.SurfaceCapabilities(s.surface)
	if err != nil {
		return nil, nil, err
	}
	if !caps.SupportsExtent(info.ImageExtent) {
		return nil, nil, errors.Wrapf(core.ErrImageExtentNotSupported, "extent %s", info.ImageExtent)
	}
	if s.device.RecreateErr != nil {
		return nil, nil, s.device.RecreateErr
	}
	sc := s.device.newSwapchain(s.surface, info)
	s.Retired = true
	s.Destroyed = true
	s.device.Recreations++
	return sc, sc.images(), nil
}

func (s *Swapchain) AcquireNextImage(timeout time.Duration) (renderer.AcquiredImage, error) {
	d := s.device
	d.Acquires++
	if s.Retired || s.Destroyed {
		return renderer.AcquiredImage{}, errors.New("acquire on a retired swapchain")
	}
	var outcome AcquireOutcome
	if len(d.AcquireScript) > 0 {
		outcome = d.AcquireScript[0]
		d.AcquireScript = d.AcquireScript[1:]
	}
	if outcome.Err != nil {
		return renderer.AcquiredImage{}, outcome.Err
	}
	index := s.next
	s.next = (s.next + 1) % uint32(len(s.Images))
	return renderer.AcquiredImage{
		Index:      index,
		Suboptimal: outcome.Suboptimal,
		Future:     d.newFuture(true),
	}, nil
}

func (s *Swapchain) Destroy() { s.Destroyed = true }

type Image struct {
	Ext renderer.Extent
	Fmt renderer.Format
}

func (i *Image) Extent() renderer.Extent { return i.Ext }

func (i *Image) Format() renderer.Format { return i.Fmt }

type RenderPass struct {
	Fmt       renderer.Format
	Destroyed bool
}

func (r *RenderPass) Format() renderer.Format { return r.Fmt }

func (r *RenderPass) Destroy() { r.Destroyed = true }

type Framebuffer struct {
	Ext       renderer.Extent
	Image     *Image
	Destroyed bool
}

func (f *Framebuffer) Extent() renderer.Extent { return f.Ext }

func (f *Framebuffer) Destroy() { f.Destroyed = true }

type CommandBufferAllocator struct {
	FamilyIndex uint32
	Allocated   []*CommandBuffer
	Destroyed   bool

	device *Device
}

func (a *CommandBufferAllocator) Allocate() (renderer.CommandBuffer, error) {
	if a.device.AllocateErr != nil {
		return nil, a.device.AllocateErr
	}
	cb := &CommandBuffer{recordErr: a.device.RecordErr}
	a.Allocated = append(a.Allocated, cb)
	return cb, nil
}

func (a *CommandBufferAllocator) Destroy() { a.Destroyed = true }

// CommandBuffer records the commands issued on it by name.
type CommandBuffer struct {
	Commands    []string
	Framebuffer renderer.Framebuffer
	ClearColor  mgl32.Vec4
	Viewport    renderer.Viewport
	Freed       bool

	recordErr error
	inPass    bool
	ended  bool
}

func (c *CommandBuffer) BeginRenderPass(framebuffer renderer.Framebuffer, clearColor mgl32.Vec4) error {
	if c.recordErr != nil {
		return c.recordErr
	}
	if c.inPass || c.ended {
		return errors.New("render pass begun in invalid state")
	}
	c.inPass = true
	c.Framebuffer = framebuffer
	c.ClearColor = clearColor
	c.Commands = append(c.Commands, "BeginRenderPass")
	return nil
}

func (c *CommandBuffer) SetViewport(viewport renderer.Viewport) {
	c.Viewport = viewport
	c.Commands = append(c.Commands, "SetViewport")
}

func (c *CommandBuffer) EndRenderPass() error {
	if !c.inPass {
		return errors.New("no render pass in progress")
	}
	c.inPass = false
	c.Commands = append(c.Commands, "EndRenderPass")
	return nil
}

func (c *CommandBuffer) End() error {
	if c.inPass || c.ended {
		return errors.New("command buffer ended in invalid state")
	}
	c.ended = true
	c.Commands = append(c.Commands, "End")
	return nil
}

func (c *CommandBuffer) Free() { c.Freed = true }

// Future is a completion token that only completes when waited on or built
// ready.
type Future struct {
	ID       int
	Ready    bool
	Parents  []*Future
	Cleanups int

	device *Device
}

func asFuture(f renderer.Future) *Future {
	if v, ok := f.(*Future); ok {
		return v
	}
	return nil
}

func (f *Future) CleanupFinished() {
	f.Cleanups++
	if f.device != nil {
		f.device.cleanup()
	}
}

func (f *Future) complete() {
	f.Ready = true
	f.Parents = nil
}

func (f *Future) Join(other renderer.Future) renderer.Future {
	o := asFuture(other)
	ready := f.Ready && (other == nil || other.IsReady())
	return &Future{ID: -f.ID, Ready: ready, Parents: []*Future{f, o}, device: f.device}
}

func (f *Future) IsReady() bool { return f.Ready }

func (f *Future) Wait(timeout time.Duration) error {
	f.Ready = true
	return nil
}

// DependsOn reports whether other is f or one of its ancestors.
func (f *Future) DependsOn(other *Future) bool {
	if f == nil {
		return false
	}
	if f == other {
		return true
	}
	for _, p := range f.Parents {
		if p.DependsOn(other) {
			return true
		}
	}
	return false
}

// Ancestors counts the distinct futures f still depends on.
func (f *Future) Ancestors() int {
	seen := make(map[*Future]struct{})
	var walk func(*Future)
	walk = func(n *Future) {
		for _, p := range n.Parents {
			if p == nil {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			walk(p)
		}
	}
	walk(f)
	return len(seen)
}
