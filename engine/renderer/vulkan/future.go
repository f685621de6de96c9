package vulkan

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/ember/engine/renderer"
)

// VulkanFuture completes when all its fences signal. Its semaphores are
// consumed by the next submission or presentation that waits on it.
type VulkanFuture struct {
	device     *VulkanDevice
	semaphores []vk.Semaphore
	fences     []*VulkanFence
}

func asVulkanFuture(f renderer.Future) *VulkanFuture {
	if vf, ok := f.(*VulkanFuture); ok && vf != nil {
		return vf
	}
	return &VulkanFuture{}
}

func (f *VulkanFuture) CleanupFinished() {
	if f.device != nil {
		f.device.tracker.cleanupFinished()
	}
}

func (f *VulkanFuture) Join(other renderer.Future) renderer.Future {
	o := asVulkanFuture(other)
	device := f.device
	if device == nil {
		device = o.device
	}
	joined := &VulkanFuture{device: device}
	joined.semaphores = append(append(joined.semaphores, f.semaphores...), o.semaphores...)
	joined.fences = append(pendingFences(f.fences), pendingFences(o.fences)...)
	return joined
}

// pendingFences drops the fences already known to be signaled. The tracker
// marks fences signaled when it reclaims them, so a future chained frame
// after frame only carries the work still in flight.
func pendingFences(fences []*VulkanFence) []*VulkanFence {
	out := make([]*VulkanFence, 0, len(fences)+1)
	for _, fence := range fences {
		if !fence.IsSignaled {
			out = append(out, fence)
		}
	}
	return out
}

// submittedFuture is the token of a submission that waited on after and
// signals semaphore and fence.
func submittedFuture(device *VulkanDevice, after *VulkanFuture, semaphore vk.Semaphore, fence *VulkanFence) *VulkanFuture {
	return &VulkanFuture{
		device:     device,
		semaphores: []vk.Semaphore{semaphore},
		fences:     append(pendingFences(after.fences), fence),
	}
}

// presentedFuture is the token returned by a presentation. Its semaphores
// were consumed by the presentation engine.
func presentedFuture(device *VulkanDevice, after *VulkanFuture) *VulkanFuture {
	return &VulkanFuture{device: device, fences: pendingFences(after.fences)}
}

func (f *VulkanFuture) IsReady() bool {
	for _, fence := range f.fences {
		if !fence.FenceStatus(f.device) {
			return false
		}
	}
	return true
}

func (f *VulkanFuture) Wait(timeout time.Duration) error {
	for _, fence := range f.fences {
		if err := fence.FenceWait(f.device, timeoutNanos(timeout)); err != nil {
			return err
		}
	}
	return nil
}

type submission struct {
	fence          *VulkanFence
	semaphores     []vk.Semaphore
	commandBuffers []*VulkanCommandBuffer
}

// syncObjects creates and destroys the objects the tracker owns.
type syncObjects interface {
	createSemaphore() (vk.Semaphore, error)
	destroySemaphore(semaphore vk.Semaphore)
	fenceSignaled(fence *VulkanFence) bool
	destroyFence(fence *VulkanFence)
	freeCommandBuffer(cb *VulkanCommandBuffer)
}

// submissionTracker owns every fence, semaphore and command buffer handed to
// the queue and frees them once the GPU is done with them.
type submissionTracker struct {
	objects  syncObjects
	locks    *VulkanLockPool
	inFlight []*submission
	// Semaphores not yet waited on by anything.
	pending map[vk.Semaphore]struct{}
	// Semaphores waited on by a presentation. They are adopted by the next
	// submission and freed with it.
	presented []vk.Semaphore
}

func newSubmissionTracker(objects syncObjects, locks *VulkanLockPool) *submissionTracker {
	return &submissionTracker{
		objects: objects,
		locks:   locks,
		pending: make(map[vk.Semaphore]struct{}),
	}
}

func (t *submissionTracker) lock(fn func() error) error {
	return t.locks.SafeCall(SynchronizationManagement, fn)
}

func (t *submissionTracker) newSemaphore() (vk.Semaphore, error) {
	semaphore, err := t.objects.createSemaphore()
	if err != nil {
		return vk.NullSemaphore, err
	}
	t.lock(func() error {
		t.pending[semaphore] = struct{}{}
		return nil
	})
	return semaphore, nil
}

// discard destroys a semaphore that was never signaled.
func (t *submissionTracker) discard(semaphore vk.Semaphore) {
	t.lock(func() error {
		delete(t.pending, semaphore)
		return nil
	})
	t.objects.destroySemaphore(semaphore)
}

func (t *submissionTracker) track(s *submission, waited []vk.Semaphore) {
	t.lock(func() error {
		for _, sem := range waited {
			delete(t.pending, sem)
		}
		s.semaphores = append(s.semaphores, waited...)
		s.semaphores = append(s.semaphores, t.presented...)
		t.presented = nil
		t.inFlight = append(t.inFlight, s)
		return nil
	})
}

func (t *submissionTracker) presentedWith(waited []vk.Semaphore) {
	t.lock(func() error {
		for _, sem := range waited {
			delete(t.pending, sem)
		}
		t.presented = append(t.presented, waited...)
		return nil
	})
}

func (t *submissionTracker) cleanupFinished() {
	t.lock(func() error {
		remaining := t.inFlight[:0]
		for _, s := range t.inFlight {
			if t.objects.fenceSignaled(s.fence) {
				t.release(s)
				continue
			}
			remaining = append(remaining, s)
		}
		for i := len(remaining); i < len(t.inFlight); i++ {
			t.inFlight[i] = nil
		}
		t.inFlight = remaining
		return nil
	})
}

// releaseAll must only be called once the device is idle.
func (t *submissionTracker) releaseAll() {
	t.lock(func() error {
		for _, s := range t.inFlight {
			t.release(s)
		}
		t.inFlight = nil
		for sem := range t.pending {
			t.objects.destroySemaphore(sem)
		}
		t.pending = make(map[vk.Semaphore]struct{})
		for _, sem := range t.presented {
			t.objects.destroySemaphore(sem)
		}
		t.presented = nil
		return nil
	})
}

func (t *submissionTracker) release(s *submission) {
	for _, cb := range s.commandBuffers {
		t.objects.freeCommandBuffer(cb)
	}
	for _, sem := range s.semaphores {
		t.objects.destroySemaphore(sem)
	}
	t.objects.destroyFence(s.fence)
}

var errForeignCommandBuffer = errors.New("command buffer was not allocated by the vulkan backend")
