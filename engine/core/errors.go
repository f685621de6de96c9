package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// The swapchain no longer matches the surface and must be recreated.
	ErrOutOfDate = errors.New("swapchain out of date")
	// The surface cannot currently back a swapchain of the requested extent,
	// typically because the window is minimized.
	ErrImageExtentNotSupported = errors.New("image extent not supported by the surface")
	ErrNoSuitableDevice        = errors.New("no physical device meets the requirements")
	ErrSurfaceQuery            = errors.New("surface query failed")
	ErrDeviceCreation          = errors.New("logical device creation failed")
	ErrSwapchainCreation       = errors.New("swapchain creation failed")
	ErrDeviceLost              = errors.New("device lost")
	ErrTimeout                 = errors.New("timed out")
	ErrEngineStage             = errors.New("operation not allowed in the current engine stage")
	ErrUnknown                 = errors.New("unknown")
)
