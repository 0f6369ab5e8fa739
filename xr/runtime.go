// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import (
	"context"
	"image"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// ApplicationInfo identifies the application to the runtime.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	APIVersion         uint64
}

// InstanceCreateInfo parameterises CreateInstance.
type InstanceCreateInfo struct {
	Application ApplicationInfo
	Extensions  []string
}

// GraphicsBinding hands the host's current graphics context to the runtime.
type GraphicsBinding struct {
	Display gpucontext.Instance
	Context gpucontext.Device
}

// SessionCreateInfo parameterises CreateSession.
type SessionCreateInfo struct {
	System   SystemID
	Graphics GraphicsBinding
	// Overlay requests XR_EXTX_overlay placement above the base session.
	Overlay bool
	// OverlayPlacement orders overlays among each other; higher is on top.
	OverlayPlacement uint32
}

// SwapchainCreateInfo parameterises CreateSwapchain.
type SwapchainCreateInfo struct {
	Usage       gputypes.TextureUsage
	Format      gputypes.TextureFormat
	SampleCount uint32
	Width       uint32
	Height      uint32
	FaceCount   uint32
	ArraySize   uint32
	MipCount    uint32
}

// SwapchainImage is one runtime-owned image of a swapchain ring.
// Which fields are set depends on the graphics API the runtime speaks.
type SwapchainImage struct {
	// Name is the graphics-API image name (a GL texture id).
	Name uint32
	// View is the GPU texture view for WebGPU-style backends.
	View gpucontext.TextureView
	// Pixels is CPU-visible storage, when the runtime exposes one.
	Pixels *image.RGBA
}

// InstanceAPI covers extension discovery, instances and system queries.
type InstanceAPI interface {
	EnumerateInstanceExtensions() ([]string, error)
	CreateInstance(info InstanceCreateInfo) (Instance, error)
	DestroyInstance(instance Instance) error
	GetSystem(instance Instance, formFactor FormFactor) (SystemID, error)
	EnumerateViewConfigurations(instance Instance, system SystemID) ([]ViewConfigurationType, error)
	EnumerateViewConfigurationViews(instance Instance, system SystemID, viewConfig ViewConfigurationType) ([]ViewConfigurationView, error)
	EnumerateEnvironmentBlendModes(instance Instance, system SystemID, viewConfig ViewConfigurationType) ([]EnvironmentBlendMode, error)
}

// SessionAPI covers the session lifecycle and reference spaces.
type SessionAPI interface {
	CreateSession(instance Instance, info SessionCreateInfo) (Session, error)
	DestroySession(session Session) error
	BeginSession(session Session, viewConfig ViewConfigurationType) error
	EndSession(session Session) error
	RequestExitSession(session Session) error
	CreateReferenceSpace(session Session, kind ReferenceSpaceType, poseInSpace Pose) (Space, error)
	DestroySpace(space Space) error
}

// SwapchainAPI covers swapchain creation and the per-image cycle.
type SwapchainAPI interface {
	EnumerateSwapchainFormats(session Session) ([]gputypes.TextureFormat, error)
	CreateSwapchain(session Session, info SwapchainCreateInfo) (Swapchain, error)
	DestroySwapchain(swapchain Swapchain) error
	EnumerateSwapchainImages(swapchain Swapchain) ([]SwapchainImage, error)
	AcquireSwapchainImage(swapchain Swapchain) (uint32, error)
	// WaitSwapchainImage blocks until the acquired image is writable or the
	// timeout elapses, in which case it returns TimeoutExpired.
	WaitSwapchainImage(ctx context.Context, swapchain Swapchain, timeout time.Duration) error
	ReleaseSwapchainImage(swapchain Swapchain) error
}

// FrameAPI covers frame pacing, submission and view location.
type FrameAPI interface {
	// WaitFrame blocks until the runtime's pacing signal for the next frame.
	WaitFrame(ctx context.Context, session Session) (FrameState, error)
	BeginFrame(session Session) error
	EndFrame(session Session, info FrameEndInfo) error
	LocateViews(session Session, info ViewLocateInfo) (ViewStateFlags, []View, error)
}

// EventAPI covers event polling.
type EventAPI interface {
	// PollEvent returns the next queued event without blocking. ok is false
	// when the queue is empty.
	PollEvent(instance Instance) (ev Event, ok bool, err error)
}

// Runtime is the complete call surface of a compositor runtime.
type Runtime interface {
	InstanceAPI
	SessionAPI
	SwapchainAPI
	FrameAPI
	EventAPI
}
