// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/xr"
)

// GraphicsContext supplies the host's ready-made rendering context.
//
// xroverlay RECEIVES the graphics context from the host, it does NOT create
// one: display, context and surface setup stay with the host application.
// The core consumes it once, at session and swapchain creation.
//
// GraphicsContext extends gpucontext.DeviceProvider, so any gogpu host can
// pass its device provider through after adding a display handle.
type GraphicsContext interface {
	gpucontext.DeviceProvider

	// Display returns the current display handle (an EGLDisplay, or the GPU
	// instance for WebGPU-style hosts).
	Display() gpucontext.Instance

	// MakeCurrent binds the context to the calling thread.
	MakeCurrent() error
}

// Binding returns the graphics binding handed to the runtime at session
// creation: the current display and the current context.
func Binding(gc GraphicsContext) xr.GraphicsBinding {
	return xr.GraphicsBinding{
		Display: gc.Display(),
		Context: gc.Device(),
	}
}

// HeadlessContext is a GraphicsContext with no GPU behind it. Swapchain
// images are then CPU-backed and rendered by the software scenes.
type HeadlessContext struct {
	// Format is the preferred surface format. Zero means RGBA8UnormSrgb.
	Format gputypes.TextureFormat

	current bool
}

// Device returns nil for the headless context.
func (*HeadlessContext) Device() gpucontext.Device { return nil }

// Queue returns nil for the headless context.
func (*HeadlessContext) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the headless context.
func (*HeadlessContext) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports a software adapter.
func (*HeadlessContext) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "headless", Type: gpucontext.AdapterTypeSoftware}
}

// SurfaceFormat returns the preferred swapchain format.
func (c *HeadlessContext) SurfaceFormat() gputypes.TextureFormat {
	if c.Format == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatRGBA8UnormSrgb
	}
	return c.Format
}

// Display returns nil for the headless context.
func (*HeadlessContext) Display() gpucontext.Instance { return nil }

// MakeCurrent records that the context was bound.
func (c *HeadlessContext) MakeCurrent() error {
	c.current = true
	return nil
}

// IsCurrent reports whether MakeCurrent was called.
func (c *HeadlessContext) IsCurrent() bool { return c.current }

// Ensure HeadlessContext implements GraphicsContext.
var _ GraphicsContext = (*HeadlessContext)(nil)
