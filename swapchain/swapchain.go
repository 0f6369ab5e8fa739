// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package swapchain owns the runtime image rings, one per view, and the
// render targets bound to their images.
//
// Every successful Acquire must be matched by exactly one Release, including
// when WaitReady times out; a leaked image stalls the ring for good.
package swapchain

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/xr"
)

// Errors returned by the pool. Each wraps the runtime's xr.Result.
var (
	ErrCreationFailed = errors.New("swapchain: creation failed")
	ErrAcquireFailed  = errors.New("swapchain: acquire failed")
	ErrWaitTimeout    = errors.New("swapchain: wait timed out")
	ErrWaitFailed     = errors.New("swapchain: wait failed")
	ErrReleaseFailed  = errors.New("swapchain: release failed")
	ErrNotAcquired    = errors.New("swapchain: no image acquired")
	ErrAlreadyHeld    = errors.New("swapchain: image already acquired")
)

// Usage is fixed for every view swapchain: rendered into, then sampled by
// the compositor.
const Usage = gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding

// SelectFormat picks the swapchain format: preferred when the runtime
// supports it, then RGBA8UnormSrgb, then the runtime's first format.
func SelectFormat(available []gputypes.TextureFormat, preferred gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	if len(available) == 0 {
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: runtime lists no formats: %w", ErrCreationFailed, xr.ErrorSwapchainFormatUnsupported)
	}
	if preferred != gputypes.TextureFormatUndefined && slices.Contains(available, preferred) {
		return preferred, nil
	}
	if slices.Contains(available, gputypes.TextureFormatRGBA8UnormSrgb) {
		return gputypes.TextureFormatRGBA8UnormSrgb, nil
	}
	return available[0], nil
}

// Pool creates and owns one ViewSwapchain per view of a session.
type Pool struct {
	rt      xr.SwapchainAPI
	session xr.Session
	views   []xr.ViewConfigurationView
	format  gputypes.TextureFormat
	depth   bool
	chains  []*ViewSwapchain
}

// NewPool prepares a pool for session. views is the runtime's view
// configuration, against which every Create is validated. preferred is
// usually the graphics context's SurfaceFormat. depth allocates a depth
// attachment for every render target.
func NewPool(rt xr.SwapchainAPI, session xr.Session, views []xr.ViewConfigurationView, preferred gputypes.TextureFormat, depth bool) (*Pool, error) {
	formats, err := rt.EnumerateSwapchainFormats(session)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate formats: %w", ErrCreationFailed, err)
	}
	format, err := SelectFormat(formats, preferred)
	if err != nil {
		return nil, err
	}
	return &Pool{
		rt:      rt,
		session: session,
		views:   slices.Clone(views),
		format:  format,
		depth:   depth,
		chains:  make([]*ViewSwapchain, len(views)),
	}, nil
}

// Format returns the selected swapchain format.
func (p *Pool) Format() gputypes.TextureFormat { return p.format }

// Len returns the number of views the pool serves.
func (p *Pool) Len() int { return len(p.views) }

// View returns the swapchain created for view i, or nil.
func (p *Pool) View(i int) *ViewSwapchain {
	if i < 0 || i >= len(p.chains) {
		return nil
	}
	return p.chains[i]
}

// Create creates the swapchain for viewIndex. The size must lie within the
// view's maximum image rect.
func (p *Pool) Create(width, height uint32, viewIndex int) (*ViewSwapchain, error) {
	if viewIndex < 0 || viewIndex >= len(p.views) {
		return nil, fmt.Errorf("%w: view %d of %d: %w", ErrCreationFailed, viewIndex, len(p.views), xr.ErrorValidationFailure)
	}
	vc := p.views[viewIndex]
	if width == 0 || height == 0 || width > vc.MaxWidth || height > vc.MaxHeight {
		return nil, fmt.Errorf("%w: %dx%d outside view %d limit %dx%d: %w",
			ErrCreationFailed, width, height, viewIndex, vc.MaxWidth, vc.MaxHeight, xr.ErrorSwapchainRectInvalid)
	}
	if p.chains[viewIndex] != nil {
		return nil, fmt.Errorf("%w: view %d already has a swapchain: %w", ErrCreationFailed, viewIndex, xr.ErrorCallOrderInvalid)
	}

	handle, err := p.rt.CreateSwapchain(p.session, xr.SwapchainCreateInfo{
		Usage:       Usage,
		Format:      p.format,
		SampleCount: 1,
		Width:       width,
		Height:      height,
		FaceCount:   1,
		ArraySize:   1,
		MipCount:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: view %d: %w", ErrCreationFailed, viewIndex, err)
	}
	images, err := p.rt.EnumerateSwapchainImages(handle)
	if err != nil {
		_ = p.rt.DestroySwapchain(handle)
		return nil, fmt.Errorf("%w: view %d images: %w", ErrCreationFailed, viewIndex, err)
	}

	v := &ViewSwapchain{
		rt:       p.rt,
		handle:   handle,
		index:    viewIndex,
		width:    width,
		height:   height,
		format:   p.format,
		acquired: -1,
		targets:  make([]*render.SwapchainTarget, len(images)),
	}
	for i, img := range images {
		v.targets[i] = render.NewSwapchainTarget(img, int(width), int(height), p.format, p.depth)
	}
	p.chains[viewIndex] = v
	xlog.Logger().Info("swapchain: created", "view", viewIndex, "width", width, "height", height,
		"format", p.format, "images", len(images))
	return v, nil
}

// CreateAll creates one swapchain per view at its recommended size.
func (p *Pool) CreateAll() error {
	for i, vc := range p.views {
		if p.chains[i] != nil {
			continue
		}
		if _, err := p.Create(vc.RecommendedWidth, vc.RecommendedHeight, i); err != nil {
			return err
		}
	}
	return nil
}

// Destroy destroys every swapchain the pool created.
func (p *Pool) Destroy() error {
	var errs []error
	for i, v := range p.chains {
		if v == nil {
			continue
		}
		if err := v.destroy(); err != nil {
			errs = append(errs, err)
		}
		p.chains[i] = nil
	}
	return errors.Join(errs...)
}

// ViewSwapchain is one view's image ring and its render targets.
type ViewSwapchain struct {
	rt       xr.SwapchainAPI
	handle   xr.Swapchain
	index    int
	width    uint32
	height   uint32
	format   gputypes.TextureFormat
	targets  []*render.SwapchainTarget
	acquired int
}

// Handle returns the runtime swapchain handle.
func (v *ViewSwapchain) Handle() xr.Swapchain { return v.handle }

// Width returns the image width.
func (v *ViewSwapchain) Width() uint32 { return v.width }

// Height returns the image height.
func (v *ViewSwapchain) Height() uint32 { return v.height }

// Format returns the image format.
func (v *ViewSwapchain) Format() gputypes.TextureFormat { return v.format }

// ImageCount returns the number of images (and render targets) in the ring.
func (v *ViewSwapchain) ImageCount() int { return len(v.targets) }

// Target returns the render target bound to image i.
func (v *ViewSwapchain) Target(i uint32) *render.SwapchainTarget { return v.targets[i] }

// Held reports whether an image is acquired and not yet released.
func (v *ViewSwapchain) Held() bool { return v.acquired >= 0 }

// SubImage describes the whole image for a composition layer.
func (v *ViewSwapchain) SubImage() xr.SwapchainSubImage {
	return xr.SwapchainSubImage{
		Swapchain: v.handle,
		ImageRect: xr.Rect2Di{
			Extent: xr.Extent2Di{Width: int32(v.width), Height: int32(v.height)}, //nolint:gosec // G115: bounded by view limits
		},
	}
}

// Acquire takes the next image of the ring. A failure only affects this view
// for the current frame.
func (v *ViewSwapchain) Acquire() (uint32, error) {
	if v.acquired >= 0 {
		return 0, fmt.Errorf("%w: view %d", ErrAlreadyHeld, v.index)
	}
	idx, err := v.rt.AcquireSwapchainImage(v.handle)
	if err != nil {
		return 0, fmt.Errorf("%w: view %d: %w", ErrAcquireFailed, v.index, err)
	}
	if int(idx) >= len(v.targets) {
		_ = v.rt.ReleaseSwapchainImage(v.handle)
		return 0, fmt.Errorf("%w: view %d index %d of %d: %w", ErrAcquireFailed, v.index, idx, len(v.targets), xr.ErrorRuntimeFailure)
	}
	v.acquired = int(idx)
	return idx, nil
}

// WaitReady blocks until the acquired image is writable, for at most
// timeout (xr.InfiniteDuration for no bound). On timeout or failure the
// image is released before returning, so the caller must not call Release.
func (v *ViewSwapchain) WaitReady(ctx context.Context, timeout time.Duration) error {
	if v.acquired < 0 {
		return fmt.Errorf("%w: view %d", ErrNotAcquired, v.index)
	}
	err := v.rt.WaitSwapchainImage(ctx, v.handle, timeout)
	if err == nil {
		return nil
	}
	sentinel := ErrWaitFailed
	if errors.Is(err, xr.TimeoutExpired) {
		sentinel = ErrWaitTimeout
	}
	if rerr := v.Release(); rerr != nil {
		return errors.Join(fmt.Errorf("%w: view %d: %w", sentinel, v.index, err), rerr)
	}
	return fmt.Errorf("%w: view %d: %w", sentinel, v.index, err)
}

// Release hands the acquired image back to the compositor.
func (v *ViewSwapchain) Release() error {
	if v.acquired < 0 {
		return fmt.Errorf("%w: view %d", ErrNotAcquired, v.index)
	}
	// The slot is given up even when the runtime reports an error.
	v.acquired = -1
	if err := v.rt.ReleaseSwapchainImage(v.handle); err != nil {
		return fmt.Errorf("%w: view %d: %w", ErrReleaseFailed, v.index, err)
	}
	return nil
}

func (v *ViewSwapchain) destroy() error {
	if err := v.rt.DestroySwapchain(v.handle); err != nil {
		return fmt.Errorf("swapchain: destroy view %d: %w", v.index, err)
	}
	return nil
}
