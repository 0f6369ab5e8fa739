// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/xr"
)

// RenderTarget defines where one view's rendering output goes.
//
//   - PixmapTarget: CPU-backed *image.RGBA, used for previews and tests
//   - SwapchainTarget: one runtime swapchain image plus optional depth
//
// Targets may support CPU access (Pixels), GPU access (TextureView), or both.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// TextureView returns the GPU texture view for this target.
	// The handle is nil for CPU-only targets.
	TextureView() gpucontext.TextureView

	// Pixels returns direct access to pixel data.
	// Returns nil for GPU-only targets.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// CPUTarget is implemented by targets whose color storage is an *image.RGBA.
type CPUTarget interface {
	RenderTarget
	Image() *image.RGBA
}

// DepthTarget is implemented by targets carrying a depth attachment.
type DepthTarget interface {
	RenderTarget
	Depth() *DepthBuffer
}

// PixmapTarget is a CPU-backed render target using *image.RGBA.
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed render target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a render target.
// The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// TextureView returns a nil view as this is a CPU-only target.
func (t *PixmapTarget) TextureView() gpucontext.TextureView {
	return gpucontext.TextureView{}
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte { return t.img.Pix }

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int { return t.img.Stride }

// Image returns the underlying *image.RGBA.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) { clearImage(t.img, c) }

// GetPixel returns the color at the given coordinates.
func (t *PixmapTarget) GetPixel(x, y int) color.Color { return t.img.At(x, y) }

var _ CPUTarget = (*PixmapTarget)(nil)

// SwapchainTarget binds one runtime-owned swapchain image as a render
// target, with a locally allocated depth attachment when the view needs
// depth testing.
//
// The color storage belongs to the runtime; SwapchainTarget never frees it.
type SwapchainTarget struct {
	width  int
	height int
	format gputypes.TextureFormat
	image  xr.SwapchainImage
	depth  *DepthBuffer
}

// NewSwapchainTarget builds the target for one swapchain image.
// withDepth allocates a Depth24Plus attachment of the same size.
func NewSwapchainTarget(img xr.SwapchainImage, width, height int, format gputypes.TextureFormat, withDepth bool) *SwapchainTarget {
	t := &SwapchainTarget{
		width:  width,
		height: height,
		format: format,
		image:  img,
	}
	if withDepth {
		t.depth = NewDepthBuffer(width, height)
	}
	return t
}

// Width returns the image width in pixels.
func (t *SwapchainTarget) Width() int { return t.width }

// Height returns the image height in pixels.
func (t *SwapchainTarget) Height() int { return t.height }

// Format returns the swapchain format.
func (t *SwapchainTarget) Format() gputypes.TextureFormat { return t.format }

// TextureView returns the runtime's view of the image, if any.
func (t *SwapchainTarget) TextureView() gpucontext.TextureView { return t.image.View }

// Pixels returns the CPU storage of the image, or nil.
func (t *SwapchainTarget) Pixels() []byte {
	if t.image.Pixels == nil {
		return nil
	}
	return t.image.Pixels.Pix
}

// Stride returns the number of bytes per row, or 0 for GPU-only images.
func (t *SwapchainTarget) Stride() int {
	if t.image.Pixels == nil {
		return 0
	}
	return t.image.Pixels.Stride
}

// Image returns the CPU storage of the image, or nil.
func (t *SwapchainTarget) Image() *image.RGBA { return t.image.Pixels }

// ImageName returns the graphics-API name of the image.
func (t *SwapchainTarget) ImageName() uint32 { return t.image.Name }

// Depth returns the depth attachment, or nil.
func (t *SwapchainTarget) Depth() *DepthBuffer { return t.depth }

// Clear fills the color image with c and resets depth.
func (t *SwapchainTarget) Clear(c color.Color) {
	if t.image.Pixels != nil {
		clearImage(t.image.Pixels, c)
	}
	if t.depth != nil {
		t.depth.Clear()
	}
}

var (
	_ CPUTarget   = (*SwapchainTarget)(nil)
	_ DepthTarget = (*SwapchainTarget)(nil)
)

// DepthBuffer is a CPU depth attachment storing normalized depth in [0, 1].
type DepthBuffer struct {
	width  int
	height int
	values []float32
}

// NewDepthBuffer allocates a cleared depth buffer.
func NewDepthBuffer(width, height int) *DepthBuffer {
	d := &DepthBuffer{
		width:  width,
		height: height,
		values: make([]float32, width*height),
	}
	d.Clear()
	return d
}

// Format returns the depth format the buffer stands in for.
func (d *DepthBuffer) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatDepth24Plus
}

// Clear resets every sample to the far plane.
func (d *DepthBuffer) Clear() {
	for i := range d.values {
		d.values[i] = 1
	}
}

// At returns the stored depth at (x, y).
func (d *DepthBuffer) At(x, y int) float32 {
	return d.values[y*d.width+x]
}

// Test performs a LEQUAL depth test at (x, y) and stores z when it passes.
func (d *DepthBuffer) Test(x, y int, z float32) bool {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return false
	}
	i := y*d.width + x
	if z > d.values[i] {
		return false
	}
	d.values[i] = z
	return true
}

func clearImage(img *image.RGBA, c color.Color) {
	if c == nil {
		c = color.Transparent
	}
	r, g, b, a := c.RGBA()
	//nolint:gosec // G115: mask ensures no overflow
	rgba := color.RGBA{
		R: uint8((r >> 8) & 0xFF),
		G: uint8((g >> 8) & 0xFF),
		B: uint8((b >> 8) & 0xFF),
		A: uint8((a >> 8) & 0xFF),
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, rgba)
		}
	}
}
