// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"

	"github.com/gogpu/xroverlay/xr"
)

// submittedLayer is one layer of a session's last frame, with the images it
// references resolved to the swapchain images released at EndFrame time.
type submittedLayer struct {
	layer  xr.CompositionLayer
	images []*image.RGBA
	rects  []image.Rectangle
}

// resolveLayers validates a frame's layers against the session's spaces and
// swapchains.
func (c *Compositor) resolveLayers(s *session, layers []xr.CompositionLayer) ([]submittedLayer, error) {
	out := make([]submittedLayer, 0, len(layers))
	for _, l := range layers {
		if sp, ok := c.spaces[l.LayerSpace()]; !ok || sp.sess != s {
			return nil, xr.ErrorHandleInvalid
		}
		var subs []xr.SwapchainSubImage
		switch l := l.(type) {
		case *xr.LayerProjection:
			if len(l.Views) != c.viewCount() {
				return nil, xr.ErrorValidationFailure
			}
			for _, v := range l.Views {
				subs = append(subs, v.SubImage)
			}
		case *xr.LayerQuad:
			subs = append(subs, l.SubImage)
		default:
			return nil, xr.ErrorLayerInvalid
		}

		sl := submittedLayer{layer: l}
		for _, sub := range subs {
			img, rect, err := c.resolveSubImage(s, sub)
			if err != nil {
				return nil, err
			}
			sl.images = append(sl.images, img)
			sl.rects = append(sl.rects, rect)
		}
		out = append(out, sl)
	}
	return out, nil
}

func (c *Compositor) resolveSubImage(s *session, sub xr.SwapchainSubImage) (*image.RGBA, image.Rectangle, error) {
	chain, ok := c.swapchains[sub.Swapchain]
	if !ok || chain.sess != s {
		return nil, image.Rectangle{}, xr.ErrorHandleInvalid
	}
	// The layer must reference an image the application has released.
	if chain.acquired >= 0 || chain.lastReleased < 0 {
		return nil, image.Rectangle{}, xr.ErrorLayerInvalid
	}
	r := sub.ImageRect
	rect := image.Rect(int(r.Offset.X), int(r.Offset.Y),
		int(r.Offset.X+r.Extent.Width), int(r.Offset.Y+r.Extent.Height))
	img := chain.images[chain.lastReleased].Pixels
	if rect.Empty() || !rect.In(img.Bounds()) {
		return nil, image.Rectangle{}, xr.ErrorSwapchainRectInvalid
	}
	return img, rect, nil
}

// Snapshot composites the last frame of every running session, base first
// and overlays by placement, as seen from the origin looking down -Z.
// Projection layers show their first view full screen; quad layers are
// projected to their on-screen rectangle.
func (c *Compositor) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.cfg.previewSize
	dst := image.NewRGBA(image.Rect(0, 0, n, n))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)

	proj := c.cfg.eyeFov.Projection(0.05, 100)
	for _, s := range c.ordered() {
		for _, sl := range s.submitted {
			composeLayer(dst, proj, sl)
		}
	}
	return dst
}

func composeLayer(dst *image.RGBA, proj mgl32.Mat4, sl submittedLayer) {
	var (
		flags xr.LayerFlags
		dr    image.Rectangle
	)
	switch l := sl.layer.(type) {
	case *xr.LayerProjection:
		flags = l.Flags
		dr = dst.Bounds()
	case *xr.LayerQuad:
		flags = l.Flags
		var ok bool
		if dr, ok = quadRect(proj, l.Pose, l.Size, dst.Bounds()); !ok {
			return
		}
	}

	op := draw.Src
	if flags&xr.LayerFlagBlendTextureSourceAlpha != 0 {
		op = draw.Over
	}
	draw.ApproxBiLinear.Scale(dst, dr, sl.images[0], sl.rects[0], op, nil)
}

// quadRect projects the quad's corners and returns their screen bounds.
func quadRect(proj mgl32.Mat4, pose xr.Pose, size xr.Extent2Df, bounds image.Rectangle) (image.Rectangle, bool) {
	model := pose.Mat4()
	hw, hh := size.Width/2, size.Height/2
	corners := [4]mgl32.Vec4{
		{-hw, -hh, 0, 1},
		{hw, -hh, 0, 1},
		{hw, hh, 0, 1},
		{-hw, hh, 0, 1},
	}
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	minX, minY := w, h
	var maxX, maxY float32
	for _, corner := range corners {
		clip := proj.Mul4(model).Mul4x1(corner)
		if clip.W() <= 0 {
			return image.Rectangle{}, false
		}
		x := (clip.X()/clip.W() + 1) / 2 * w
		y := (1 - clip.Y()/clip.W()) / 2 * h
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	r := image.Rect(int(minX), int(minY), int(maxX+0.5), int(maxY+0.5)).Intersect(bounds)
	return r, !r.Empty()
}
