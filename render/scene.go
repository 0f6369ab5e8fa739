// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/gogpu/xroverlay/xr"
)

// ErrNoCPUStorage is returned by software scenes asked to draw into a target
// without CPU-visible pixels.
var ErrNoCPUStorage = errors.New("render: target has no CPU storage")

// ViewInfo describes the view being rendered.
type ViewInfo struct {
	// Index is the view index (0 = left eye for stereo).
	Index int

	// Pose is the eye pose in the application space. For quad layers it is
	// the quad's pose.
	Pose xr.Pose

	// Fov is the eye's field of view. Zero for quad layers.
	Fov xr.Fov

	// DisplayTime is the frame's predicted display time.
	DisplayTime xr.Time
}

// Scene draws the content of one view into a target.
type Scene interface {
	DrawView(target RenderTarget, view ViewInfo) error
}

// SceneFunc adapts a function to Scene.
type SceneFunc func(target RenderTarget, view ViewInfo) error

// DrawView calls f.
func (f SceneFunc) DrawView(target RenderTarget, view ViewInfo) error {
	return f(target, view)
}

// ClearScene fills the whole view with one color. It is the base session's
// background and the classic green overlay panel.
type ClearScene struct {
	Color color.Color
}

// DrawView implements Scene.
func (s *ClearScene) DrawView(target RenderTarget, _ ViewInfo) error {
	img, err := cpuImage(target)
	if err != nil {
		return err
	}
	clearImage(img, s.Color)
	if dt, ok := target.(DepthTarget); ok && dt.Depth() != nil {
		dt.Depth().Clear()
	}
	return nil
}

// Quad is an axis-aligned rectangle in normalized device coordinates.
type Quad struct {
	Name     string
	CenterX  float32
	CenterY  float32
	HalfSize float32
	Color    color.Color
}

// Contains reports whether the NDC point (x, y) lies strictly inside q.
func (q Quad) Contains(x, y float32) bool {
	return x > q.CenterX-q.HalfSize && x < q.CenterX+q.HalfSize &&
		y > q.CenterY-q.HalfSize && y < q.CenterY+q.HalfSize
}

// QuadsScene draws flat colored quads over a background using the vector
// rasterizer, with source-over blending.
type QuadsScene struct {
	Background color.Color
	Quads      []Quad
}

// NewPanelScene returns the three-panel 2D overlay: blue top-left, magenta
// in the middle and green on the right, over a transparent background.
func NewPanelScene() *QuadsScene {
	return &QuadsScene{
		Background: color.Transparent,
		Quads: []Quad{
			{Name: "blue", CenterX: -0.4, CenterY: 0.4, HalfSize: 0.25, Color: color.NRGBA{B: 0xFF, A: 0xFF}},
			{Name: "magenta", CenterX: 0, CenterY: 0, HalfSize: 0.25, Color: color.NRGBA{R: 0xFF, B: 0xFF, A: 0xFF}},
			{Name: "green", CenterX: 0.4, CenterY: 0, HalfSize: 0.25, Color: color.NRGBA{G: 0xFF, A: 0xFF}},
		},
	}
}

// DrawView implements Scene.
func (s *QuadsScene) DrawView(target RenderTarget, _ ViewInfo) error {
	img, err := cpuImage(target)
	if err != nil {
		return err
	}
	if s.Background != nil {
		clearImage(img, s.Background)
	}

	w, h := float32(img.Bounds().Dx()), float32(img.Bounds().Dy())
	toPixel := func(x, y float32) (float32, float32) {
		return (x + 1) / 2 * w, (1 - y) / 2 * h
	}

	z := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())
	for _, q := range s.Quads {
		z.Reset(img.Bounds().Dx(), img.Bounds().Dy())
		z.DrawOp = draw.Over
		x0, y0 := toPixel(q.CenterX-q.HalfSize, q.CenterY+q.HalfSize)
		x1, y1 := toPixel(q.CenterX+q.HalfSize, q.CenterY-q.HalfSize)
		z.MoveTo(x0, y0)
		z.LineTo(x1, y0)
		z.LineTo(x1, y1)
		z.LineTo(x0, y1)
		z.ClosePath()
		z.Draw(img, img.Bounds(), image.NewUniform(q.Color), image.Point{})
	}
	return nil
}

// HitTest returns the name of the topmost quad under the NDC point (x, y),
// or "" for the background. Quads listed first win, matching the order a
// tap handler checks them.
func (s *QuadsScene) HitTest(x, y float32) string {
	for _, q := range s.Quads {
		if q.Contains(x, y) {
			return q.Name
		}
	}
	return ""
}

// PixelToNDC converts a pixel position in a width x height surface to NDC,
// flipping Y so that up is positive.
func PixelToNDC(px, py float32, width, height int) (x, y float32) {
	x = px/float32(width)*2 - 1
	y = -(py/float32(height)*2 - 1)
	return x, y
}

func cpuImage(target RenderTarget) (*image.RGBA, error) {
	ct, ok := target.(CPUTarget)
	if !ok || ct.Image() == nil {
		return nil, ErrNoCPUStorage
	}
	return ct.Image(), nil
}

var (
	_ Scene = (*ClearScene)(nil)
	_ Scene = (*QuadsScene)(nil)
	_ Scene = SceneFunc(nil)
)
