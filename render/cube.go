// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/xroverlay/xr"
)

// Cube geometry: unit cube centered at the origin, one color per corner.
var (
	cubeCorners = [8]mgl32.Vec3{
		{-0.5, -0.5, -0.5},
		{0.5, -0.5, -0.5},
		{0.5, 0.5, -0.5},
		{-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5},
		{0.5, -0.5, 0.5},
		{0.5, 0.5, 0.5},
		{-0.5, 0.5, 0.5},
	}
	cubeColors = [8]mgl32.Vec3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
		{1, 0, 1},
		{0, 1, 1},
		{1, 1, 1},
		{0.3, 0.3, 0.3},
	}
	cubeIndices = [36]int{
		0, 1, 2, 2, 3, 0,
		4, 5, 6, 6, 7, 4,
		0, 1, 5, 5, 4, 0,
		2, 3, 7, 7, 6, 2,
		0, 3, 7, 7, 4, 0,
		1, 2, 6, 6, 5, 1,
	}
)

// CubeScene draws a vertex-colored cube spinning about Y in front of the
// viewer, depth-tested against the target's depth attachment.
type CubeScene struct {
	// Background is the clear color. Nil means a translucent dark blue.
	Background color.Color

	// Distance from the space origin along -Z. Zero means 2.5.
	Distance float32

	// Speed is the spin rate in radians per second of display time.
	// Zero means 1.5.
	Speed float32
}

const (
	cubeNear = 0.05
	cubeFar  = 100
)

// Angle returns the cube's rotation at display time t. The angle repeats
// every second of display time.
func (s *CubeScene) Angle(t xr.Time) float32 {
	speed := s.Speed
	if speed == 0 {
		speed = 1.5
	}
	frac := float32(int64(t)%1_000_000_000) / 1e9
	return frac * speed
}

// Model returns the model matrix at display time t.
func (s *CubeScene) Model(t xr.Time) mgl32.Mat4 {
	dist := s.Distance
	if dist == 0 {
		dist = 2.5
	}
	return mgl32.Translate3D(0, 0, -dist).Mul4(mgl32.HomogRotate3DY(s.Angle(t)))
}

// DrawView implements Scene.
func (s *CubeScene) DrawView(target RenderTarget, view ViewInfo) error {
	img, err := cpuImage(target)
	if err != nil {
		return err
	}
	bg := s.Background
	if bg == nil {
		bg = color.NRGBA{B: 0x80, A: 0x1A}
	}
	clearImage(img, bg)

	var depth *DepthBuffer
	if dt, ok := target.(DepthTarget); ok && dt.Depth() != nil {
		depth = dt.Depth()
		depth.Clear()
	} else {
		depth = NewDepthBuffer(img.Bounds().Dx(), img.Bounds().Dy())
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var proj mgl32.Mat4
	if view.Fov.IsZero() {
		proj = mgl32.Perspective(mgl32.DegToRad(90), float32(w)/float32(h), cubeNear, cubeFar)
	} else {
		proj = view.Fov.Projection(cubeNear, cubeFar)
	}
	mvp := proj.Mul4(view.Pose.Mat4().Inv()).Mul4(s.Model(view.DisplayTime))

	var verts [8]screenVertex
	for i, c := range cubeCorners {
		verts[i] = project(mvp, c, w, h)
		verts[i].color = cubeColors[i]
	}
	for i := 0; i < len(cubeIndices); i += 3 {
		a, b, c := verts[cubeIndices[i]], verts[cubeIndices[i+1]], verts[cubeIndices[i+2]]
		if a.clipped || b.clipped || c.clipped {
			continue
		}
		rasterTriangle(img, depth, a, b, c)
	}
	return nil
}

type screenVertex struct {
	x, y, z float32
	color   mgl32.Vec3
	clipped bool
}

func project(mvp mgl32.Mat4, p mgl32.Vec3, w, h int) screenVertex {
	clip := mvp.Mul4x1(p.Vec4(1))
	if clip.W() <= cubeNear {
		return screenVertex{clipped: true}
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return screenVertex{
		x: (ndc.X() + 1) / 2 * float32(w),
		y: (1 - ndc.Y()) / 2 * float32(h),
		z: (ndc.Z() + 1) / 2,
	}
}

func edge(a, b screenVertex, px, py float32) float32 {
	return (px-a.x)*(b.y-a.y) - (py-a.y)*(b.x-a.x)
}

func rasterTriangle(img *image.RGBA, depth *DepthBuffer, a, b, c screenVertex) {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return
	}
	bounds := img.Bounds()
	minX := clampInt(int(math.Floor(float64(min(a.x, b.x, c.x)))), bounds.Min.X, bounds.Max.X-1)
	maxX := clampInt(int(math.Ceil(float64(max(a.x, b.x, c.x)))), bounds.Min.X, bounds.Max.X-1)
	minY := clampInt(int(math.Floor(float64(min(a.y, b.y, c.y)))), bounds.Min.Y, bounds.Max.Y-1)
	maxY := clampInt(int(math.Ceil(float64(max(a.y, b.y, c.y)))), bounds.Min.Y, bounds.Max.Y-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*a.z + w1*b.z + w2*c.z
			if z < 0 || z > 1 || !depth.Test(x, y, z) {
				continue
			}
			col := a.color.Mul(w0).Add(b.color.Mul(w1)).Add(c.color.Mul(w2))
			img.SetRGBA(x, y, color.RGBA{
				R: unitToByte(col.X()),
				G: unitToByte(col.Y()),
				B: unitToByte(col.Z()),
				A: 0xFF,
			})
		}
	}
}

func unitToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ Scene = (*CubeScene)(nil)
