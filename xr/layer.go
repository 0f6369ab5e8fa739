// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

// LayerFlags modify how the compositor blends a layer.
type LayerFlags uint64

// Layer flags.
const (
	LayerFlagCorrectChromaticAberration LayerFlags = 1 << 0
	LayerFlagBlendTextureSourceAlpha    LayerFlags = 1 << 1
	LayerFlagUnpremultipliedAlpha       LayerFlags = 1 << 2
)

// EyeVisibility restricts a quad layer to one eye.
type EyeVisibility int32

// Eye visibility values.
const (
	EyeVisibilityBoth  EyeVisibility = 0
	EyeVisibilityLeft  EyeVisibility = 1
	EyeVisibilityRight EyeVisibility = 2
)

// SwapchainSubImage names the region of a swapchain image a layer samples.
type SwapchainSubImage struct {
	Swapchain       Swapchain
	ImageRect       Rect2Di
	ImageArrayIndex uint32
}

// CompositionLayer is a frame's submission unit. It is implemented by
// LayerProjection and LayerQuad only.
type CompositionLayer interface {
	// LayerSpace returns the space the layer is positioned in.
	LayerSpace() Space
	isCompositionLayer()
}

// ProjectionView is one eye's entry in a projection layer.
type ProjectionView struct {
	Pose     Pose
	Fov      Fov
	SubImage SwapchainSubImage
}

// LayerProjection submits one rendered image per view, reprojected by the
// compositor using each view's pose and fov.
type LayerProjection struct {
	Flags LayerFlags
	Space Space
	Views []ProjectionView
}

// LayerSpace implements CompositionLayer.
func (l *LayerProjection) LayerSpace() Space { return l.Space }

func (*LayerProjection) isCompositionLayer() {}

// LayerQuad places a single image on a flat rectangle in space.
type LayerQuad struct {
	Flags         LayerFlags
	Space         Space
	EyeVisibility EyeVisibility
	SubImage      SwapchainSubImage
	Pose          Pose
	Size          Extent2Df
}

// LayerSpace implements CompositionLayer.
func (l *LayerQuad) LayerSpace() Space { return l.Space }

func (*LayerQuad) isCompositionLayer() {}

// FrameEndInfo is submitted by EndFrame.
type FrameEndInfo struct {
	DisplayTime Time
	BlendMode   EnvironmentBlendMode
	Layers      []CompositionLayer
}

var (
	_ CompositionLayer = (*LayerProjection)(nil)
	_ CompositionLayer = (*LayerQuad)(nil)
)
