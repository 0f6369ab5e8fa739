// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/xr"
)

// Option configures a Compositor during creation.
//
// Example:
//
//	c := sim.New(
//	    sim.WithFramePeriod(0),
//	    sim.WithBlendModes(xr.BlendModeOpaque),
//	)
type Option func(*config)

type config struct {
	viewConfig   xr.ViewConfigurationType
	viewWidth    uint32
	viewHeight   uint32
	maxSize      uint32
	blendModes   []xr.EnvironmentBlendMode
	formats      []gputypes.TextureFormat
	extensions   []string
	framePeriod  time.Duration
	imageCount   int
	ipd          float32
	eyeFov       xr.Fov
	previewSize  int
	callLogLimit int
}

func defaultConfig() config {
	return config{
		viewConfig: xr.ViewConfigurationPrimaryStereo,
		viewWidth:  1440,
		viewHeight: 1584,
		maxSize:    4096,
		blendModes: []xr.EnvironmentBlendMode{
			xr.BlendModeOpaque,
			xr.BlendModeAdditive,
			xr.BlendModeAlphaBlend,
		},
		formats: []gputypes.TextureFormat{
			gputypes.TextureFormatRGBA8UnormSrgb,
			gputypes.TextureFormatRGBA8Unorm,
		},
		extensions: []string{
			xr.ExtensionAndroidCreateInstance,
			xr.ExtensionOpenGLESEnable,
			xr.ExtensionOverlay,
		},
		framePeriod: time.Second / 90,
		imageCount:  3,
		ipd:         0.063,
		eyeFov:      xr.Fov{AngleLeft: -0.785, AngleRight: 0.785, AngleUp: 0.785, AngleDown: -0.785},
		previewSize: 512,
	}
}

// WithViewConfiguration selects mono or stereo views.
func WithViewConfiguration(v xr.ViewConfigurationType) Option {
	return func(c *config) { c.viewConfig = v }
}

// WithViewSize sets the recommended per-view image size.
func WithViewSize(width, height uint32) Option {
	return func(c *config) {
		c.viewWidth = width
		c.viewHeight = height
	}
}

// WithBlendModes sets the environment blend modes the system reports.
func WithBlendModes(modes ...xr.EnvironmentBlendMode) Option {
	return func(c *config) { c.blendModes = modes }
}

// WithFormats sets the swapchain formats sessions may use.
func WithFormats(formats ...gputypes.TextureFormat) Option {
	return func(c *config) { c.formats = formats }
}

// WithExtensions sets the instance extensions the runtime advertises.
func WithExtensions(names ...string) Option {
	return func(c *config) { c.extensions = names }
}

// WithFramePeriod sets the display period WaitFrame paces on.
// Zero disables pacing, which keeps tests fast.
func WithFramePeriod(d time.Duration) Option {
	return func(c *config) { c.framePeriod = d }
}

// WithImageCount sets the number of images per swapchain.
func WithImageCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.imageCount = n
		}
	}
}

// WithPreviewSize sets the side length of Snapshot images.
func WithPreviewSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.previewSize = n
		}
	}
}

// WithCallLogLimit bounds the call log. Once full, the older half is
// discarded. Zero keeps every call.
func WithCallLogLimit(n int) Option {
	return func(c *config) { c.callLogLimit = max(n, 0) }
}
