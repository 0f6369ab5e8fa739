package xroverlay

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/xroverlay/frame"
	"github.com/gogpu/xroverlay/session"
	"github.com/gogpu/xroverlay/xr"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("xroverlay: invalid config")

// Role selects base or overlay behaviour.
type Role = session.Role

// Roles.
const (
	Base    = session.Base
	Overlay = session.Overlay
)

// LayerKind selects the composition layer an App submits.
type LayerKind = frame.LayerKind

// Layer kinds.
const (
	LayerProjection = frame.LayerProjection
	LayerQuad       = frame.LayerQuad
)

// Default sizes and intervals.
const (
	// DefaultQuadResolution is the swapchain edge length of a quad layer.
	DefaultQuadResolution = 512

	// DefaultIdlePoll bounds how long a stopped or paused App blocks on the
	// command queue per iteration.
	DefaultIdlePoll = 100 * time.Millisecond
)

// Config parameterises one App. The zero value plus a Name is a base
// session submitting a projection layer at the runtime's recommended size.
type Config struct {
	// Name identifies the application to the runtime and in logs.
	Name string

	Role Role

	// Width and Height size every swapchain. Zero selects the view's
	// recommended size for projection layers and DefaultQuadResolution
	// for quad layers.
	Width  uint32
	Height uint32

	// BlendModes is the environment blend-mode preference. Nil means
	// alpha-blend, then additive, then opaque.
	BlendModes []xr.EnvironmentBlendMode

	Layer LayerKind

	// QuadPose and QuadSize place a quad layer. The zero pose selects
	// (0.2, 0.5, -1.2) facing the viewer and the zero size 0.5m x 0.5m.
	QuadPose xr.Pose
	QuadSize xr.Extent2Df

	// Placement orders overlay sessions; higher is on top.
	Placement uint32

	// Depth allocates a depth attachment per swapchain image.
	Depth bool

	// Extensions are enabled in addition to the overlay extension that
	// overlay apps always require.
	Extensions []string

	// SwapchainWaitTimeout bounds each image wait. Zero waits forever.
	SwapchainWaitTimeout time.Duration

	// IdlePoll bounds the command wait while no frames are scheduled. Zero
	// selects DefaultIdlePoll.
	IdlePoll time.Duration
}

// Validate reports configuration errors. All problems are reported at once.
func (c Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is empty"))
	}
	if c.Role != Base && c.Role != Overlay {
		errs = append(errs, fmt.Errorf("role %v", c.Role))
	}
	if c.Layer != LayerProjection && c.Layer != LayerQuad {
		errs = append(errs, fmt.Errorf("layer %v", c.Layer))
	}
	if (c.Width == 0) != (c.Height == 0) {
		errs = append(errs, fmt.Errorf("size %dx%d: set both or neither", c.Width, c.Height))
	}
	if c.QuadSize.Width < 0 || c.QuadSize.Height < 0 {
		errs = append(errs, fmt.Errorf("quad size %vx%v", c.QuadSize.Width, c.QuadSize.Height))
	}
	if c.SwapchainWaitTimeout < 0 {
		errs = append(errs, errors.New("negative swapchain wait timeout"))
	}
	if c.IdlePoll < 0 {
		errs = append(errs, errors.New("negative idle poll"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// swapchainSize returns the swapchain size for a view.
func (c Config) swapchainSize(view xr.ViewConfigurationView) (width, height uint32) {
	switch {
	case c.Width != 0:
		return c.Width, c.Height
	case c.Layer == LayerQuad:
		return DefaultQuadResolution, DefaultQuadResolution
	default:
		return view.RecommendedWidth, view.RecommendedHeight
	}
}

// layerFlags returns the flags set on submitted layers. Overlay content is
// blended using its alpha channel.
func (c Config) layerFlags() xr.LayerFlags {
	if c.Role == Overlay {
		return xr.LayerFlagBlendTextureSourceAlpha
	}
	return 0
}
