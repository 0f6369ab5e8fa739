// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Opaque runtime handles. The zero value is the null handle.
type (
	Instance  uint64
	SystemID  uint64
	Session   uint64
	Space     uint64
	Swapchain uint64
)

// Time is a runtime timestamp in nanoseconds.
type Time int64

// InfiniteDuration makes a bounded wait unbounded.
const InfiniteDuration = time.Duration(math.MaxInt64)

// Extension names the core cares about.
const (
	ExtensionAndroidCreateInstance = "XR_KHR_android_create_instance"
	ExtensionOpenGLESEnable        = "XR_KHR_opengl_es_enable"
	ExtensionOverlay               = "XR_EXTX_overlay"
)

// FormFactor selects the kind of display system.
type FormFactor int32

// Form factors.
const (
	FormFactorHeadMountedDisplay FormFactor = 1
	FormFactorHandheldDisplay    FormFactor = 2
)

// SessionState mirrors the runtime's session state enumeration.
type SessionState int32

// Session states.
const (
	SessionStateUnknown SessionState = iota
	SessionStateIdle
	SessionStateReady
	SessionStateSynchronized
	SessionStateVisible
	SessionStateFocused
	SessionStateStopping
	SessionStateLossPending
	SessionStateExiting
)

func (s SessionState) String() string {
	switch s {
	case SessionStateUnknown:
		return "UNKNOWN"
	case SessionStateIdle:
		return "IDLE"
	case SessionStateReady:
		return "READY"
	case SessionStateSynchronized:
		return "SYNCHRONIZED"
	case SessionStateVisible:
		return "VISIBLE"
	case SessionStateFocused:
		return "FOCUSED"
	case SessionStateStopping:
		return "STOPPING"
	case SessionStateLossPending:
		return "LOSS_PENDING"
	case SessionStateExiting:
		return "EXITING"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// ViewConfigurationType identifies a view layout (mono, stereo).
type ViewConfigurationType int32

// View configuration types.
const (
	ViewConfigurationPrimaryMono   ViewConfigurationType = 1
	ViewConfigurationPrimaryStereo ViewConfigurationType = 2
)

func (v ViewConfigurationType) String() string {
	switch v {
	case ViewConfigurationPrimaryMono:
		return "PRIMARY_MONO"
	case ViewConfigurationPrimaryStereo:
		return "PRIMARY_STEREO"
	default:
		return fmt.Sprintf("ViewConfigurationType(%d)", int32(v))
	}
}

// ViewConfigurationView describes the recommended and maximum image size of
// one view.
type ViewConfigurationView struct {
	RecommendedWidth       uint32
	RecommendedHeight      uint32
	MaxWidth               uint32
	MaxHeight              uint32
	RecommendedSampleCount uint32
	MaxSampleCount         uint32
}

// EnvironmentBlendMode controls how the compositor blends layers with the
// physical environment or with other sessions.
type EnvironmentBlendMode int32

// Blend modes.
const (
	BlendModeOpaque     EnvironmentBlendMode = 1
	BlendModeAdditive   EnvironmentBlendMode = 2
	BlendModeAlphaBlend EnvironmentBlendMode = 3
)

func (m EnvironmentBlendMode) String() string {
	switch m {
	case BlendModeOpaque:
		return "OPAQUE"
	case BlendModeAdditive:
		return "ADDITIVE"
	case BlendModeAlphaBlend:
		return "ALPHA_BLEND"
	default:
		return fmt.Sprintf("EnvironmentBlendMode(%d)", int32(m))
	}
}

// ReferenceSpaceType selects the origin of a reference space.
type ReferenceSpaceType int32

// Reference space types.
const (
	ReferenceSpaceView  ReferenceSpaceType = 1
	ReferenceSpaceLocal ReferenceSpaceType = 2
	ReferenceSpaceStage ReferenceSpaceType = 3
)

// Pose is an orientation and position in a reference space.
type Pose struct {
	Orientation mgl32.Quat
	Position    mgl32.Vec3
}

// IdentityPose returns the pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl32.QuatIdent()}
}

// Mat4 returns the rigid transform described by p.
func (p Pose) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z()).Mul4(p.Orientation.Normalize().Mat4())
}

// Fov is a view frustum given as four angles in radians. Left and Down are
// normally negative.
type Fov struct {
	AngleLeft  float32
	AngleRight float32
	AngleUp    float32
	AngleDown  float32
}

// Projection returns a right-handed perspective matrix for the frustum.
func (f Fov) Projection(near, far float32) mgl32.Mat4 {
	left := near * float32(math.Tan(float64(f.AngleLeft)))
	right := near * float32(math.Tan(float64(f.AngleRight)))
	down := near * float32(math.Tan(float64(f.AngleDown)))
	up := near * float32(math.Tan(float64(f.AngleUp)))
	return mgl32.Frustum(left, right, down, up, near, far)
}

// IsZero reports whether f carries no angles.
func (f Fov) IsZero() bool { return f == Fov{} }

// Extent2Df is a size in meters.
type Extent2Df struct {
	Width  float32
	Height float32
}

// Offset2Di is an integer pixel offset.
type Offset2Di struct {
	X int32
	Y int32
}

// Extent2Di is an integer pixel size.
type Extent2Di struct {
	Width  int32
	Height int32
}

// Rect2Di is an integer pixel rectangle.
type Rect2Di struct {
	Offset Offset2Di
	Extent Extent2Di
}

// View is one located view: where the eye is and what it sees.
type View struct {
	Pose Pose
	Fov  Fov
}

// ViewStateFlags reports which parts of a located view are valid.
type ViewStateFlags uint64

// View state flags.
const (
	ViewStateOrientationValid   ViewStateFlags = 1 << 0
	ViewStatePositionValid      ViewStateFlags = 1 << 1
	ViewStateOrientationTracked ViewStateFlags = 1 << 2
	ViewStatePositionTracked    ViewStateFlags = 1 << 3
)

// ViewLocateInfo parameterises LocateViews.
type ViewLocateInfo struct {
	ViewConfiguration ViewConfigurationType
	DisplayTime       Time
	Space             Space
}

// FrameState is produced by WaitFrame.
type FrameState struct {
	PredictedDisplayTime   Time
	PredictedDisplayPeriod time.Duration
	ShouldRender           bool
}
