// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSelectBlendMode(t *testing.T) {
	tests := []struct {
		name       string
		available  []EnvironmentBlendMode
		preference []EnvironmentBlendMode
		want       EnvironmentBlendMode
		wantErr    bool
	}{
		{"alpha preferred", []EnvironmentBlendMode{BlendModeOpaque, BlendModeAdditive, BlendModeAlphaBlend}, nil, BlendModeAlphaBlend, false},
		{"additive fallback", []EnvironmentBlendMode{BlendModeOpaque, BlendModeAdditive}, nil, BlendModeAdditive, false},
		{"opaque last", []EnvironmentBlendMode{BlendModeOpaque}, nil, BlendModeOpaque, false},
		{"custom order", []EnvironmentBlendMode{BlendModeAlphaBlend, BlendModeOpaque}, []EnvironmentBlendMode{BlendModeOpaque, BlendModeAlphaBlend}, BlendModeOpaque, false},
		{"nothing matches", []EnvironmentBlendMode{BlendModeAdditive}, []EnvironmentBlendMode{BlendModeOpaque}, 0, true},
		{"empty runtime list", nil, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectBlendMode(tt.available, tt.preference)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SelectBlendMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrorEnvironmentBlendModeUnsupported) {
					t.Errorf("error = %v, want %v", err, ErrorEnvironmentBlendModeUnsupported)
				}
				return
			}
			if got != tt.want {
				t.Errorf("SelectBlendMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultError(t *testing.T) {
	if got := ErrorCallOrderInvalid.Error(); got != "xr: XR_ERROR_CALL_ORDER_INVALID" {
		t.Errorf("Error() = %q", got)
	}
	if got := Result(-999).String(); got != "XrResult(-999)" {
		t.Errorf("String() = %q, want XrResult(-999)", got)
	}
	if !TimeoutExpired.Succeeded() || TimeoutExpired.Failed() {
		t.Error("TimeoutExpired should be a success code")
	}
	if !ErrorRuntimeFailure.Failed() {
		t.Error("ErrorRuntimeFailure should be a failure code")
	}
}

func TestResultOf(t *testing.T) {
	wrapped := fmt.Errorf("acquire: %w", ErrorSessionNotRunning)
	tests := []struct {
		name string
		err  error
		want Result
	}{
		{"nil", nil, Success},
		{"direct", ErrorHandleInvalid, ErrorHandleInvalid},
		{"wrapped", wrapped, ErrorSessionNotRunning},
		{"foreign", errors.New("boom"), ErrorRuntimeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResultOf(tt.err); got != tt.want {
				t.Errorf("ResultOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionStateString(t *testing.T) {
	if SessionStateFocused.String() != "FOCUSED" {
		t.Errorf("FOCUSED String() = %s", SessionStateFocused)
	}
	if SessionState(42).String() != "SessionState(42)" {
		t.Errorf("unknown String() = %s", SessionState(42))
	}
}

func TestPoseMat4(t *testing.T) {
	p := Pose{Orientation: mgl32.QuatIdent(), Position: mgl32.Vec3{0.2, 0.5, -1.2}}
	got := p.Mat4().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !got.ApproxEqual(p.Position) {
		t.Errorf("origin maps to %v, want %v", got, p.Position)
	}
}

func TestFovProjection(t *testing.T) {
	f := Fov{AngleLeft: -0.5, AngleRight: 0.5, AngleUp: 0.5, AngleDown: -0.5}
	m := f.Projection(0.1, 100)
	// A point straight ahead projects onto the center of the image.
	clip := m.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	if x, y := clip.X()/clip.W(), clip.Y()/clip.W(); x*x+y*y > 1e-6 {
		t.Errorf("center projects to (%v, %v), want (0, 0)", x, y)
	}
	if !(Fov{}).IsZero() || f.IsZero() {
		t.Error("IsZero mismatch")
	}
}

type stubRuntime struct{ Runtime }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Connect(); !errors.Is(err, ErrNoRuntimeAvailable) {
		t.Fatalf("Connect() on empty registry = %v, want ErrNoRuntimeAvailable", err)
	}

	low := &stubRuntime{}
	high := &stubRuntime{}
	r.Register("low", 10, func() (Runtime, error) { return low, nil }, nil)
	r.Register("high", 100, func() (Runtime, error) { return high, nil }, nil)
	r.Register("off", 1000, func() (Runtime, error) { return nil, nil }, func() bool { return false })

	names := r.Available()
	if len(names) != 2 || names[0] != "high" || names[1] != "low" {
		t.Fatalf("Available() = %v, want [high low]", names)
	}

	rt, err := r.Connect()
	if err != nil || rt != high {
		t.Errorf("Connect() = %v, %v; want high backend", rt, err)
	}

	if _, err := r.ConnectByName("missing"); !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("ConnectByName(missing) = %v, want ErrBackendNotFound", err)
	}
	if _, err := r.ConnectByName("off"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("ConnectByName(off) = %v, want ErrBackendUnavailable", err)
	}

	r.Unregister("high")
	if rt, _ := r.Connect(); rt != low {
		t.Error("Connect() after Unregister should fall back to low")
	}
}

func TestRegistryFallsThroughFailingBackend(t *testing.T) {
	r := NewRegistry()
	want := &stubRuntime{}
	r.Register("broken", 100, func() (Runtime, error) { return nil, ErrorRuntimeUnavailable }, nil)
	r.Register("ok", 10, func() (Runtime, error) { return want, nil }, nil)

	rt, err := r.Connect()
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if rt != want {
		t.Error("Connect() should skip the failing backend")
	}

	r.Unregister("ok")
	_, err = r.Connect()
	if !errors.Is(err, ErrNoRuntimeAvailable) || !errors.Is(err, ErrorRuntimeUnavailable) {
		t.Errorf("Connect() with only a failing backend = %v, want both causes", err)
	}
}
