// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/xr"
)

type app struct {
	inst    xr.Instance
	session xr.Session
	space   xr.Space
}

func newApp(t *testing.T, c *Compositor, overlay bool) app {
	t.Helper()
	exts := []string{xr.ExtensionOpenGLESEnable}
	if overlay {
		exts = append(exts, xr.ExtensionOverlay)
	}
	inst, err := c.CreateInstance(xr.InstanceCreateInfo{Extensions: exts})
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	sys, err := c.GetSystem(inst, xr.FormFactorHeadMountedDisplay)
	if err != nil {
		t.Fatalf("GetSystem() error = %v", err)
	}
	s, err := c.CreateSession(inst, xr.SessionCreateInfo{System: sys, Overlay: overlay})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	sp, err := c.CreateReferenceSpace(s, xr.ReferenceSpaceLocal, xr.IdentityPose())
	if err != nil {
		t.Fatalf("CreateReferenceSpace() error = %v", err)
	}
	return app{inst: inst, session: s, space: sp}
}

// states drains the instance's queue and returns the session states seen.
func states(t *testing.T, c *Compositor, inst xr.Instance) []xr.SessionState {
	t.Helper()
	var out []xr.SessionState
	for {
		ev, ok, err := c.PollEvent(inst)
		if err != nil {
			t.Fatalf("PollEvent() error = %v", err)
		}
		if !ok {
			return out
		}
		if sc, ok := ev.(*xr.SessionStateChanged); ok {
			out = append(out, sc.State)
		}
	}
}

func TestBaseSessionLifecycle(t *testing.T) {
	c := New(WithFramePeriod(0))
	a := newApp(t, c, false)

	want := []xr.SessionState{xr.SessionStateIdle, xr.SessionStateReady}
	if got := states(t, c, a.inst); !slices.Equal(got, want) {
		t.Fatalf("after create = %v, want %v", got, want)
	}

	if err := c.BeginSession(a.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	want = []xr.SessionState{xr.SessionStateSynchronized, xr.SessionStateVisible, xr.SessionStateFocused}
	if got := states(t, c, a.inst); !slices.Equal(got, want) {
		t.Fatalf("after begin = %v, want %v", got, want)
	}
	if err := c.BeginSession(a.session, xr.ViewConfigurationPrimaryStereo); !errors.Is(err, xr.ErrorSessionRunning) {
		t.Errorf("second BeginSession() = %v, want ErrorSessionRunning", err)
	}
	if err := c.EndSession(a.session); !errors.Is(err, xr.ErrorSessionNotStopping) {
		t.Errorf("EndSession() while focused = %v, want ErrorSessionNotStopping", err)
	}

	if err := c.RequestExitSession(a.session); err != nil {
		t.Fatalf("RequestExitSession() error = %v", err)
	}
	want = []xr.SessionState{xr.SessionStateVisible, xr.SessionStateSynchronized, xr.SessionStateStopping}
	if got := states(t, c, a.inst); !slices.Equal(got, want) {
		t.Fatalf("after exit request = %v, want %v", got, want)
	}

	if err := c.EndSession(a.session); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}
	want = []xr.SessionState{xr.SessionStateIdle, xr.SessionStateExiting}
	if got := states(t, c, a.inst); !slices.Equal(got, want) {
		t.Fatalf("after end = %v, want %v", got, want)
	}
}

func TestOverlayFollowsBaseFocus(t *testing.T) {
	c := New(WithFramePeriod(0))
	overlay := newApp(t, c, true)

	// No base session yet: the overlay waits in IDLE.
	if got := states(t, c, overlay.inst); !slices.Equal(got, []xr.SessionState{xr.SessionStateIdle}) {
		t.Fatalf("overlay without base = %v, want [IDLE]", got)
	}

	base := newApp(t, c, false)
	if err := c.BeginSession(base.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession(base) error = %v", err)
	}
	if got := states(t, c, overlay.inst); !slices.Equal(got, []xr.SessionState{xr.SessionStateReady}) {
		t.Fatalf("overlay after base focus = %v, want [READY]", got)
	}
	if err := c.BeginSession(overlay.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatalf("BeginSession(overlay) error = %v", err)
	}
	states(t, c, overlay.inst)

	c.SetBaseFocus(false)
	want := []xr.SessionState{xr.SessionStateVisible, xr.SessionStateSynchronized, xr.SessionStateStopping}
	if got := states(t, c, overlay.inst); !slices.Equal(got, want) {
		t.Fatalf("overlay after base unfocus = %v, want %v", got, want)
	}
	if _, err := c.WaitFrame(context.Background(), overlay.session); !errors.Is(err, xr.ErrorSessionNotRunning) {
		t.Errorf("WaitFrame() on stopped overlay = %v, want ErrorSessionNotRunning", err)
	}
	if st, _ := c.State(base.session); st != xr.SessionStateVisible {
		t.Errorf("base state = %v, want VISIBLE", st)
	}

	c.SetBaseFocus(true)
	if got := states(t, c, overlay.inst); !slices.Equal(got, []xr.SessionState{xr.SessionStateReady}) {
		t.Fatalf("overlay after refocus = %v, want [READY]", got)
	}
	if err := c.BeginSession(overlay.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Errorf("re-BeginSession(overlay) error = %v", err)
	}
}

func TestOverlayExtensionRequired(t *testing.T) {
	c := New()
	if _, err := c.CreateInstance(xr.InstanceCreateInfo{Extensions: []string{"XR_FAKE_ext"}}); !errors.Is(err, xr.ErrorExtensionNotPresent) {
		t.Errorf("CreateInstance(unknown ext) = %v, want ErrorExtensionNotPresent", err)
	}

	inst, err := c.CreateInstance(xr.InstanceCreateInfo{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateSession(inst, xr.SessionCreateInfo{System: 1, Overlay: true}); !errors.Is(err, xr.ErrorExtensionDependencyNotEnabled) {
		t.Errorf("CreateSession(overlay) = %v, want ErrorExtensionDependencyNotEnabled", err)
	}
}

func newSwapchain(t *testing.T, c *Compositor, s xr.Session, w, h uint32) xr.Swapchain {
	t.Helper()
	sc, err := c.CreateSwapchain(s, xr.SwapchainCreateInfo{
		Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
		Format:      gputypes.TextureFormatRGBA8UnormSrgb,
		SampleCount: 1,
		Width:       w,
		Height:      h,
		FaceCount:   1,
		ArraySize:   1,
		MipCount:    1,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain() error = %v", err)
	}
	return sc
}

func TestSwapchainCycle(t *testing.T) {
	c := New()
	a := newApp(t, c, false)
	sc := newSwapchain(t, c, a.session, 16, 16)
	ctx := context.Background()

	images, err := c.EnumerateSwapchainImages(sc)
	if err != nil || len(images) != 3 {
		t.Fatalf("EnumerateSwapchainImages() = %d images, %v", len(images), err)
	}

	for _, want := range []uint32{0, 1, 2, 0} {
		idx, err := c.AcquireSwapchainImage(sc)
		if err != nil {
			t.Fatalf("AcquireSwapchainImage() error = %v", err)
		}
		if idx != want {
			t.Errorf("index = %d, want %d", idx, want)
		}
		if _, err := c.AcquireSwapchainImage(sc); !errors.Is(err, xr.ErrorCallOrderInvalid) {
			t.Errorf("double acquire = %v, want ErrorCallOrderInvalid", err)
		}
		if err := c.WaitSwapchainImage(ctx, sc, xr.InfiniteDuration); err != nil {
			t.Fatalf("WaitSwapchainImage() error = %v", err)
		}
		if err := c.ReleaseSwapchainImage(sc); err != nil {
			t.Fatalf("ReleaseSwapchainImage() error = %v", err)
		}
	}
	if err := c.ReleaseSwapchainImage(sc); !errors.Is(err, xr.ErrorCallOrderInvalid) {
		t.Errorf("release without acquire = %v, want ErrorCallOrderInvalid", err)
	}
	if c.Outstanding() != 0 {
		t.Errorf("Outstanding() = %d, want 0", c.Outstanding())
	}
}

func TestCreateSwapchainValidation(t *testing.T) {
	c := New(WithFormats(gputypes.TextureFormatRGBA8Unorm))
	a := newApp(t, c, false)

	tests := []struct {
		name string
		info xr.SwapchainCreateInfo
		want xr.Result
	}{
		{"format", xr.SwapchainCreateInfo{Usage: gputypes.TextureUsageRenderAttachment, Format: gputypes.TextureFormatRGBA8UnormSrgb, Width: 8, Height: 8}, xr.ErrorSwapchainFormatUnsupported},
		{"usage", xr.SwapchainCreateInfo{Usage: gputypes.TextureUsageTextureBinding, Format: gputypes.TextureFormatRGBA8Unorm, Width: 8, Height: 8}, xr.ErrorFeatureUnsupported},
		{"size", xr.SwapchainCreateInfo{Usage: gputypes.TextureUsageRenderAttachment, Format: gputypes.TextureFormatRGBA8Unorm, Width: 1 << 20, Height: 8}, xr.ErrorValidationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.CreateSwapchain(a.session, tt.info); !errors.Is(err, tt.want) {
				t.Errorf("CreateSwapchain() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameCallOrder(t *testing.T) {
	c := New(WithFramePeriod(0))
	a := newApp(t, c, false)
	if err := c.BeginSession(a.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}

	if err := c.BeginFrame(a.session); !errors.Is(err, xr.ErrorCallOrderInvalid) {
		t.Errorf("BeginFrame() before WaitFrame = %v, want ErrorCallOrderInvalid", err)
	}
	fs, err := c.WaitFrame(context.Background(), a.session)
	if err != nil {
		t.Fatalf("WaitFrame() error = %v", err)
	}
	if !fs.ShouldRender {
		t.Error("focused base session should render")
	}
	if err := c.BeginFrame(a.session); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if err := c.BeginFrame(a.session); !errors.Is(err, xr.ErrorCallOrderInvalid) {
		t.Errorf("second BeginFrame() = %v, want ErrorCallOrderInvalid", err)
	}
	info := xr.FrameEndInfo{DisplayTime: fs.PredictedDisplayTime, BlendMode: xr.BlendModeOpaque}
	if err := c.EndFrame(a.session, info); err != nil {
		t.Fatalf("EndFrame() with no layers error = %v", err)
	}
	if c.Frames(a.session) != 1 {
		t.Errorf("Frames() = %d, want 1", c.Frames(a.session))
	}

	next, err := c.WaitFrame(context.Background(), a.session)
	if err != nil {
		t.Fatal(err)
	}
	if next.PredictedDisplayTime <= fs.PredictedDisplayTime {
		t.Errorf("display time did not advance: %d then %d", fs.PredictedDisplayTime, next.PredictedDisplayTime)
	}
}

func TestEndFrameRejectsUnreleasedImage(t *testing.T) {
	c := New(WithFramePeriod(0))
	a := newApp(t, c, true)
	base := newApp(t, c, false)
	if err := c.BeginSession(base.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginSession(a.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	sc := newSwapchain(t, c, a.session, 8, 8)

	if _, err := c.WaitFrame(context.Background(), a.session); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginFrame(a.session); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AcquireSwapchainImage(sc); err != nil {
		t.Fatal(err)
	}
	quad := &xr.LayerQuad{
		Space:    a.space,
		SubImage: xr.SwapchainSubImage{Swapchain: sc, ImageRect: xr.Rect2Di{Extent: xr.Extent2Di{Width: 8, Height: 8}}},
		Pose:     xr.IdentityPose(),
		Size:     xr.Extent2Df{Width: 0.5, Height: 0.5},
	}
	info := xr.FrameEndInfo{BlendMode: xr.BlendModeAlphaBlend, Layers: []xr.CompositionLayer{quad}}
	if err := c.EndFrame(a.session, info); !errors.Is(err, xr.ErrorLayerInvalid) {
		t.Errorf("EndFrame() with acquired image = %v, want ErrorLayerInvalid", err)
	}
}

func TestFaultInjection(t *testing.T) {
	c := New()
	a := newApp(t, c, false)
	sc := newSwapchain(t, c, a.session, 8, 8)
	c.Inject(Fault{Op: "AcquireSwapchainImage", Handle: uint64(sc), Result: xr.ErrorRuntimeFailure, Times: 1})

	if _, err := c.AcquireSwapchainImage(sc); !errors.Is(err, xr.ErrorRuntimeFailure) {
		t.Fatalf("first acquire = %v, want injected failure", err)
	}
	if _, err := c.AcquireSwapchainImage(sc); err != nil {
		t.Fatalf("second acquire = %v, want success after fault clears", err)
	}
	if got := c.Count("AcquireSwapchainImage"); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	if got := c.Succeeded("AcquireSwapchainImage"); got != 1 {
		t.Errorf("Succeeded() = %d, want 1", got)
	}

	c.Inject(Fault{Op: "WaitSwapchainImage", Result: xr.TimeoutExpired})
	if err := c.WaitSwapchainImage(context.Background(), sc, time.Millisecond); !errors.Is(err, xr.TimeoutExpired) {
		t.Errorf("WaitSwapchainImage() = %v, want TimeoutExpired", err)
	}
	if err := c.ReleaseSwapchainImage(sc); err != nil {
		t.Errorf("release after timeout = %v, want nil", err)
	}
	c.ClearFaults()
}

func TestCallLogLimit(t *testing.T) {
	c := New(WithCallLogLimit(4))
	for range 10 {
		if _, err := c.EnumerateInstanceExtensions(); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(c.Calls()); n == 0 || n > 4 {
		t.Errorf("len(Calls()) = %d, want 1..4", n)
	}
}

func TestWaitFrameHonorsContext(t *testing.T) {
	c := New(WithFramePeriod(time.Hour))
	a := newApp(t, c, false)
	if err := c.BeginSession(a.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	if _, err := c.WaitFrame(context.Background(), a.session); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.WaitFrame(ctx, a.session); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitFrame() = %v, want context.DeadlineExceeded", err)
	}
}

func TestLocateViews(t *testing.T) {
	c := New()
	a := newApp(t, c, false)

	flags, views, err := c.LocateViews(a.session, xr.ViewLocateInfo{
		ViewConfiguration: xr.ViewConfigurationPrimaryStereo,
		Space:             a.space,
	})
	if err != nil {
		t.Fatalf("LocateViews() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len(views) = %d, want 2", len(views))
	}
	if flags&xr.ViewStatePositionValid == 0 {
		t.Error("position should be valid")
	}
	if views[0].Pose.Position.X() >= 0 || views[1].Pose.Position.X() <= 0 {
		t.Errorf("eye offsets = %v, %v", views[0].Pose.Position, views[1].Pose.Position)
	}

	if _, _, err := c.LocateViews(a.session, xr.ViewLocateInfo{ViewConfiguration: xr.ViewConfigurationPrimaryMono, Space: a.space}); !errors.Is(err, xr.ErrorViewConfigurationTypeUnsupported) {
		t.Errorf("LocateViews(mono) = %v, want ErrorViewConfigurationTypeUnsupported", err)
	}
}

func TestLoseInstance(t *testing.T) {
	c := New()
	a := newApp(t, c, false)
	states(t, c, a.inst)

	c.LoseInstance()
	var sawLoss bool
	for {
		ev, ok, err := c.PollEvent(a.inst)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if _, ok := ev.(*xr.InstanceLossPending); ok {
			sawLoss = true
		}
	}
	if !sawLoss {
		t.Error("expected an InstanceLossPending event")
	}
	if _, err := c.GetSystem(a.inst, xr.FormFactorHeadMountedDisplay); !errors.Is(err, xr.ErrorInstanceLost) {
		t.Errorf("GetSystem() after loss = %v, want ErrorInstanceLost", err)
	}
}

func TestSnapshotComposesQuad(t *testing.T) {
	c := New(WithFramePeriod(0), WithPreviewSize(100))
	base := newApp(t, c, false)
	overlay := newApp(t, c, true)
	if err := c.BeginSession(base.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginSession(overlay.session, xr.ViewConfigurationPrimaryStereo); err != nil {
		t.Fatal(err)
	}
	sc := newSwapchain(t, c, overlay.session, 8, 8)
	images, _ := c.EnumerateSwapchainImages(sc)

	ctx := context.Background()
	if _, err := c.WaitFrame(ctx, overlay.session); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginFrame(overlay.session); err != nil {
		t.Fatal(err)
	}
	idx, _ := c.AcquireSwapchainImage(sc)
	if err := c.WaitSwapchainImage(ctx, sc, xr.InfiniteDuration); err != nil {
		t.Fatal(err)
	}
	green := color.RGBA{G: 0xFF, A: 0xFF}
	img := images[idx].Pixels
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, green)
		}
	}
	if err := c.ReleaseSwapchainImage(sc); err != nil {
		t.Fatal(err)
	}
	quad := &xr.LayerQuad{
		Flags:    xr.LayerFlagBlendTextureSourceAlpha,
		Space:    overlay.space,
		SubImage: xr.SwapchainSubImage{Swapchain: sc, ImageRect: xr.Rect2Di{Extent: xr.Extent2Di{Width: 8, Height: 8}}},
		Pose:     xr.Pose{Orientation: mgl32.QuatIdent(), Position: mgl32.Vec3{0, 0, -1}},
		Size:     xr.Extent2Df{Width: 0.5, Height: 0.5},
	}
	if err := c.EndFrame(overlay.session, xr.FrameEndInfo{BlendMode: xr.BlendModeAlphaBlend, Layers: []xr.CompositionLayer{quad}}); err != nil {
		t.Fatalf("EndFrame() error = %v", err)
	}

	snap := c.Snapshot()
	if got := snap.RGBAAt(50, 50); got != green {
		t.Errorf("center = %v, want green", got)
	}
	if got := snap.RGBAAt(2, 2); got != (color.RGBA{A: 0xFF}) {
		t.Errorf("corner = %v, want black", got)
	}
	if snap.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Errorf("Bounds() = %v", snap.Bounds())
	}
}
