// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame drives the per-frame protocol against the runtime:
// WaitFrame, BeginFrame, the per-view acquire/wait/render/release cycle and
// EndFrame, and assembles the composition layer submitted with the frame.
//
// EndFrame is called for every frame that was begun, with zero layers when
// nothing should or could be rendered. Views are cycled one after another;
// a failure in one view never stops its siblings.
package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/swapchain"
	"github.com/gogpu/xroverlay/xr"
)

// Errors returned by RunFrame. Each wraps the runtime's xr.Result.
var (
	ErrWaitFrame  = errors.New("frame: wait failed")
	ErrBeginFrame = errors.New("frame: begin failed")
	ErrEndFrame   = errors.New("frame: end failed")
)

// errNoSwapchain is reported for a view without a swapchain.
var errNoSwapchain = errors.New("frame: view has no swapchain")

// TracerName is the instrumentation scope of the scheduler's spans.
const TracerName = "github.com/gogpu/xroverlay/frame"

// LayerKind selects what the scheduler submits.
type LayerKind int

const (
	// LayerProjection submits one located, per-eye image per view.
	LayerProjection LayerKind = iota
	// LayerQuad submits view 0's image on a fixed quad.
	LayerQuad
)

// String returns the layer kind name.
func (k LayerKind) String() string {
	switch k {
	case LayerProjection:
		return "projection"
	case LayerQuad:
		return "quad"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// DefaultQuadPose is the quad placement: 0.2m right, 0.5m up and 1.2m in
// front of the LOCAL origin, facing the viewer.
func DefaultQuadPose() xr.Pose {
	return xr.Pose{Orientation: mgl32.QuatIdent(), Position: mgl32.Vec3{0.2, 0.5, -1.2}}
}

// DefaultQuadSize is the quad size in meters.
var DefaultQuadSize = xr.Extent2Df{Width: 0.5, Height: 0.5}

// Session is what the scheduler needs from the session manager.
type Session interface {
	Session() xr.Session
	Space() xr.Space
	ViewConfiguration() xr.ViewConfigurationType
	BlendMode() xr.EnvironmentBlendMode
}

// Config parameterises a Scheduler.
type Config struct {
	Layer LayerKind

	// QuadPose and QuadSize place the quad layer. The zero pose selects
	// DefaultQuadPose and the zero size DefaultQuadSize.
	QuadPose xr.Pose
	QuadSize xr.Extent2Df

	// Flags are set on every submitted layer.
	Flags xr.LayerFlags

	// WaitTimeout bounds each swapchain image wait. Zero waits forever.
	WaitTimeout time.Duration

	// Tracer records a span per frame and per view. Nil uses the global
	// provider.
	Tracer trace.Tracer
}

// Result describes one completed frame.
type Result struct {
	DisplayTime  xr.Time
	ShouldRender bool
	// Rendered counts the views whose cycle completed.
	Rendered int
	// Layers is the number of layers submitted.
	Layers int
}

// Scheduler runs frames for one session. It is not safe for concurrent
// use; the loop goroutine owns it.
type Scheduler struct {
	rt      xr.FrameAPI
	session Session
	pool    *swapchain.Pool
	scene   render.Scene
	cfg     Config
	tracer  trace.Tracer
	frames  uint64
}

// NewScheduler creates a scheduler rendering scene into pool's swapchains.
// In quad mode only view 0's swapchain is used.
func NewScheduler(rt xr.FrameAPI, sess Session, pool *swapchain.Pool, scene render.Scene, cfg Config) *Scheduler {
	if cfg.QuadPose == (xr.Pose{}) {
		cfg.QuadPose = DefaultQuadPose()
	}
	if cfg.QuadSize == (xr.Extent2Df{}) {
		cfg.QuadSize = DefaultQuadSize
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = xr.InfiniteDuration
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Scheduler{rt: rt, session: sess, pool: pool, scene: scene, cfg: cfg, tracer: tracer}
}

// Frames returns how many frames were ended successfully.
func (s *Scheduler) Frames() uint64 { return s.frames }

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// RunFrame runs one frame. Per-view and view-location failures are logged
// and cost at most this frame's layer; only failures of the frame calls
// themselves are returned.
func (s *Scheduler) RunFrame(ctx context.Context) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "xroverlay.frame",
		trace.WithAttributes(attribute.String("xr.layer", s.cfg.Layer.String())))
	defer span.End()

	sess := s.session.Session()
	state, err := s.rt.WaitFrame(ctx, sess)
	if err != nil {
		return Result{}, s.fail(span, ErrWaitFrame, "WaitFrame", err)
	}
	res := Result{DisplayTime: state.PredictedDisplayTime, ShouldRender: state.ShouldRender}

	if err := s.rt.BeginFrame(sess); err != nil && !errors.Is(err, xr.FrameDiscarded) {
		return res, s.fail(span, ErrBeginFrame, "BeginFrame", err)
	}

	var layers []xr.CompositionLayer
	if state.ShouldRender {
		var layer xr.CompositionLayer
		if s.cfg.Layer == LayerQuad {
			layer, res.Rendered = s.renderQuad(ctx, state.PredictedDisplayTime)
		} else {
			layer, res.Rendered = s.renderProjection(ctx, state.PredictedDisplayTime)
		}
		if layer != nil {
			layers = append(layers, layer)
		}
	}
	res.Layers = len(layers)
	span.SetAttributes(
		attribute.Bool("xr.should_render", state.ShouldRender),
		attribute.Int("xr.views_rendered", res.Rendered),
		attribute.Int("xr.layers", res.Layers),
	)

	err = s.rt.EndFrame(sess, xr.FrameEndInfo{
		DisplayTime: state.PredictedDisplayTime,
		BlendMode:   s.session.BlendMode(),
		Layers:      layers,
	})
	if err != nil {
		return res, s.fail(span, ErrEndFrame, "EndFrame", err)
	}
	s.frames++
	xlog.Logger().Debug("frame: ended", "frame", s.frames, "displayTime", state.PredictedDisplayTime,
		"shouldRender", state.ShouldRender, "layers", res.Layers)
	return res, nil
}

func (s *Scheduler) fail(span trace.Span, sentinel error, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	xlog.Logger().Warn("frame: "+op+" failed", "op", op, "result", xr.ResultOf(err))
	return fmt.Errorf("%w: %w", sentinel, err)
}

// renderProjection locates the views and renders each one. The layer is
// dropped as a whole when location fails or any view fails; the other
// views are still cycled so their images are released.
func (s *Scheduler) renderProjection(ctx context.Context, t xr.Time) (xr.CompositionLayer, int) {
	log := xlog.Logger()
	flags, views, err := s.rt.LocateViews(s.session.Session(), xr.ViewLocateInfo{
		ViewConfiguration: s.session.ViewConfiguration(),
		DisplayTime:       t,
		Space:             s.session.Space(),
	})
	if err != nil {
		log.Warn("frame: layer dropped", "op", "LocateViews", "result", xr.ResultOf(err))
		return nil, 0
	}
	if flags&xr.ViewStateOrientationValid == 0 || flags&xr.ViewStatePositionValid == 0 {
		log.Debug("frame: layer dropped, pose not valid", "flags", flags)
		return nil, 0
	}
	n := s.pool.Len()
	if len(views) < n {
		log.Warn("frame: layer dropped", "op", "LocateViews", "views", len(views), "want", n)
		return nil, 0
	}

	layer := &xr.LayerProjection{
		Flags: s.cfg.Flags,
		Space: s.session.Space(),
		Views: make([]xr.ProjectionView, n),
	}
	rendered := 0
	for i := 0; i < n; i++ {
		sub, err := s.renderView(ctx, i, views[i].Pose, views[i].Fov, t)
		if err != nil {
			continue
		}
		layer.Views[i] = xr.ProjectionView{Pose: views[i].Pose, Fov: views[i].Fov, SubImage: sub}
		rendered++
	}
	if rendered < n {
		log.Warn("frame: layer dropped", "rendered", rendered, "views", n)
		return nil, rendered
	}
	return layer, rendered
}

// renderQuad renders view 0 onto the fixed quad.
func (s *Scheduler) renderQuad(ctx context.Context, t xr.Time) (xr.CompositionLayer, int) {
	sub, err := s.renderView(ctx, 0, s.cfg.QuadPose, xr.Fov{}, t)
	if err != nil {
		return nil, 0
	}
	return &xr.LayerQuad{
		Flags:         s.cfg.Flags,
		Space:         s.session.Space(),
		EyeVisibility: xr.EyeVisibilityBoth,
		SubImage:      sub,
		Pose:          s.cfg.QuadPose,
		Size:          s.cfg.QuadSize,
	}, 1
}

// renderView runs one view's acquire, wait, render and release. Every
// successful acquire is released exactly once, whatever fails after it.
func (s *Scheduler) renderView(ctx context.Context, index int, pose xr.Pose, fov xr.Fov, t xr.Time) (xr.SwapchainSubImage, error) {
	_, span := s.tracer.Start(ctx, "xroverlay.view", trace.WithAttributes(attribute.Int("xr.view", index)))
	defer span.End()

	err := s.cycle(ctx, index, pose, fov, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "view skipped")
		xlog.Logger().Warn("frame: view skipped", "view", index, "op", opOf(err),
			"result", xr.ResultOf(err), "error", err)
		return xr.SwapchainSubImage{}, err
	}
	return s.pool.View(index).SubImage(), nil
}

func (s *Scheduler) cycle(ctx context.Context, index int, pose xr.Pose, fov xr.Fov, t xr.Time) error {
	v := s.pool.View(index)
	if v == nil {
		return fmt.Errorf("%w: view %d", errNoSwapchain, index)
	}
	img, err := v.Acquire()
	if err != nil {
		return err
	}
	// WaitReady releases the image itself when it fails.
	if err := v.WaitReady(ctx, s.cfg.WaitTimeout); err != nil {
		return err
	}
	drawErr := s.scene.DrawView(v.Target(img), render.ViewInfo{
		Index:       index,
		Pose:        pose,
		Fov:         fov,
		DisplayTime: t,
	})
	if drawErr != nil {
		drawErr = fmt.Errorf("frame: draw view %d: %w", index, drawErr)
	}
	return errors.Join(drawErr, v.Release())
}

// opOf names the runtime call behind a view failure.
func opOf(err error) string {
	switch {
	case errors.Is(err, swapchain.ErrAcquireFailed):
		return "AcquireSwapchainImage"
	case errors.Is(err, swapchain.ErrWaitTimeout), errors.Is(err, swapchain.ErrWaitFailed):
		return "WaitSwapchainImage"
	case errors.Is(err, swapchain.ErrReleaseFailed):
		return "ReleaseSwapchainImage"
	default:
		return "render"
	}
}
