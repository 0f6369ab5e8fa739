package xroverlay

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/xroverlay/event"
	"github.com/gogpu/xroverlay/frame"
	"github.com/gogpu/xroverlay/internal/stats"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/session"
	"github.com/gogpu/xroverlay/swapchain"
	"github.com/gogpu/xroverlay/xr"
)

// Errors returned by App.
var (
	ErrNotStarted     = errors.New("xroverlay: app not started")
	ErrAlreadyStarted = errors.New("xroverlay: app already started")
	ErrClosed         = errors.New("xroverlay: app closed")
)

// Stats is a snapshot of an App's progress.
type Stats struct {
	// Frames is the number of frames ended successfully.
	Frames uint64
	// FPS is the frame rate over the last full second.
	FPS float64
	// State is the last session state applied.
	State xr.SessionState
	// Running reports whether frames are being scheduled.
	Running bool
}

// App is one application session: a base session or an overlay session.
// It owns the runtime instance, the session, its reference space and one
// swapchain per rendered view, and drives them from a single goroutine.
//
// Post, IsFocused and Stats may be called from any goroutine. Start, Step,
// Run and Close belong to the loop goroutine.
type App struct {
	cfg   Config
	rt    xr.Runtime
	gfx   render.GraphicsContext
	scene render.Scene
	opts  options

	mgr   *session.Manager
	pump  *event.Pump
	pool  *swapchain.Pool
	sched *frame.Scheduler
	cmds  *event.Commands
	stats *stats.Counter

	paused  bool
	stop    bool
	started bool
	closed  bool
}

// New creates an App. No runtime call is made until Start.
func New(rt xr.Runtime, gfx render.GraphicsContext, scene render.Scene, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rt == nil || gfx == nil || scene == nil {
		return nil, fmt.Errorf("%w: runtime, graphics context and scene are required", ErrInvalidConfig)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.IdlePoll == 0 {
		cfg.IdlePoll = DefaultIdlePoll
	}
	cmds := o.commands
	if cmds == nil {
		cmds = event.NewCommands(event.DefaultCapacity)
	}
	a := &App{
		cfg:   cfg,
		rt:    rt,
		gfx:   gfx,
		scene: scene,
		opts:  o,
		cmds:  cmds,
		stats: stats.New(o.now),
	}
	a.mgr = session.NewManager(rt, session.Config{
		Role:             cfg.Role,
		AppName:          cfg.Name,
		BlendModes:       cfg.BlendModes,
		OverlayPlacement: cfg.Placement,
	})
	return a, nil
}

// Name returns the configured name.
func (a *App) Name() string { return a.cfg.Name }

// Start connects to the runtime: instance, system, session, reference space
// and swapchains, in that order. Any failure is fatal; what was created is
// torn down again before Start returns.
func (a *App) Start() error {
	switch {
	case a.closed:
		return ErrClosed
	case a.started:
		return ErrAlreadyStarted
	}
	log := Logger().With("app", a.cfg.Name)

	if err := a.start(); err != nil {
		log.Error("xroverlay: start failed", "error", err)
		return errors.Join(err, a.Close())
	}
	a.started = true
	log.Info("xroverlay: started", "role", a.cfg.Role, "layer", a.cfg.Layer,
		"format", a.pool.Format(), "blend", a.mgr.BlendMode())
	return nil
}

func (a *App) start() error {
	if _, err := a.mgr.CreateInstance(a.cfg.Extensions...); err != nil {
		return err
	}
	if err := a.mgr.Initialize(a.gfx); err != nil {
		return err
	}
	a.pump = event.NewPump(a.rt, a.mgr)

	views := a.mgr.Views()
	pool, err := swapchain.NewPool(a.rt, a.mgr.Session(), views, a.gfx.SurfaceFormat(), a.cfg.Depth)
	if err != nil {
		return err
	}
	a.pool = pool
	n := len(views)
	if a.cfg.Layer == LayerQuad {
		n = 1
	}
	for i := 0; i < n; i++ {
		w, h := a.cfg.swapchainSize(views[i])
		if _, err := pool.Create(w, h, i); err != nil {
			return err
		}
	}

	a.sched = frame.NewScheduler(a.rt, a.mgr, pool, a.scene, frame.Config{
		Layer:       a.cfg.Layer,
		QuadPose:    a.cfg.QuadPose,
		QuadSize:    a.cfg.QuadSize,
		Flags:       a.cfg.layerFlags(),
		WaitTimeout: a.cfg.SwapchainWaitTimeout,
		Tracer:      a.opts.tracer,
	})
	return nil
}

// Run starts the App if needed and loops until a TermWindow or Destroy
// command, session exit, instance loss or ctx cancellation, then tears
// everything down. Cancellation is not an error.
func (a *App) Run(ctx context.Context) (err error) {
	if !a.started {
		if err := a.Start(); err != nil {
			return err
		}
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	for ctx.Err() == nil {
		more, err := a.Step(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// Step runs one loop iteration: queued commands, then every pending
// runtime event, then one frame if the session is running and not paused.
// Otherwise it blocks on the command queue for at most IdlePoll.
//
// Step reports false once the loop should end.
func (a *App) Step(ctx context.Context) (bool, error) {
	if !a.started {
		return false, ErrNotStarted
	}
	if a.closed {
		return false, ErrClosed
	}
	log := Logger().With("app", a.cfg.Name)

	for {
		cmd, ok := a.cmds.Next()
		if !ok {
			break
		}
		a.apply(cmd)
	}
	if a.stop {
		return false, nil
	}

	sum, err := a.pump.Drain()
	if err != nil {
		log.Warn("xroverlay: event drain failed", "error", err)
	}
	if sum.LossPending {
		log.Warn("xroverlay: instance loss pending, stopping")
		a.stop = true
	}
	if a.mgr.ExitRequested() {
		log.Info("xroverlay: session exiting, stopping")
		a.stop = true
	}
	if a.stop {
		return false, nil
	}

	if a.paused || !a.mgr.Running() {
		if cmd, ok := a.cmds.Wait(ctx, a.cfg.IdlePoll); ok {
			a.apply(cmd)
		}
		return !a.stop, nil
	}

	if _, err := a.sched.RunFrame(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, nil
		}
		log.Debug("xroverlay: frame failed", "error", err)
		return true, nil
	}
	if fps, rolled := a.stats.Frame(); rolled && a.cfg.Role == Base {
		log.Info("xroverlay: frame rate", "fps", fps)
	}
	return true, nil
}

func (a *App) apply(cmd event.Command) {
	Logger().Debug("xroverlay: command", "app", a.cfg.Name, "command", cmd)
	switch cmd {
	case event.Resume:
		a.paused = false
	case event.Pause:
		a.paused = true
	case event.TermWindow, event.Destroy:
		a.stop = true
	}
}

// Post queues a host command without blocking.
func (a *App) Post(cmd event.Command) error { return a.cmds.Post(cmd) }

// RequestExit asks the runtime to wind the session down. The loop ends
// once the session reaches EXITING.
func (a *App) RequestExit() error {
	if !a.started {
		return ErrNotStarted
	}
	return a.mgr.RequestExit()
}

// IsFocused reports whether the session holds input focus.
func (a *App) IsFocused() bool { return a.mgr.IsFocused() }

// Stats returns a snapshot of the App's progress.
func (a *App) Stats() Stats {
	return Stats{
		Frames:  a.stats.Total(),
		FPS:     a.stats.FPS(),
		State:   a.mgr.State(),
		Running: a.mgr.Running(),
	}
}

// Session returns the session manager.
func (a *App) Session() *session.Manager { return a.mgr }

// Close tears down the swapchains, the reference space, the session and the
// instance, in that order. Pending runtime events are applied first so a
// session the runtime already stopped is not ended again. Close is
// idempotent.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.pump != nil {
		if _, err := a.pump.Drain(); err != nil {
			Logger().Debug("xroverlay: drain before close", "app", a.cfg.Name, "error", err)
		}
	}
	var errs []error
	if a.pool != nil {
		if err := a.pool.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.mgr.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	Logger().Info("xroverlay: closed", "app", a.cfg.Name, "frames", a.stats.Total())
	return errors.Join(errs...)
}
