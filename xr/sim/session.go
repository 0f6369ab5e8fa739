// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/xr"
)

// CreateSession creates a session in IDLE. A base session becomes READY at
// once; an overlay becomes READY only while a base session holds focus.
func (c *Compositor) CreateSession(h xr.Instance, info xr.SessionCreateInfo) (sh xr.Session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("CreateSession", uint64(sh), err) }()
	if err := c.fault("CreateSession", uint64(h)); err != nil {
		return 0, err
	}
	inst, err := c.liveInstance(h)
	if err != nil {
		return 0, err
	}
	if info.System != 1 {
		return 0, xr.ErrorHandleInvalid
	}
	if info.Overlay && !slices.Contains(inst.extensions, xr.ExtensionOverlay) {
		return 0, xr.ErrorExtensionDependencyNotEnabled
	}

	s := &session{
		handle:    xr.Session(c.handle()),
		inst:      inst,
		overlay:   info.Overlay,
		placement: info.OverlayPlacement,
	}
	c.sessions[s.handle] = s
	c.setState(s, xr.SessionStateIdle)
	if !s.overlay {
		c.setState(s, xr.SessionStateReady)
	}
	c.arbitrate()
	return s.handle, nil
}

// DestroySession destroys a session with its spaces and swapchains.
func (c *Compositor) DestroySession(sh xr.Session) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("DestroySession", uint64(sh), err) }()
	if err := c.fault("DestroySession", uint64(sh)); err != nil {
		return err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	c.destroySession(s)
	c.arbitrate()
	return nil
}

func (c *Compositor) destroySession(s *session) {
	for h, sp := range c.spaces {
		if sp.sess == s {
			delete(c.spaces, h)
		}
	}
	for h, chain := range c.swapchains {
		if chain.sess == s {
			delete(c.swapchains, h)
		}
	}
	delete(c.sessions, s.handle)
}

// BeginSession starts a READY session. The session moves through
// SYNCHRONIZED and VISIBLE, and on to FOCUSED when it may take input.
func (c *Compositor) BeginSession(sh xr.Session, vc xr.ViewConfigurationType) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("BeginSession", uint64(sh), err) }()
	if err := c.fault("BeginSession", uint64(sh)); err != nil {
		return err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	if vc != c.cfg.viewConfig {
		return xr.ErrorViewConfigurationTypeUnsupported
	}
	if s.running {
		return xr.ErrorSessionRunning
	}
	if s.state != xr.SessionStateReady {
		return xr.ErrorSessionNotReady
	}

	s.running = true
	s.waited = false
	s.inFrame = false
	c.setState(s, xr.SessionStateSynchronized)
	c.setState(s, xr.SessionStateVisible)
	if s.overlay || c.baseFocus {
		c.setState(s, xr.SessionStateFocused)
	}
	c.arbitrate()
	return nil
}

// EndSession ends a STOPPING session. The session returns to IDLE, then
// EXITING if the application asked to exit.
func (c *Compositor) EndSession(sh xr.Session) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EndSession", uint64(sh), err) }()
	if err := c.fault("EndSession", uint64(sh)); err != nil {
		return err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	if !s.running {
		return xr.ErrorSessionNotRunning
	}
	if s.state != xr.SessionStateStopping {
		return xr.ErrorSessionNotStopping
	}
	c.stop(s)
	c.arbitrate()
	return nil
}

// RequestExitSession asks the compositor to wind a running session down.
// A base session is left in STOPPING for the application to end; an overlay
// session is stopped by the compositor and exits on its own.
func (c *Compositor) RequestExitSession(sh xr.Session) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("RequestExitSession", uint64(sh), err) }()
	if err := c.fault("RequestExitSession", uint64(sh)); err != nil {
		return err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	if !s.running {
		return xr.ErrorSessionNotRunning
	}
	s.exitRequested = true
	c.windDown(s)
	if s.overlay {
		c.stop(s)
	}
	c.arbitrate()
	return nil
}

// windDown steps a running session back to STOPPING.
func (c *Compositor) windDown(s *session) {
	if s.state == xr.SessionStateFocused {
		c.setState(s, xr.SessionStateVisible)
	}
	if s.state == xr.SessionStateVisible {
		c.setState(s, xr.SessionStateSynchronized)
	}
	if s.state == xr.SessionStateSynchronized {
		c.setState(s, xr.SessionStateStopping)
	}
}

// stop marks a STOPPING session as no longer running and moves it to IDLE
// (and EXITING when exit was requested).
func (c *Compositor) stop(s *session) {
	s.running = false
	s.inFrame = false
	s.waited = false
	s.submitted = nil
	c.setState(s, xr.SessionStateIdle)
	if s.exitRequested {
		c.setState(s, xr.SessionStateExiting)
	}
}

// SetBaseFocus moves input focus to (true) or away from (false) the base
// session, as when the user switches to another application. Overlays
// follow the base: they are stopped when it loses focus and become READY
// again when it regains it.
func (c *Compositor) SetBaseFocus(focused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseFocus = focused
	for _, s := range c.ordered() {
		if s.overlay || !s.running {
			continue
		}
		switch {
		case focused && s.state == xr.SessionStateVisible:
			c.setState(s, xr.SessionStateFocused)
		case !focused && s.state == xr.SessionStateFocused:
			c.setState(s, xr.SessionStateVisible)
		}
	}
	c.arbitrate()
}

// arbitrate brings overlay sessions in line with the base session's focus.
func (c *Compositor) arbitrate() {
	focused := c.baseFocused()
	for _, s := range c.ordered() {
		if !s.overlay || s.exitRequested {
			continue
		}
		switch {
		case focused && !s.running && (s.state == xr.SessionStateIdle || s.state == xr.SessionStateStopping):
			c.setState(s, xr.SessionStateReady)
		case !focused && s.running:
			c.windDown(s)
			s.running = false
			s.inFrame = false
			s.waited = false
			s.submitted = nil
		case !focused && s.state == xr.SessionStateReady:
			c.setState(s, xr.SessionStateIdle)
		}
	}
}

func (c *Compositor) baseFocused() bool {
	for _, s := range c.sessions {
		if !s.overlay && s.state == xr.SessionStateFocused {
			return true
		}
	}
	return false
}

// ordered returns sessions in composition order: base sessions first, then
// overlays by placement.
func (c *Compositor) ordered() []*session {
	out := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.overlay != b.overlay {
			return !a.overlay
		}
		if a.placement != b.placement {
			return a.placement < b.placement
		}
		return a.handle < b.handle
	})
	return out
}

func (c *Compositor) setState(s *session, state xr.SessionState) {
	s.state = state
	s.inst.events = append(s.inst.events, &xr.SessionStateChanged{
		Session: s.handle,
		State:   state,
		Time:    c.now(),
	})
	xlog.Logger().Debug("sim: session state", "session", s.handle, "overlay", s.overlay, "state", state)
}

// LoseInstance signals that every instance is about to be lost.
func (c *Compositor) LoseInstance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	loss := c.now() + xr.Time(time.Second)
	for _, inst := range c.instances {
		inst.lost = true
		inst.events = append(inst.events, &xr.InstanceLossPending{LossTime: loss})
	}
	for _, s := range c.ordered() {
		c.setState(s, xr.SessionStateLossPending)
	}
}

// Spaces

// CreateReferenceSpace creates a VIEW, LOCAL or STAGE space.
func (c *Compositor) CreateReferenceSpace(sh xr.Session, kind xr.ReferenceSpaceType, pose xr.Pose) (h xr.Space, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("CreateReferenceSpace", uint64(h), err) }()
	if err := c.fault("CreateReferenceSpace", uint64(sh)); err != nil {
		return 0, err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return 0, xr.ErrorHandleInvalid
	}
	switch kind {
	case xr.ReferenceSpaceView, xr.ReferenceSpaceLocal, xr.ReferenceSpaceStage:
	default:
		return 0, xr.ErrorReferenceSpaceUnsupported
	}
	sp := &space{handle: xr.Space(c.handle()), sess: s, kind: kind, pose: pose}
	c.spaces[sp.handle] = sp
	return sp.handle, nil
}

// DestroySpace destroys a space.
func (c *Compositor) DestroySpace(h xr.Space) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("DestroySpace", uint64(h), err) }()
	if err := c.fault("DestroySpace", uint64(h)); err != nil {
		return err
	}
	if _, ok := c.spaces[h]; !ok {
		return xr.ErrorHandleInvalid
	}
	delete(c.spaces, h)
	return nil
}

// Frames

// WaitFrame paces the caller on the display period and reports whether the
// frame should be rendered: base sessions render while VISIBLE or FOCUSED,
// overlays only while FOCUSED.
func (c *Compositor) WaitFrame(ctx context.Context, sh xr.Session) (xr.FrameState, error) {
	c.mu.Lock()
	s, err := c.frameSession("WaitFrame", sh)
	if err != nil {
		c.record("WaitFrame", uint64(sh), err)
		c.mu.Unlock()
		return xr.FrameState{}, err
	}
	var wait time.Duration
	if c.cfg.framePeriod > 0 && !s.lastWait.IsZero() {
		wait = time.Until(s.lastWait.Add(c.cfg.framePeriod))
	}
	c.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		c.record("WaitFrame", uint64(sh), err)
		return xr.FrameState{}, err
	}
	if s, err = c.runningSession(sh); err != nil {
		c.record("WaitFrame", uint64(sh), err)
		return xr.FrameState{}, err
	}

	s.lastWait = time.Now()
	s.waited = true
	display := c.now() + xr.Time(c.cfg.framePeriod)
	if display <= s.lastDisplay {
		display = s.lastDisplay + 1
	}
	s.lastDisplay = display
	c.record("WaitFrame", uint64(sh), nil)
	return xr.FrameState{
		PredictedDisplayTime:   display,
		PredictedDisplayPeriod: c.cfg.framePeriod,
		ShouldRender:           c.shouldRender(s),
	}, nil
}

func (c *Compositor) shouldRender(s *session) bool {
	if s.overlay {
		return s.state == xr.SessionStateFocused
	}
	return s.state == xr.SessionStateVisible || s.state == xr.SessionStateFocused
}

// BeginFrame opens the frame returned by the last WaitFrame.
func (c *Compositor) BeginFrame(sh xr.Session) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("BeginFrame", uint64(sh), err) }()
	s, err := c.frameSession("BeginFrame", sh)
	if err != nil {
		return err
	}
	if !s.waited || s.inFrame {
		return xr.ErrorCallOrderInvalid
	}
	s.waited = false
	s.inFrame = true
	return nil
}

// EndFrame submits the frame's layers. An empty layer list is valid.
func (c *Compositor) EndFrame(sh xr.Session, info xr.FrameEndInfo) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EndFrame", uint64(sh), err) }()
	s, err := c.frameSession("EndFrame", sh)
	if err != nil {
		return err
	}
	if !s.inFrame {
		return xr.ErrorCallOrderInvalid
	}
	if !slices.Contains(c.cfg.blendModes, info.BlendMode) {
		return xr.ErrorEnvironmentBlendModeUnsupported
	}
	submitted, err := c.resolveLayers(s, info.Layers)
	if err != nil {
		return err
	}
	s.inFrame = false
	s.frames++
	s.lastEnd = info
	s.lastEnd.Layers = slices.Clone(info.Layers)
	s.submitted = submitted
	return nil
}

// LocateViews returns eye poses offset by half the IPD either side of the
// space origin, all with the configured fov.
func (c *Compositor) LocateViews(sh xr.Session, info xr.ViewLocateInfo) (flags xr.ViewStateFlags, views []xr.View, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("LocateViews", uint64(sh), err) }()
	if err := c.fault("LocateViews", uint64(sh)); err != nil {
		return 0, nil, err
	}
	s, ok := c.sessions[sh]
	if !ok {
		return 0, nil, xr.ErrorHandleInvalid
	}
	if info.ViewConfiguration != c.cfg.viewConfig {
		return 0, nil, xr.ErrorViewConfigurationTypeUnsupported
	}
	if sp, ok := c.spaces[info.Space]; !ok || sp.sess != s {
		return 0, nil, xr.ErrorHandleInvalid
	}

	n := c.viewCount()
	views = make([]xr.View, n)
	for i := range views {
		pose := xr.IdentityPose()
		if n == 2 {
			pose.Position[0] = (float32(i) - 0.5) * c.cfg.ipd
		}
		views[i] = xr.View{Pose: pose, Fov: c.cfg.eyeFov}
	}
	flags = xr.ViewStateOrientationValid | xr.ViewStatePositionValid |
		xr.ViewStateOrientationTracked | xr.ViewStatePositionTracked
	return flags, views, nil
}

func (c *Compositor) frameSession(op string, sh xr.Session) (*session, error) {
	if err := c.fault(op, uint64(sh)); err != nil {
		return nil, err
	}
	return c.runningSession(sh)
}

func (c *Compositor) runningSession(sh xr.Session) (*session, error) {
	s, ok := c.sessions[sh]
	if !ok {
		return nil, xr.ErrorHandleInvalid
	}
	if !s.running {
		return nil, xr.ErrorSessionNotRunning
	}
	return s, nil
}
