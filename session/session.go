// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package session owns the connection to the compositor runtime: instance
// creation with capability negotiation, session and reference-space
// creation, and the session state machine.
//
// Base and overlay sessions share one state machine and diverge only at
// STOPPING: a base session is ended at once, while an overlay session is
// kept alive so it can be begun again when the base regains focus.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/xr"
)

// Errors returned by the manager.
var (
	// ErrUnsupportedExtension is returned before any instance is created when
	// a required extension is missing from the runtime's list.
	ErrUnsupportedExtension = errors.New("session: unsupported extension")

	ErrInstanceFailed = errors.New("session: instance creation failed")
	ErrSessionFailed  = errors.New("session: session creation failed")
	ErrNoInstance     = errors.New("session: no instance")
	ErrNoSession      = errors.New("session: no session")
	ErrNotReady       = errors.New("session: not ready")
	ErrBeginFailed    = errors.New("session: begin failed")
)

// Role selects base or overlay behaviour.
type Role int

const (
	// Base owns exclusive primary rendering.
	Base Role = iota
	// Overlay submits layers above the base session while it holds focus.
	Overlay
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case Base:
		return "base"
	case Overlay:
		return "overlay"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Runtime is the part of xr.Runtime the manager drives.
type Runtime interface {
	xr.InstanceAPI
	xr.SessionAPI
}

// Config parameterises a Manager.
type Config struct {
	Role Role

	// AppName identifies the application to the runtime.
	AppName string

	// ViewConfiguration is the preferred view configuration. Zero takes the
	// runtime's first.
	ViewConfiguration xr.ViewConfigurationType

	// BlendModes is the blend-mode preference. Nil means alpha-blend, then
	// additive, then opaque.
	BlendModes []xr.EnvironmentBlendMode

	// ReferenceSpace is the application space. Zero means LOCAL.
	ReferenceSpace xr.ReferenceSpaceType

	// OverlayPlacement orders overlay sessions; higher is on top.
	OverlayPlacement uint32
}

// Manager owns one instance, one session and its reference space.
//
// The frame loop drives a Manager from a single goroutine. State, Running
// and IsFocused may be read from any goroutine.
type Manager struct {
	rt  Runtime
	cfg Config

	instance   xr.Instance
	system     xr.SystemID
	session    xr.Session
	space      xr.Space
	viewConfig xr.ViewConfigurationType
	views      []xr.ViewConfigurationView
	blendMode  xr.EnvironmentBlendMode

	state   atomic.Int32
	running atomic.Bool
	exit    atomic.Bool
}

// NewManager creates a manager. No runtime call is made until
// CreateInstance.
func NewManager(rt Runtime, cfg Config) *Manager {
	if cfg.ReferenceSpace == 0 {
		cfg.ReferenceSpace = xr.ReferenceSpaceLocal
	}
	return &Manager{rt: rt, cfg: cfg}
}

// CreateInstance checks every requested extension against the runtime's
// list, then creates the instance and discovers the system, its view
// configuration and blend mode. Overlay managers always require
// XR_EXTX_overlay.
func (m *Manager) CreateInstance(extensions ...string) (xr.Instance, error) {
	log := xlog.Logger()
	required := slices.Clone(extensions)
	if m.cfg.Role == Overlay && !slices.Contains(required, xr.ExtensionOverlay) {
		required = append(required, xr.ExtensionOverlay)
	}

	available, err := m.rt.EnumerateInstanceExtensions()
	if err != nil {
		log.Error("session: enumerate extensions", "op", "EnumerateInstanceExtensions", "result", xr.ResultOf(err))
		return 0, fmt.Errorf("%w: enumerate extensions: %w", ErrInstanceFailed, err)
	}
	for _, ext := range required {
		if !slices.Contains(available, ext) {
			log.Error("session: extension missing", "extension", ext, "role", m.cfg.Role)
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
		}
	}

	inst, err := m.rt.CreateInstance(xr.InstanceCreateInfo{
		Application: xr.ApplicationInfo{ApplicationName: m.cfg.AppName, EngineName: "xroverlay"},
		Extensions:  required,
	})
	if err != nil {
		log.Error("session: create instance", "op", "CreateInstance", "result", xr.ResultOf(err))
		return 0, fmt.Errorf("%w: %w", ErrInstanceFailed, err)
	}
	m.instance = inst

	if err := m.discover(); err != nil {
		log.Error("session: system discovery", "error", err)
		return inst, fmt.Errorf("%w: %w", ErrInstanceFailed, err)
	}
	log.Info("session: instance created", "role", m.cfg.Role, "viewConfig", m.viewConfig,
		"views", len(m.views), "blend", m.blendMode)
	return inst, nil
}

func (m *Manager) discover() error {
	sys, err := m.rt.GetSystem(m.instance, xr.FormFactorHeadMountedDisplay)
	if err != nil {
		return fmt.Errorf("get system: %w", err)
	}
	m.system = sys

	configs, err := m.rt.EnumerateViewConfigurations(m.instance, sys)
	if err != nil {
		return fmt.Errorf("enumerate view configurations: %w", err)
	}
	if len(configs) == 0 {
		return fmt.Errorf("no view configurations: %w", xr.ErrorViewConfigurationTypeUnsupported)
	}
	m.viewConfig = configs[0]
	if m.cfg.ViewConfiguration != 0 {
		if !slices.Contains(configs, m.cfg.ViewConfiguration) {
			return fmt.Errorf("view configuration %v: %w", m.cfg.ViewConfiguration, xr.ErrorViewConfigurationTypeUnsupported)
		}
		m.viewConfig = m.cfg.ViewConfiguration
	}

	if m.views, err = m.rt.EnumerateViewConfigurationViews(m.instance, sys, m.viewConfig); err != nil {
		return fmt.Errorf("enumerate views: %w", err)
	}
	modes, err := m.rt.EnumerateEnvironmentBlendModes(m.instance, sys, m.viewConfig)
	if err != nil {
		return fmt.Errorf("enumerate blend modes: %w", err)
	}
	if m.blendMode, err = xr.SelectBlendMode(modes, m.cfg.BlendModes); err != nil {
		return fmt.Errorf("select blend mode from %v: %w", modes, err)
	}
	return nil
}

// Initialize binds the host's graphics context and creates the session and
// its reference space. The session starts in IDLE; the runtime announces
// READY through an event.
func (m *Manager) Initialize(gfx render.GraphicsContext) error {
	if m.instance == 0 {
		return ErrNoInstance
	}
	log := xlog.Logger()
	if err := gfx.MakeCurrent(); err != nil {
		return fmt.Errorf("%w: make current: %w", ErrSessionFailed, err)
	}

	s, err := m.rt.CreateSession(m.instance, xr.SessionCreateInfo{
		System:           m.system,
		Graphics:         render.Binding(gfx),
		Overlay:          m.cfg.Role == Overlay,
		OverlayPlacement: m.cfg.OverlayPlacement,
	})
	if err != nil {
		log.Error("session: create session", "op", "CreateSession", "result", xr.ResultOf(err), "role", m.cfg.Role)
		return fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}
	m.session = s
	m.setState(xr.SessionStateIdle)

	sp, err := m.rt.CreateReferenceSpace(s, m.cfg.ReferenceSpace, xr.IdentityPose())
	if err != nil {
		log.Error("session: create space", "op", "CreateReferenceSpace", "result", xr.ResultOf(err))
		return fmt.Errorf("%w: reference space: %w", ErrSessionFailed, err)
	}
	m.space = sp
	log.Info("session: created", "role", m.cfg.Role, "session", s, "space", sp)
	return nil
}

// BeginSession begins a READY session. On failure running stays false and
// the next READY transition retries.
func (m *Manager) BeginSession() error {
	if m.session == 0 {
		return ErrNoSession
	}
	if m.State() != xr.SessionStateReady {
		return fmt.Errorf("%w: state %v", ErrNotReady, m.State())
	}
	if err := m.rt.BeginSession(m.session, m.viewConfig); err != nil {
		xlog.Logger().Warn("session: begin failed", "op", "BeginSession", "result", xr.ResultOf(err), "role", m.cfg.Role)
		return fmt.Errorf("%w: %w", ErrBeginFailed, err)
	}
	m.running.Store(true)
	xlog.Logger().Info("session: running", "role", m.cfg.Role)
	return nil
}

// OnStateChanged applies a session state transition.
//
//	READY     begin; running on success
//	STOPPING  running=false; a base session is ended, an overlay kept alive
//	EXITING   running=false; end a still-running session; request exit
//	LOSS_PENDING  running=false; request exit
//
// Other states are recorded only.
func (m *Manager) OnStateChanged(state xr.SessionState) {
	prev := m.setState(state)
	log := xlog.Logger()
	log.Info("session: state changed", "role", m.cfg.Role, "from", prev, "to", state)

	switch state {
	case xr.SessionStateReady:
		// Failures are logged by BeginSession.
		_ = m.BeginSession()

	case xr.SessionStateStopping:
		if !m.running.Swap(false) {
			return
		}
		if m.cfg.Role == Base {
			m.endSession()
		}

	case xr.SessionStateExiting:
		if m.running.Swap(false) {
			m.endSession()
		}
		m.exit.Store(true)

	case xr.SessionStateLossPending:
		m.running.Store(false)
		m.exit.Store(true)
	}
}

func (m *Manager) endSession() {
	if err := m.rt.EndSession(m.session); err != nil {
		xlog.Logger().Warn("session: end failed", "op", "EndSession", "result", xr.ResultOf(err), "role", m.cfg.Role)
	}
}

func (m *Manager) setState(state xr.SessionState) xr.SessionState {
	return xr.SessionState(m.state.Swap(int32(state)))
}

// RequestExit asks the runtime to wind the session down. The runtime then
// drives STOPPING and EXITING through events.
func (m *Manager) RequestExit() error {
	if !m.running.Load() {
		return nil
	}
	if err := m.rt.RequestExitSession(m.session); err != nil {
		return fmt.Errorf("session: request exit: %w", err)
	}
	return nil
}

// RequestTermination records that the host should terminate.
func (m *Manager) RequestTermination() { m.exit.Store(true) }

// Shutdown tears down the space, the session and the instance, in that
// order. A session that is still running is ended first; one the runtime
// already stopped, without the STOPPING event having been applied, is not
// an error. Swapchains must be destroyed before calling Shutdown.
func (m *Manager) Shutdown() error {
	var errs []error
	if m.running.Swap(false) {
		err := m.rt.RequestExitSession(m.session)
		switch {
		case errors.Is(err, xr.ErrorSessionNotRunning):
			xlog.Logger().Debug("session: already stopped by the runtime", "role", m.cfg.Role)
		case err != nil:
			errs = append(errs, fmt.Errorf("session: request exit: %w", err))
		case m.cfg.Role == Base:
			if err := m.rt.EndSession(m.session); err != nil && !errors.Is(err, xr.ErrorSessionNotRunning) {
				errs = append(errs, fmt.Errorf("session: end: %w", err))
			}
		}
	}
	if m.space != 0 {
		if err := m.rt.DestroySpace(m.space); err != nil {
			errs = append(errs, fmt.Errorf("session: destroy space: %w", err))
		}
		m.space = 0
	}
	if m.session != 0 {
		if err := m.rt.DestroySession(m.session); err != nil {
			errs = append(errs, fmt.Errorf("session: destroy session: %w", err))
		}
		m.session = 0
	}
	if m.instance != 0 {
		if err := m.rt.DestroyInstance(m.instance); err != nil {
			errs = append(errs, fmt.Errorf("session: destroy instance: %w", err))
		}
		m.instance = 0
	}
	xlog.Logger().Info("session: shut down", "role", m.cfg.Role)
	return errors.Join(errs...)
}

// IsFocused reports whether the session currently holds input focus.
func (m *Manager) IsFocused() bool { return m.State() == xr.SessionStateFocused }

// State returns the last applied session state.
func (m *Manager) State() xr.SessionState { return xr.SessionState(m.state.Load()) }

// Running reports whether frames may be scheduled.
func (m *Manager) Running() bool { return m.running.Load() }

// ExitRequested reports whether the host should terminate.
func (m *Manager) ExitRequested() bool { return m.exit.Load() }

// Role returns the configured role.
func (m *Manager) Role() Role { return m.cfg.Role }

// Instance returns the instance handle.
func (m *Manager) Instance() xr.Instance { return m.instance }

// Session returns the session handle.
func (m *Manager) Session() xr.Session { return m.session }

// Space returns the reference space handle.
func (m *Manager) Space() xr.Space { return m.space }

// ViewConfiguration returns the selected view configuration.
func (m *Manager) ViewConfiguration() xr.ViewConfigurationType { return m.viewConfig }

// Views returns the view configuration views.
func (m *Manager) Views() []xr.ViewConfigurationView { return m.views }

// BlendMode returns the selected environment blend mode.
func (m *Manager) BlendMode() xr.EnvironmentBlendMode { return m.blendMode }
