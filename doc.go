// Package xroverlay renders pose-tracked overlay imagery into a
// head-mounted-display compositor with the XR_EXTX_overlay extension,
// alongside a base session that owns primary rendering.
//
// # Overview
//
// An App is one session. A base App renders the full scene; an overlay App
// submits a layer above it and may only render while the base session
// holds compositor focus. Both run the same state machine, configured by a
// small Config: role, swapchain size, blend-mode preference and layer kind.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/xroverlay"
//	    "github.com/gogpu/xroverlay/render"
//	    "github.com/gogpu/xroverlay/xr/sim"
//	)
//
//	rt := sim.New()
//	app, err := xroverlay.New(rt, &render.HeadlessContext{}, render.NewPanelScene(),
//	    xroverlay.Config{Name: "panel", Role: xroverlay.Overlay, Layer: xroverlay.LayerQuad})
//	if err != nil {
//	    return err
//	}
//	return app.Run(ctx)
//
// # Loop
//
// Each iteration consumes queued host commands, drains every pending runtime
// event into the session state machine, and then runs one frame:
//
//	WaitFrame -> BeginFrame -> per view: Acquire, Wait, render, Release -> EndFrame
//
// EndFrame is called for every begun frame, with no layers when the
// runtime says not to render or no complete layer could be built. A
// failure in one view costs that frame's layer, never the loop.
//
// # Architecture
//
// The library is organized into:
//   - xr: the runtime call and event contract, and a backend registry
//   - xr/sim: an in-memory compositor implementing the contract
//   - session: instance and session creation, the session state machine
//   - swapchain: per-view image rings and their render targets
//   - frame: the per-frame protocol and layer assembly
//   - event: event draining and the host command queue
//   - render: graphics context, render targets and scenes
//   - launch: starting overlays once the base session is focused
//
// # Concurrency
//
// One goroutine owns an App's session, swapchains and graphics context.
// Base and overlay Apps in one process share nothing but the runtime and
// are synchronized only through its focus arbitration.
package xroverlay

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
