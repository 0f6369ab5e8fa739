// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package xr defines the call and event contract between xroverlay and an
// XR compositor runtime.
//
// The contract mirrors the OpenXR ABI closely enough that a cgo binding to a
// real loader can implement Runtime directly: handles are opaque integers,
// every failing call reports a Result code, and asynchronous notifications
// arrive through PollEvent. The sub-package sim provides an in-memory
// compositor implementing the same contract.
//
// # Components
//
// Each xroverlay component accepts only the slice of the runtime it needs:
//
//   - InstanceAPI: extension discovery, instance and system queries
//   - SessionAPI: session lifecycle and reference spaces
//   - SwapchainAPI: swapchain creation and the acquire/wait/release cycle
//   - FrameAPI: wait/begin/end frame and view location
//   - EventAPI: non-blocking event polling
//
// Runtime composes all of them.
//
// # Overlay sessions
//
// Sessions created with SessionCreateInfo.Overlay set request the
// XR_EXTX_overlay placement. The runtime only lets such sessions render while
// a base (non-overlay) session holds compositor focus.
package xr
