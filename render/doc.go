// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render binds runtime swapchain images as render targets and draws
// the demo content into them.
//
// # Key Principle
//
// xroverlay RECEIVES a graphics context from the host application, it does
// NOT create its own. The host owns display, context and surface setup; the
// session core only hands the current display and context to the runtime.
//
// # Core Interfaces
//
//   - GraphicsContext: the host's current display and context
//   - RenderTarget: where one view's output goes (PixmapTarget, SwapchainTarget)
//   - Scene: draws one view into a target
//
// # Scenes
//
//   - ClearScene: solid color, the base background and the green overlay panel
//   - QuadsScene: flat 2D quads in NDC, with tap hit testing
//   - CubeScene: a depth-tested spinning cube using the eye's pose and fov
//
// Scenes render on the CPU into image-backed targets. GPU hosts supply their
// own Scene implementations that draw through TextureView.
package render
