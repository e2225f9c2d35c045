// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws frames into whatever framebuffer is bound on a
// shared GL context.
//
// # Key Principle
//
// The renderer RECEIVES a context from the host, it does NOT create one. It
// talks to the native context directly and never changes which thread the
// context is current on: the host activates the context (usually through
// mediagl.Context.Activate) and binds a render target, then opens a frame.
//
// # Frames
//
// A Frame is one render pass. At most one frame is open per renderer:
//
//	r, _ := render.NewRenderer(eglContext)
//	frame, _ := r.Render(image.Pt(1920, 1080), render.TransformNormal)
//	_ = frame.Clear(render.Red, []image.Rectangle{image.Rect(0, 0, 1920, 1080)})
//	_ = frame.Finish()
//
// Using a frame after Finish fails with glbridge.ErrUseAfterFinish and
// leaves the renderer free to open the next frame.
//
// # Coordinates
//
// Regions are given in output pixels, rows top to bottom, and must lie
// inside the size passed to Render. The frame maps them through its
// Transform into framebuffer pixels.
package render
