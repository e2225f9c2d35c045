// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/egl"
	"github.com/gogpu/glbridge/internal/gles"
)

// Renderer opens frames on a shared GL context.
//
// The renderer never makes its context current or releases it; every call
// that touches GL requires the context to be current on the calling thread
// and fails with glbridge.ErrRenderBackend otherwise.
//
// Thread Safety: a Renderer may be shared, but GL calls only succeed on the
// thread holding the context, so in practice it is used from one locked
// goroutine at a time.
//
// Example:
//
//	r, err := render.NewRenderer(ctx)
//	if err != nil {
//	    return err
//	}
//	frame, err := r.Render(image.Pt(w, h), render.TransformNormal)
//	if err != nil {
//	    return err
//	}
//	defer frame.Finish()
type Renderer struct {
	ctx    *egl.Context
	native *gles.Context

	mu     sync.Mutex
	open   *Frame
	frames uint64
}

// NewRenderer creates a renderer on ctx. The renderer does not own ctx.
func NewRenderer(ctx *egl.Context) (*Renderer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", glbridge.ErrRenderBackend)
	}
	native, ok := gles.LookupContext(ctx.Handle())
	if !ok {
		return nil, fmt.Errorf("%w: context %#x is closed", glbridge.ErrRenderBackend, ctx.Handle())
	}
	glbridge.Logger().Info("render: renderer created", "context", fmt.Sprintf("%#x", ctx.Handle()))
	return &Renderer{ctx: ctx, native: native}, nil
}

// EGLContext returns the context the renderer draws with.
func (r *Renderer) EGLContext() *egl.Context { return r.ctx }

// WithContext runs fn if the renderer's context is current on the calling
// thread.
func (r *Renderer) WithContext(fn func() error) error {
	if err := r.requireCurrent("with context"); err != nil {
		return err
	}
	return fn()
}

func (r *Renderer) requireCurrent(op string) error {
	if r.native.IsCurrent() {
		return nil
	}
	return fmt.Errorf("%w: %s: context %#x not current on thread %d (held by %d)",
		glbridge.ErrRenderBackend, op, r.ctx.Handle(), gles.CurrentThread(), r.native.CurrentOn())
}

// Render opens a frame for an output of the given size. Only one frame may
// be open at a time; the previous one must be finished first.
func (r *Renderer) Render(size image.Point, t Transform) (*Frame, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: output size %v", glbridge.ErrRenderBackend, size)
	}
	if int(t) >= len(transformNames) {
		return nil, fmt.Errorf("%w: transform %s", glbridge.ErrRenderBackend, t)
	}
	if err := r.requireCurrent("render"); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open != nil {
		return nil, fmt.Errorf("%w: frame %d still open", glbridge.ErrRenderBackend, r.open.id)
	}
	r.frames++
	f := &Frame{r: r, id: r.frames, size: size, transform: t}
	r.open = f
	glbridge.Logger().Debug("render: frame begin", "frame", f.id, "size", size.String(), "transform", t.String())
	return f, nil
}

// RenderTo binds target and opens a frame covering it under t.
func (r *Renderer) RenderTo(target RenderTarget, t Transform) (*Frame, error) {
	if err := r.requireCurrent("render to target"); err != nil {
		return nil, err
	}
	if err := target.Bind(); err != nil {
		return nil, err
	}
	return r.Render(TransformSize(t, image.Pt(target.Width(), target.Height())), t)
}

func (r *Renderer) closeFrame(f *Frame) {
	r.mu.Lock()
	if r.open == f {
		r.open = nil
	}
	r.mu.Unlock()
}

// Frames returns the number of frames opened so far.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Capabilities reports what the context can do.
func (r *Renderer) Capabilities() RendererCapabilities {
	return RendererCapabilities{
		MaxTextureSize:   r.native.Config().MaxTextureSize,
		RenderableBGRA:   r.native.HasExtension(gles.ExtBGRA8888),
		SupportsTextures: true,
	}
}

// DeviceHandle describes the renderer's context to gpucontext consumers.
func (r *Renderer) DeviceHandle() DeviceHandle {
	format := gputypes.TextureFormatRGBA8Unorm
	if r.native.HasExtension(gles.ExtBGRA8888) {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return glDeviceHandle{format: format}
}
