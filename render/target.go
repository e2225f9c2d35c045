// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/mediagl"
)

// RenderTarget defines where rendering output goes.
//
// Bind makes the target the active framebuffer of the shared context; the
// renderer then draws into it until the host unbinds it.
type RenderTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Bind makes the target the active framebuffer.
	Bind() error
}

// MemoryTarget renders into shared GL memory through a framebuffer.
//
// Example:
//
//	target, _ := render.NewMemoryTarget(alloc, info)
//	defer target.Release()
//	frame, _ := renderer.RenderTo(target, render.TransformNormal)
//	_ = frame.Clear(render.Red, []image.Rectangle{frame.Bounds()})
//	_ = frame.Finish()
//	_ = target.Unbind()
//	pix, _ := target.ReadPixels()
type MemoryTarget struct {
	mem *mediagl.Memory
	fb  *mediagl.Framebuffer
}

// NewMemoryTarget allocates memory for info and attaches it to a new
// framebuffer. The framebuffer must be complete.
func NewMemoryTarget(alloc *mediagl.Allocator, info mediagl.VideoInfo) (*MemoryTarget, error) {
	mem, err := alloc.Allocate(mediagl.AllocationParams{Info: info})
	if err != nil {
		return nil, err
	}
	t, err := NewMemoryTargetFrom(mem)
	mem.Unref()
	return t, err
}

// NewMemoryTargetFrom attaches existing memory to a new framebuffer. The
// target holds its own reference to mem.
func NewMemoryTargetFrom(mem *mediagl.Memory) (*MemoryTarget, error) {
	fb, err := mediagl.NewFramebuffer(mem.Context())
	if err != nil {
		return nil, err
	}
	if err := fb.Attach(mediagl.ColorAttachment0, mem); err != nil {
		_ = fb.Release()
		return nil, err
	}
	status, err := fb.Status()
	if err == nil {
		err = status.Err()
	}
	if err != nil {
		_ = fb.Release()
		return nil, err
	}
	return &MemoryTarget{mem: mem, fb: fb}, nil
}

// Width returns the target width in pixels.
func (t *MemoryTarget) Width() int { return t.mem.Info().Width }

// Height returns the target height in pixels.
func (t *MemoryTarget) Height() int { return t.mem.Info().Height }

// Format returns the pixel format of the target.
func (t *MemoryTarget) Format() gputypes.TextureFormat { return t.mem.Info().TextureFormat() }

// Memory returns the attached memory.
func (t *MemoryTarget) Memory() *mediagl.Memory { return t.mem }

// Framebuffer returns the framebuffer the memory is attached to.
func (t *MemoryTarget) Framebuffer() *mediagl.Framebuffer { return t.fb }

// Bind makes the target the active framebuffer.
func (t *MemoryTarget) Bind() error { return t.fb.Bind() }

// Unbind clears the active framebuffer if it is this target's.
func (t *MemoryTarget) Unbind() error {
	if t.mem.Context().BoundFramebuffer() != t.fb {
		return nil
	}
	return t.mem.Context().ClearFramebuffer()
}

// ReadPixels returns a copy of the target's pixels. The target must not be
// bound.
func (t *MemoryTarget) ReadPixels() ([]byte, error) {
	if t.mem.Context().BoundFramebuffer() == t.fb {
		return nil, fmt.Errorf("%w: target still bound", glbridge.ErrMap)
	}
	return t.mem.ReadPixels()
}

// Release unbinds the target and drops its memory reference.
func (t *MemoryTarget) Release() error {
	return t.fb.Release()
}

// Ensure MemoryTarget implements RenderTarget.
var _ RenderTarget = (*MemoryTarget)(nil)
