// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// Frame is one render pass on the bound framebuffer. It is opened by
// Renderer.Render and ends with Finish.
type Frame struct {
	r         *Renderer
	id        uint64
	size      image.Point
	transform Transform
	finished  bool
}

// Size returns the output size of the frame.
func (f *Frame) Size() image.Point { return f.size }

// Bounds returns the output rectangle of the frame.
func (f *Frame) Bounds() image.Rectangle { return image.Rectangle{Max: f.size} }

// Transform returns the output transform of the frame.
func (f *Frame) Transform() Transform { return f.transform }

func (f *Frame) check(op string) error {
	if f.finished {
		return fmt.Errorf("%w: %s on frame %d", glbridge.ErrUseAfterFinish, op, f.id)
	}
	return f.r.requireCurrent(op)
}

// checkTarget fails with glbridge.ErrFramebufferIncomplete unless the bound
// framebuffer can be drawn to.
func (f *Frame) checkTarget(op string) error {
	status, err := f.r.native.CheckFramebufferStatus(gles.FRAMEBUFFER)
	if err != nil {
		return f.glError(op, err)
	}
	if status != gles.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: %s: status %#x", glbridge.ErrFramebufferIncomplete, op, uint32(status))
	}
	return nil
}

func (f *Frame) glError(op string, err error) error {
	var glErr gles.Error
	if errors.As(err, &glErr) && gles.Enum(glErr) == gles.INVALID_FRAMEBUFFER_OPERATION {
		return fmt.Errorf("%w: %s: %w", glbridge.ErrFramebufferIncomplete, op, err)
	}
	return fmt.Errorf("%w: %s: %w", glbridge.ErrRenderBackend, op, err)
}

// Clear fills each region with c. Regions are in output pixels and must
// lie within the frame size; all of them are checked before anything is
// drawn. Pixels outside the regions are left untouched.
func (f *Frame) Clear(c Color, regions []image.Rectangle) error {
	if err := f.check("clear"); err != nil {
		return err
	}
	bounds := image.Rectangle{Max: f.size}
	for _, rg := range regions {
		if rg.Min.X < 0 || rg.Min.Y < 0 || rg.Max.X > f.size.X || rg.Max.Y > f.size.Y || rg.Dx() < 0 || rg.Dy() < 0 {
			return fmt.Errorf("%w: %v outside %v", glbridge.ErrInvalidRegion, rg, bounds)
		}
	}
	if err := f.checkTarget("clear"); err != nil {
		return err
	}

	gl := f.r.native
	if err := gl.ClearColor(c.R, c.G, c.B, c.A); err != nil {
		return f.glError("clear", err)
	}
	if err := gl.Enable(gles.SCISSOR_TEST); err != nil {
		return f.glError("clear", err)
	}
	defer func() { _ = gl.Disable(gles.SCISSOR_TEST) }()

	for _, rg := range regions {
		if rg.Empty() {
			continue
		}
		d := TransformRect(f.transform, rg, f.size)
		if err := gl.Scissor(d.Min.X, d.Min.Y, d.Dx(), d.Dy()); err != nil {
			return f.glError("clear", err)
		}
		if err := gl.Clear(gles.COLOR_BUFFER_BIT); err != nil {
			return f.glError("clear", err)
		}
	}
	return nil
}

// RenderTexture draws src of tex into dst of the output, scaled, blended
// over the existing pixels with the given opacity. dst may extend past the
// output; it is clipped.
func (f *Frame) RenderTexture(tex *Texture, src, dst image.Rectangle, alpha float32) error {
	if err := f.check("render texture"); err != nil {
		return err
	}
	if tex == nil || tex.released {
		return fmt.Errorf("%w: render texture: texture released", glbridge.ErrRenderBackend)
	}
	if tex.r != f.r {
		return fmt.Errorf("%w: render texture: texture from another renderer", glbridge.ErrRenderBackend)
	}
	if src.Empty() || !src.In(image.Rectangle{Max: tex.size}) {
		return fmt.Errorf("%w: source %v outside texture %v", glbridge.ErrInvalidRegion, src, tex.size)
	}
	if err := f.checkTarget("render texture"); err != nil {
		return err
	}
	if tex.sync != nil {
		if err := tex.sync(); err != nil {
			return err
		}
	}

	gl := f.r.native
	d := TransformRect(f.transform, dst, f.size)
	if f.transform == TransformNormal {
		if err := gl.DrawTexture(tex.name, src, d, alpha); err != nil {
			return f.glError("render texture", err)
		}
		return nil
	}

	// The driver only scales, so reoriented draws go through a scratch
	// texture holding the source already transformed.
	scratch, sr, err := f.reoriented(tex, src)
	if err != nil {
		return f.glError("render texture", err)
	}
	defer func() { _ = gl.DeleteTexture(scratch) }()
	if err := gl.DrawTexture(scratch, sr, d, alpha); err != nil {
		return f.glError("render texture", err)
	}
	return nil
}

func (f *Frame) reoriented(tex *Texture, src image.Rectangle) (gles.Texture, image.Rectangle, error) {
	gl := f.r.native
	w, h, format, err := gl.TextureSize(tex.name)
	if err != nil {
		return gles.Texture{}, image.Rectangle{}, err
	}
	all := make([]byte, w*h*4)
	if err := gl.ReadTexture(tex.name, all); err != nil {
		return gles.Texture{}, image.Rectangle{}, err
	}
	sub := make([]byte, 0, src.Dx()*src.Dy()*4)
	for y := src.Min.Y; y < src.Max.Y; y++ {
		sub = append(sub, all[(y*w+src.Min.X)*4:(y*w+src.Max.X)*4]...)
	}
	pix, ow, oh := transformPixels(f.transform, sub, src.Dx(), src.Dy())

	scratch, err := gl.GenTexture()
	if err != nil {
		return gles.Texture{}, image.Rectangle{}, err
	}
	if err := gl.TexImage2D(scratch, gles.TEXTURE_2D, format, ow, oh); err != nil {
		_ = gl.DeleteTexture(scratch)
		return gles.Texture{}, image.Rectangle{}, err
	}
	if err := gl.TexSubImage2D(scratch, format, pix); err != nil {
		_ = gl.DeleteTexture(scratch)
		return gles.Texture{}, image.Rectangle{}, err
	}
	return scratch, image.Rect(0, 0, ow, oh), nil
}

// Finish waits for the frame's commands to complete and ends it, so the
// target can be read back afterwards. The renderer can open the next frame
// even if finishing failed. Finishing twice fails
// with glbridge.ErrUseAfterFinish.
func (f *Frame) Finish() error {
	if f.finished {
		return fmt.Errorf("%w: finish on frame %d", glbridge.ErrUseAfterFinish, f.id)
	}
	f.finished = true
	defer f.r.closeFrame(f)

	if err := f.r.requireCurrent("finish"); err != nil {
		return err
	}
	if err := f.r.native.Finish(); err != nil {
		return f.glError("finish", err)
	}
	glbridge.Logger().Debug("render: frame end", "frame", f.id)
	return nil
}

// Finished reports whether Finish has been called.
func (f *Frame) Finished() bool { return f.finished }
