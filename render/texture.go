// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
	"github.com/gogpu/glbridge/mediagl"
)

// Texture is a GL texture the renderer can draw from. Textures created by
// ImportMemory and ImportImage are owned by the renderer; textures from
// ImportGLMemory borrow the memory's texture.
type Texture struct {
	r        *Renderer
	name     gles.Texture
	size     image.Point
	format   gputypes.TextureFormat
	owned    bool
	released bool
	sync     func() error
}

// Size returns the texture size in pixels.
func (t *Texture) Size() image.Point { return t.size }

// Format returns the texel layout.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// ImportMemory uploads pix, tightly packed rows of 4-byte pixels in the
// given format, into a new texture.
func (r *Renderer) ImportMemory(pix []byte, size image.Point, format gputypes.TextureFormat) (*Texture, error) {
	if err := r.requireCurrent("import memory"); err != nil {
		return nil, err
	}
	var glFormat gles.Enum
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		glFormat = gles.RGBA
	case gputypes.TextureFormatBGRA8Unorm:
		glFormat = gles.BGRA_EXT
	default:
		return nil, fmt.Errorf("%w: texture format %d", glbridge.ErrUnsupportedFormat, uint32(format))
	}
	if size.X <= 0 || size.Y <= 0 || len(pix) < size.X*size.Y*4 {
		return nil, fmt.Errorf("%w: %d bytes for %v", glbridge.ErrUnsupportedFormat, len(pix), size)
	}

	gl := r.native
	name, err := gl.GenTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: import memory: %w", glbridge.ErrAllocation, err)
	}
	if err := gl.TexImage2D(name, gles.TEXTURE_2D, glFormat, size.X, size.Y); err != nil {
		_ = gl.DeleteTexture(name)
		return nil, fmt.Errorf("%w: import memory: %w", glbridge.ErrAllocation, err)
	}
	if err := gl.TexSubImage2D(name, glFormat, pix); err != nil {
		_ = gl.DeleteTexture(name)
		return nil, fmt.Errorf("%w: import memory: %w", glbridge.ErrAllocation, err)
	}
	return &Texture{r: r, name: name, size: size, format: format, owned: true}, nil
}

// ImportImage uploads img as an RGBA texture.
func (r *Renderer) ImportImage(img image.Image) (*Texture, error) {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return r.ImportMemory(rgba.Pix, b.Size(), gputypes.TextureFormatRGBA8Unorm)
}

// ImportGLMemory lets the renderer sample mem without copying it. Pending
// host writes to mem are uploaded before each draw.
func (r *Renderer) ImportGLMemory(mem *mediagl.Memory) (*Texture, error) {
	if mem.Context().Handle() != r.ctx.Handle() {
		return nil, fmt.Errorf("%w: memory belongs to context %#x", glbridge.ErrRenderBackend, mem.Context().Handle())
	}
	if mem.Released() {
		return nil, fmt.Errorf("%w: memory released", glbridge.ErrRenderBackend)
	}
	info := mem.Info()
	return &Texture{
		r:      r,
		name:   gles.Texture{V: mem.TextureID()},
		size:   image.Pt(info.Width, info.Height),
		format: info.TextureFormat(),
		sync:   mem.Sync,
	}, nil
}

// Release frees an owned texture. Borrowed textures are only detached.
// Release is idempotent.
func (t *Texture) Release() error {
	if t.released {
		return nil
	}
	if t.owned {
		if err := t.r.requireCurrent("release texture"); err != nil {
			return err
		}
		if err := t.r.native.DeleteTexture(t.name); err != nil {
			return fmt.Errorf("%w: release texture: %w", glbridge.ErrRenderBackend, err)
		}
	}
	t.released = true
	return nil
}
