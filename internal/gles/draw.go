package gles

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Enable turns on a capability. Only SCISSOR_TEST is supported.
func (c *Context) Enable(capability Enum) error { return c.setCap(capability, true) }

// Disable turns off a capability.
func (c *Context) Disable(capability Enum) error { return c.setCap(capability, false) }

func (c *Context) setCap(capability Enum, on bool) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if capability != SCISSOR_TEST {
		return Error(INVALID_ENUM)
	}
	c.scissorTest = on
	return nil
}

// Scissor sets the scissor box in framebuffer pixels. Rows are stored top
// to bottom, so y grows downward.
func (c *Context) Scissor(x, y, width, height int) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if width < 0 || height < 0 {
		return Error(INVALID_VALUE)
	}
	c.scissor = image.Rect(x, y, x+width, y+height)
	return nil
}

// ClearColor sets the colour used by Clear.
func (c *Context) ClearColor(r, g, b, a float32) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	c.clearColor = [4]float32{clamp01(r), clamp01(g), clamp01(b), clamp01(a)}
	return nil
}

// Clear fills the colour attachment of the bound framebuffer, restricted to
// the scissor box when scissoring is enabled.
func (c *Context) Clear(mask Enum) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	if mask&COLOR_BUFFER_BIT == 0 {
		return nil
	}
	dst, err := c.targetLocked()
	if err != nil {
		return err
	}
	r := dst.bounds()
	if c.scissorTest {
		r = r.Intersect(c.scissor)
	}
	if r.Empty() {
		return nil
	}

	px := encodeColor(dst.format, c.clearColor)
	stride := dst.width * 4
	row := make([]byte, r.Dx()*4)
	for i := 0; i < len(row); i += 4 {
		copy(row[i:i+4], px[:])
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := y*stride + r.Min.X*4
		copy(dst.pix[off:off+len(row)], row)
	}
	return nil
}

// DrawTexture samples sr of src, scales it bilinearly onto dr of the bound
// colour attachment and blends it over the existing pixels with the given
// opacity.
func (c *Context) DrawTexture(src Texture, sr, dr image.Rectangle, alpha float32) error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	dst, err := c.targetLocked()
	if err != nil {
		return err
	}
	s, ok := c.textures[src.V]
	if !ok || s.pix == nil || s == dst {
		return Error(INVALID_OPERATION)
	}
	if sr.Empty() || !sr.In(s.bounds()) {
		return Error(INVALID_VALUE)
	}
	if dr.Empty() {
		return nil
	}
	clip := dst.bounds()
	if c.scissorTest {
		clip = clip.Intersect(c.scissor)
	}
	target := dr.Intersect(clip)
	if target.Empty() {
		return nil
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), rgbaView(s), sr, draw.Src, nil)

	out := rgbaView(dst)
	mask := image.NewUniform(color.Alpha{A: unorm8(clamp01(alpha))})
	draw.DrawMask(out, target, scaled, target.Min.Sub(dr.Min), mask, image.Point{}, draw.Over)
	if dst.format == BGRA_EXT {
		copy(dst.pix, out.Pix)
		swizzle(dst.pix)
	}
	return nil
}

// Flush submits pending commands. The software driver executes commands
// as they are issued, so Flush only records the submission.
func (c *Context) Flush() error {
	if err := c.lock(); err != nil {
		return err
	}
	defer c.mu.Unlock()
	c.flushes++
	return nil
}

// Finish blocks until all commands completed.
func (c *Context) Finish() error {
	return c.Flush()
}

// Flushes returns the number of command submissions so far.
func (c *Context) Flushes() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

// targetLocked returns the colour attachment of the bound framebuffer,
// failing when the framebuffer is not complete.
func (c *Context) targetLocked() (*texture, error) {
	if c.statusLocked() != FRAMEBUFFER_COMPLETE {
		return nil, Error(INVALID_FRAMEBUFFER_OPERATION)
	}
	fb := c.framebuffers[c.bound]
	return c.textures[fb.attachments[COLOR_ATTACHMENT0]], nil
}

// rgbaView returns t as an *image.RGBA. RGBA storage is shared; BGRA
// storage is copied and swizzled.
func rgbaView(t *texture) *image.RGBA {
	img := &image.RGBA{Pix: t.pix, Stride: t.width * 4, Rect: t.bounds()}
	if t.format == BGRA_EXT {
		img.Pix = append([]byte(nil), t.pix...)
		swizzle(img.Pix)
	}
	return img
}

// swizzle swaps the first and third byte of every pixel, converting
// between RGBA and BGRA in place.
func swizzle(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

func encodeColor(format Enum, c [4]float32) [4]byte {
	r, g, b, a := unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])
	if format == BGRA_EXT {
		return [4]byte{b, g, r, a}
	}
	return [4]byte{r, g, b, a}
}

func unorm8(v float32) uint8 {
	return uint8(v*255 + 0.5)
}

func clamp01(v float32) float32 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
