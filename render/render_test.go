// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"runtime"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/egl"
	"github.com/gogpu/glbridge/internal/gles"
	"github.com/gogpu/glbridge/mediagl"
)

type fixture struct {
	renderer *Renderer
	ctx      *mediagl.Context
	alloc    *mediagl.Allocator
}

// newFixture builds the shared display/context stack on the test's locked
// thread, with the context active.
func newFixture(t *testing.T, attribs *egl.ContextAttribs) *fixture {
	t.Helper()
	runtime.LockOSThread()

	d, err := egl.NewDisplay(egl.PlatformSurfaceless)
	if err != nil {
		t.Fatal(err)
	}
	c, err := egl.NewContext(d, attribs)
	if err != nil {
		t.Fatal(err)
	}
	display, err := mediagl.NewDisplayEGLWithHandle(d.Handle())
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := mediagl.NewWrappedContext(display, c.Handle(), mediagl.PlatformEGL, mediagl.APIGLES2)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Activate(true); err != nil {
		t.Fatal(err)
	}
	if err := ctx.FillInfo(); err != nil {
		t.Fatal(err)
	}
	alloc, err := mediagl.NewAllocator(ctx, mediagl.AllocatorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRenderer(c)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = ctx.Activate(true)
		_ = alloc.Close()
		_ = ctx.Activate(false)
		_ = c.Close()
		_ = d.Close()
	})
	return &fixture{renderer: r, ctx: ctx, alloc: alloc}
}

func (fx *fixture) target(t *testing.T, format mediagl.VideoFormat, w, h int) *MemoryTarget {
	t.Helper()
	target, err := NewMemoryTarget(fx.alloc, mediagl.VideoInfo{Format: format, Width: w, Height: h})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = target.Release() })
	return target
}

// drawFrame binds target, runs fn in a frame and unbinds.
func drawFrame(t *testing.T, r *Renderer, target *MemoryTarget, tr Transform, fn func(*Frame) error) {
	t.Helper()
	frame, err := r.RenderTo(target, tr)
	if err != nil {
		t.Fatal(err)
	}
	if err := fn(frame); err != nil {
		t.Fatal(err)
	}
	if err := frame.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := target.Unbind(); err != nil {
		t.Fatal(err)
	}
}

func readPixels(t *testing.T, target *MemoryTarget) []byte {
	t.Helper()
	pix, err := target.ReadPixels()
	if err != nil {
		t.Fatal(err)
	}
	return pix
}

func pixelAt(pix []byte, w, x, y int) [4]byte {
	var p [4]byte
	copy(p[:], pix[(y*w+x)*4:])
	return p
}

func TestClearFullFrameRed(t *testing.T) {
	tests := []struct {
		format mediagl.VideoFormat
		want   [4]byte
	}{
		{mediagl.VideoFormatBGRA, [4]byte{0, 0, 255, 255}},
		{mediagl.VideoFormatRGBA, [4]byte{255, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			fx := newFixture(t, nil)
			target := fx.target(t, tt.format, 1920, 1080)

			drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
				return f.Clear(Red, []image.Rectangle{image.Rect(0, 0, 1920, 1080)})
			})

			pix := readPixels(t, target)
			if len(pix) != 1920*1080*4 {
				t.Fatalf("len(pix) = %d", len(pix))
			}
			want := bytes.Repeat(tt.want[:], 1920*1080)
			if !bytes.Equal(pix, want) {
				i := 0
				for i < len(pix) && pix[i] == want[i] {
					i++
				}
				t.Fatalf("pixel %d = % x, want % x", i/4, pix[i/4*4:i/4*4+4], tt.want)
			}
		})
	}
}

func TestClearRegionLeavesRest(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatRGBA, 8, 6)
	region := image.Rect(2, 1, 5, 4)

	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		return f.Clear(Blue, []image.Rectangle{f.Bounds()})
	})
	for pass := 0; pass < 2; pass++ {
		drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
			return f.Clear(Red, []image.Rectangle{region})
		})
		pix := readPixels(t, target)
		for y := 0; y < 6; y++ {
			for x := 0; x < 8; x++ {
				want := Blue.Bytes(false)
				if image.Pt(x, y).In(region) {
					want = Red.Bytes(false)
				}
				if got := pixelAt(pix, 8, x, y); got != want {
					t.Fatalf("pass %d: pixel (%d,%d) = %v, want %v", pass, x, y, got, want)
				}
			}
		}
	}
}

func TestClearOverwritesHostWrites(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatBGRA, 16, 16)

	err := target.Memory().WithMap(mediagl.MapWrite, func(data []byte) error {
		for i := range data {
			data[i] = byte(i)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	green := Color{G: 1, A: 1}
	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		return f.Clear(green, []image.Rectangle{f.Bounds()})
	})
	if pix := readPixels(t, target); !bytes.Equal(pix, bytes.Repeat([]byte{0, 255, 0, 255}, 16*16)) {
		t.Errorf("pixels keep host pattern: % x", pix[:16])
	}
}

func TestHostWritesReachTarget(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatRGBA, 4, 4)
	err := target.Memory().WithMap(mediagl.MapWrite, func(data []byte) error {
		copy(data, bytes.Repeat([]byte{9, 8, 7, 6}, 16))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		return f.Clear(Red, []image.Rectangle{image.Rect(0, 0, 1, 1)})
	})
	pix := readPixels(t, target)
	if got := pixelAt(pix, 4, 0, 0); got != Red.Bytes(false) {
		t.Errorf("cleared pixel = %v", got)
	}
	if got := pixelAt(pix, 4, 3, 3); got != [4]byte{9, 8, 7, 6} {
		t.Errorf("untouched pixel = %v, want the host pattern", got)
	}
}

func TestFinishTwice(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatRGBA, 4, 4)

	frame, err := fx.renderer.RenderTo(target, TransformNormal)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fx.renderer.Render(image.Pt(4, 4), TransformNormal); !errors.Is(err, glbridge.ErrRenderBackend) {
		t.Errorf("second open frame = %v, want ErrRenderBackend", err)
	}
	submitted := fx.renderer.native.Flushes()
	if err := frame.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := frame.Finish(); !errors.Is(err, glbridge.ErrUseAfterFinish) {
		t.Errorf("second Finish() = %v", err)
	}
	if got := fx.renderer.native.Flushes(); got != submitted+1 {
		t.Errorf("Finish submitted %d times, want once", got-submitted)
	}
	if err := frame.Clear(Red, []image.Rectangle{frame.Bounds()}); !errors.Is(err, glbridge.ErrUseAfterFinish) {
		t.Errorf("Clear() after Finish = %v", err)
	}
	if !frame.Finished() {
		t.Error("Finished() = false")
	}

	// The next frame works normally.
	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		return f.Clear(Red, []image.Rectangle{f.Bounds()})
	})
	if got := pixelAt(readPixels(t, target), 4, 3, 3); got != Red.Bytes(false) {
		t.Errorf("pixel after recovery = %v", got)
	}
	if fx.renderer.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", fx.renderer.Frames())
	}
}

func TestRenderRequiresCurrent(t *testing.T) {
	fx := newFixture(t, nil)
	if err := fx.ctx.Activate(false); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.renderer.Render(image.Pt(4, 4), TransformNormal); !errors.Is(err, glbridge.ErrRenderBackend) {
		t.Errorf("Render() without context = %v", err)
	}
	called := false
	err := fx.renderer.WithContext(func() error { called = true; return nil })
	if !errors.Is(err, glbridge.ErrRenderBackend) || called {
		t.Errorf("WithContext() = %v, called=%t", err, called)
	}
	if fx.ctx.IsActive() {
		t.Error("renderer changed context activation")
	}
}

func TestClearInvalidRegion(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatRGBA, 4, 4)

	tests := []struct {
		name   string
		region image.Rectangle
	}{
		{"negative origin", image.Rect(-1, 0, 2, 2)},
		{"too wide", image.Rect(0, 0, 5, 4)},
		{"too tall", image.Rect(0, 2, 4, 5)},
		{"inverted", image.Rectangle{Min: image.Pt(3, 3), Max: image.Pt(1, 1)}},
	}
	// Inline: the context is current on this goroutine's thread only.
	for _, tt := range tests {
		frame, err := fx.renderer.RenderTo(target, TransformNormal)
		if err != nil {
			t.Fatalf("%s: RenderTo() = %v", tt.name, err)
		}
		err = frame.Clear(Red, []image.Rectangle{image.Rect(0, 0, 1, 1), tt.region})
		if !errors.Is(err, glbridge.ErrInvalidRegion) {
			t.Errorf("%s: Clear(%v) = %v, want ErrInvalidRegion", tt.name, tt.region, err)
		}
		if err := frame.Finish(); err != nil {
			t.Fatalf("%s: Finish() = %v", tt.name, err)
		}
	}

	if err := target.Unbind(); err != nil {
		t.Fatal(err)
	}
	// Nothing was drawn, not even the valid first region.
	if pix := readPixels(t, target); !bytes.Equal(pix, make([]byte, len(pix))) {
		t.Error("rejected clear modified the target")
	}
}

func TestClearIncompleteFramebuffer(t *testing.T) {
	t.Run("no attachment", func(t *testing.T) {
		fx := newFixture(t, nil)
		fb, err := mediagl.NewFramebuffer(fx.ctx)
		if err != nil {
			t.Fatal(err)
		}
		defer fb.Release()
		if err := fb.Bind(); err != nil {
			t.Fatal(err)
		}
		frame, err := fx.renderer.Render(image.Pt(4, 4), TransformNormal)
		if err != nil {
			t.Fatal(err)
		}
		defer frame.Finish()
		if err := frame.Clear(Red, []image.Rectangle{frame.Bounds()}); !errors.Is(err, glbridge.ErrFramebufferIncomplete) {
			t.Errorf("Clear() = %v, want ErrFramebufferIncomplete", err)
		}
	})

	t.Run("bgra without render support", func(t *testing.T) {
		fx := newFixture(t, &egl.ContextAttribs{Extensions: []string{gles.ExtAppleBGRA8888}})
		info := mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 4, Height: 4}
		if _, err := NewMemoryTarget(fx.alloc, info); !errors.Is(err, glbridge.ErrFramebufferIncomplete) {
			t.Fatalf("NewMemoryTarget() = %v, want ErrFramebufferIncomplete", err)
		}

		mem, err := fx.alloc.Allocate(mediagl.AllocationParams{Info: info})
		if err != nil {
			t.Fatal(err)
		}
		defer mem.Unref()
		fb, err := mediagl.NewFramebuffer(fx.ctx)
		if err != nil {
			t.Fatal(err)
		}
		defer fb.Release()
		if err := fb.Attach(mediagl.ColorAttachment0, mem); err != nil {
			t.Fatal(err)
		}
		if err := fb.Bind(); err != nil {
			t.Fatal(err)
		}
		frame, err := fx.renderer.Render(image.Pt(4, 4), TransformNormal)
		if err != nil {
			t.Fatal(err)
		}
		defer frame.Finish()
		if err := frame.Clear(Red, []image.Rectangle{frame.Bounds()}); !errors.Is(err, glbridge.ErrFramebufferIncomplete) {
			t.Errorf("Clear() = %v, want ErrFramebufferIncomplete", err)
		}
	})
}

func TestTransformRect(t *testing.T) {
	size := image.Pt(4, 2)
	r := image.Rect(0, 0, 1, 1)
	tests := []struct {
		t    Transform
		want image.Rectangle
	}{
		{TransformNormal, image.Rect(0, 0, 1, 1)},
		{Transform90, image.Rect(1, 0, 2, 1)},
		{Transform180, image.Rect(3, 1, 4, 2)},
		{Transform270, image.Rect(0, 3, 1, 4)},
		{TransformFlipped, image.Rect(3, 0, 4, 1)},
		{TransformFlipped90, image.Rect(1, 3, 2, 4)},
		{TransformFlipped180, image.Rect(0, 1, 1, 2)},
		{TransformFlipped270, image.Rect(0, 0, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.t.String(), func(t *testing.T) {
			got := TransformRect(tt.t, r, size)
			if got != tt.want {
				t.Errorf("TransformRect() = %v, want %v", got, tt.want)
			}
			buf := TransformSize(tt.t, size)
			if !got.In(image.Rectangle{Max: buf}) {
				t.Errorf("%v outside framebuffer %v", got, buf)
			}
			if back := TransformRect(tt.t.Invert(), got, buf); back != r {
				t.Errorf("inverse maps back to %v", back)
			}
			if p, err := ParseTransform(tt.t.String()); err != nil || p != tt.t {
				t.Errorf("ParseTransform(%q) = %v, %v", tt.t, p, err)
			}
		})
	}
}

func TestClearTransformed(t *testing.T) {
	fx := newFixture(t, nil)
	// A 4x2 output rotated a quarter turn lives in a 2x4 framebuffer.
	target := fx.target(t, mediagl.VideoFormatRGBA, 2, 4)
	drawFrame(t, fx.renderer, target, Transform90, func(f *Frame) error {
		if f.Size() != image.Pt(4, 2) {
			t.Errorf("frame size = %v, want 4x2", f.Size())
		}
		return f.Clear(Red, []image.Rectangle{image.Rect(0, 0, 1, 1)})
	})
	pix := readPixels(t, target)
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			red := x == 1 && y == 0
			if got := pixelAt(pix, 2, x, y) == Red.Bytes(false); got != red {
				t.Errorf("pixel (%d,%d) red=%t, want %t", x, y, got, red)
			}
		}
	}
}

func TestRenderTexture(t *testing.T) {
	fx := newFixture(t, nil)
	target := fx.target(t, mediagl.VideoFormatBGRA, 4, 4)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetRGBA(i%2, i/2, color.RGBA{R: 255, A: 255})
	}
	tex, err := fx.renderer.ImportImage(img)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()
	if tex.Format() != gputypes.TextureFormatRGBA8Unorm || tex.Size() != image.Pt(2, 2) {
		t.Errorf("texture = %v %v", tex.Format(), tex.Size())
	}

	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		if err := f.Clear(Black, []image.Rectangle{f.Bounds()}); err != nil {
			return err
		}
		return f.RenderTexture(tex, image.Rect(0, 0, 2, 2), image.Rect(0, 0, 2, 4), 1)
	})
	pix := readPixels(t, target)
	if got := pixelAt(pix, 4, 1, 3); got != Red.Bytes(true) {
		t.Errorf("drawn pixel = %v, want red", got)
	}
	if got := pixelAt(pix, 4, 3, 0); got != Black.Bytes(true) {
		t.Errorf("undrawn pixel = %v, want black", got)
	}

	frame, err := fx.renderer.RenderTo(target, TransformNormal)
	if err != nil {
		t.Fatal(err)
	}
	if err := frame.RenderTexture(tex, image.Rect(0, 0, 3, 3), frame.Bounds(), 1); !errors.Is(err, glbridge.ErrInvalidRegion) {
		t.Errorf("RenderTexture(oversized source) = %v", err)
	}
	if err := frame.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := frame.RenderTexture(tex, image.Rect(0, 0, 2, 2), frame.Bounds(), 1); !errors.Is(err, glbridge.ErrUseAfterFinish) {
		t.Errorf("RenderTexture() after Finish = %v", err)
	}
	if err := target.Unbind(); err != nil {
		t.Fatal(err)
	}
}

func TestRenderTextureRotated(t *testing.T) {
	fx := newFixture(t, nil)
	// One red pixel at the top-left of a 2x1 source.
	tex, err := fx.renderer.ImportMemory([]byte{255, 0, 0, 255, 0, 0, 255, 255}, image.Pt(2, 1), gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	target := fx.target(t, mediagl.VideoFormatRGBA, 1, 2)
	drawFrame(t, fx.renderer, target, Transform90, func(f *Frame) error {
		return f.RenderTexture(tex, image.Rect(0, 0, 2, 1), f.Bounds(), 1)
	})
	pix := readPixels(t, target)
	// Output (0,0) lands on framebuffer (0,0) under a quarter turn of a 2x1 output.
	if got := pixelAt(pix, 1, 0, 0); got != Red.Bytes(false) {
		t.Errorf("framebuffer (0,0) = %v, want red", got)
	}
	if got := pixelAt(pix, 1, 0, 1); got != Blue.Bytes(false) {
		t.Errorf("framebuffer (0,1) = %v, want blue", got)
	}
}

func TestImportGLMemory(t *testing.T) {
	fx := newFixture(t, nil)
	src, err := fx.alloc.Allocate(mediagl.AllocationParams{Info: mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 2, Height: 2}})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Unref()
	green := Green.Bytes(false)
	err = src.WithMap(mediagl.MapWrite, func(data []byte) error {
		copy(data, bytes.Repeat(green[:], 4))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	tex, err := fx.renderer.ImportGLMemory(src)
	if err != nil {
		t.Fatal(err)
	}

	target := fx.target(t, mediagl.VideoFormatRGBA, 2, 2)
	drawFrame(t, fx.renderer, target, TransformNormal, func(f *Frame) error {
		return f.RenderTexture(tex, image.Rect(0, 0, 2, 2), f.Bounds(), 1)
	})
	if got := pixelAt(readPixels(t, target), 2, 1, 1); got != green {
		t.Errorf("pixel = %v, want the host-written green", got)
	}
	if err := tex.Release(); err != nil {
		t.Fatal(err)
	}
	if src.Released() {
		t.Error("releasing a borrowed texture freed the memory")
	}
}

func TestDeviceHandle(t *testing.T) {
	fx := newFixture(t, nil)
	h := fx.renderer.DeviceHandle()
	if h.Device() != nil || h.Queue() != nil || h.Adapter() != nil {
		t.Error("GL device handle must not expose WebGPU objects")
	}
	if info := h.AdapterInfo(); info.Name != AdapterName || info.Type != gpucontext.AdapterTypeSoftware {
		t.Errorf("AdapterInfo() = %+v, want software adapter", info)
	}
	if h.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want BGRA8Unorm", h.SurfaceFormat())
	}
	caps := fx.renderer.Capabilities()
	if caps.MaxTextureSize != 16384 || !caps.RenderableBGRA {
		t.Errorf("Capabilities() = %+v", caps)
	}

	rgbaOnly := newFixture(t, &egl.ContextAttribs{Extensions: []string{gles.ExtSurfaceless}})
	if f := rgbaOnly.renderer.DeviceHandle().SurfaceFormat(); f != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() without BGRA = %v", f)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"1,0,0,1", Red, false},
		{"0, 1, 0", Green, false},
		{"#0000ff", Blue, false},
		{"#ffffff00", Color{R: 1, G: 1, B: 1}, false},
		{"1,0", Color{}, true},
		{"2,0,0,1", Color{}, true},
		{"#12345", Color{}, true},
		{"#zzzzzz", Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor() error = %v, wantErr %t", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseColor() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := (Color{R: 2, G: -1, B: 0.5, A: 1}).NRGBA(); got != (color.NRGBA{R: 255, G: 0, B: 128, A: 255}) {
		t.Errorf("NRGBA() = %v", got)
	}
}
