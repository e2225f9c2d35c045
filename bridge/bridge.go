// Package bridge assembles the shared display, context, allocator and
// renderer into one object and drives the single-shot render path: GL
// memory is cleared by the renderer and read back to the host.
//
// A Bridge is bound to the OS thread that created it. Call
// runtime.LockOSThread before New and keep the thread locked until Close.
package bridge

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/egl"
	"github.com/gogpu/glbridge/mediagl"
	"github.com/gogpu/glbridge/pipeline"
	"github.com/gogpu/glbridge/render"
)

// Options configures New.
type Options struct {
	Platform egl.Platform
	Attribs  *egl.ContextAttribs

	// Transform is the output transform of rendered frames.
	Transform render.Transform

	// MaxMemoryMB is the GL memory budget; zero selects the default.
	MaxMemoryMB int
}

// Bridge owns the shared GL objects.
type Bridge struct {
	opts Options

	nativeDisplay *egl.Display
	nativeContext *egl.Context

	display  *mediagl.Display
	gl       *mediagl.Context
	alloc    *mediagl.Allocator
	renderer *render.Renderer

	closed bool
}

// New creates the display and context, wraps them, activates the context on
// the calling thread and fills its info.
func New(opts Options) (*Bridge, error) {
	b := &Bridge{opts: opts}
	if err := b.open(); err != nil {
		return nil, errors.Join(err, b.Close())
	}
	major, minor := b.gl.GLVersion()
	glbridge.Logger().Info("bridge: ready",
		"backend", b.nativeDisplay.Backend(), "gl", fmt.Sprintf("%d.%d", major, minor))
	return b, nil
}

func (b *Bridge) open() (err error) {
	if b.nativeDisplay, err = egl.NewDisplay(b.opts.Platform); err != nil {
		return err
	}
	if b.nativeContext, err = egl.NewContext(b.nativeDisplay, b.opts.Attribs); err != nil {
		return err
	}
	if b.display, err = mediagl.NewDisplayEGLWithHandle(b.nativeDisplay.Handle()); err != nil {
		return err
	}
	b.gl, err = mediagl.NewWrappedContext(b.display, b.nativeContext.Handle(), mediagl.PlatformEGL, mediagl.APIGLES2)
	if err != nil {
		return err
	}
	if err = b.gl.Activate(true); err != nil {
		return err
	}
	if err = b.gl.FillInfo(); err != nil {
		return err
	}
	if b.alloc, err = mediagl.NewAllocator(b.gl, mediagl.AllocatorConfig{MaxMemoryMB: b.opts.MaxMemoryMB}); err != nil {
		return err
	}
	b.renderer, err = render.NewRenderer(b.nativeContext)
	return err
}

// Display returns the wrapped display.
func (b *Bridge) Display() *mediagl.Display { return b.display }

// Context returns the wrapped context.
func (b *Bridge) Context() *mediagl.Context { return b.gl }

// Allocator returns the GL memory allocator.
func (b *Bridge) Allocator() *mediagl.Allocator { return b.alloc }

// Renderer returns the renderer bound to the native context.
func (b *Bridge) Renderer() *render.Renderer { return b.renderer }

// RenderSolid allocates GL memory for info, optionally seeds it with host
// pixels, clears regions to c with the renderer and returns the resulting
// pixels in info's byte order. Regions are in output coordinates; none
// means the whole frame. seed, when not nil, must hold info.Size() bytes.
func (b *Bridge) RenderSolid(info mediagl.VideoInfo, c render.Color, regions []image.Rectangle, seed []byte) ([]byte, error) {
	if b.closed {
		return nil, fmt.Errorf("%w: bridge closed", glbridge.ErrRenderBackend)
	}
	if seed != nil && len(seed) != info.Size() {
		return nil, fmt.Errorf("%w: seed of %d bytes for %s", glbridge.ErrMap, len(seed), info)
	}

	mem, err := b.alloc.Allocate(mediagl.AllocationParams{Info: info})
	if err != nil {
		return nil, err
	}
	defer mem.Unref()

	if seed != nil {
		err := mem.WithMap(mediagl.MapWrite, func(data []byte) error {
			copy(data, seed)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	fb, err := mediagl.NewFramebuffer(b.gl)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fb.Release() }()
	if err := fb.Attach(mediagl.ColorAttachment0, mem); err != nil {
		return nil, err
	}
	if err := fb.Bind(); err != nil {
		return nil, err
	}
	status, err := b.gl.CheckFramebufferStatus()
	if err != nil {
		return nil, err
	}
	if err := status.Err(); err != nil {
		_ = b.gl.ClearFramebuffer()
		return nil, err
	}

	t := b.opts.Transform
	frame, err := b.renderer.Render(render.TransformSize(t, image.Pt(info.Width, info.Height)), t)
	if err != nil {
		_ = b.gl.ClearFramebuffer()
		return nil, err
	}
	if len(regions) == 0 {
		regions = []image.Rectangle{frame.Bounds()}
	}
	if err := frame.Clear(c, regions); err != nil {
		_ = frame.Finish()
		_ = b.gl.ClearFramebuffer()
		return nil, err
	}
	if err := frame.Finish(); err != nil {
		_ = b.gl.ClearFramebuffer()
		return nil, err
	}
	if err := b.gl.ClearFramebuffer(); err != nil {
		return nil, err
	}
	return mem.ReadPixels()
}

// Responder installs a context-request responder for the bridge's display
// and context on bus. The calling thread should deactivate the context
// before streaming threads enter.
func (b *Bridge) Responder(bus *pipeline.Bus, config pipeline.ResponderConfig) (*pipeline.Responder, error) {
	return pipeline.NewResponder(b.display, b.gl, bus, config)
}

// Close releases everything in reverse order of creation. It reactivates
// the context on the calling thread when needed and leaves it inactive.
// Close is idempotent.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.gl != nil {
		if !b.gl.IsActive() {
			if err := b.gl.Activate(true); err != nil {
				errs = append(errs, err)
			}
		}
		if b.alloc != nil {
			if err := b.alloc.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := b.gl.Activate(false); err != nil {
			errs = append(errs, err)
		}
	}
	if b.nativeContext != nil {
		if err := b.nativeContext.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.nativeDisplay != nil {
		if err := b.nativeDisplay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		glbridge.Logger().Warn("bridge: close", "err", err)
		return err
	}
	return nil
}
