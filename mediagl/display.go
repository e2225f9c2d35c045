// Package mediagl is the media layer's view of the shared GL context.
//
// A media pipeline expects GL objects of its own kind: a display, a context
// it can activate on worker threads, GL memory it can map, and framebuffers
// it can attach that memory to. This package builds those objects on top of
// a native display/context it does not own, so the pipeline and the
// renderer end up using the same context and the same textures.
//
// Typical sequence on one locked OS thread:
//
//	display, _ := mediagl.NewDisplayEGLWithHandle(eglDisplay.Handle())
//	ctx, _ := mediagl.NewWrappedContext(display, eglContext.Handle(), mediagl.PlatformEGL, mediagl.APIGLES2)
//	_ = ctx.Activate(true)
//	_ = ctx.FillInfo()
//
//	alloc, _ := mediagl.NewAllocator(ctx, mediagl.AllocatorConfig{})
//	mem, _ := alloc.Allocate(mediagl.AllocationParams{Info: info})
//	fb, _ := mediagl.NewFramebuffer(ctx)
//	_ = fb.Attach(mediagl.ColorAttachment0, mem)
//	_ = fb.Bind()
//	// ... render ...
//	_ = ctx.ClearFramebuffer()
//	pix, _ := mem.ReadPixels()
//
// Memory and framebuffers are not safe for unsynchronised use from several
// goroutines; ordering between threads is the caller's job, enforced at the
// context level by activation.
package mediagl

import (
	"fmt"
	"strings"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// Platform is the window-system binding of a GL context.
type Platform uint32

const (
	PlatformNone Platform = 0
	PlatformEGL  Platform = 1 << 0
	PlatformGLX  Platform = 1 << 1
	PlatformWGL  Platform = 1 << 2
	PlatformCGL  Platform = 1 << 3
)

func (p Platform) String() string {
	if p == PlatformNone {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		flag Platform
		name string
	}{{PlatformEGL, "egl"}, {PlatformGLX, "glx"}, {PlatformWGL, "wgl"}, {PlatformCGL, "cgl"}} {
		if p&f.flag != 0 {
			names = append(names, f.name)
			p &^= f.flag
		}
	}
	if p != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(p)))
	}
	return strings.Join(names, "|")
}

// API is the GL client API of a context.
type API uint32

const (
	APINone    API = 0
	APIOpenGL  API = 1 << 0
	APIOpenGL3 API = 1 << 1
	APIGLES1   API = 1 << 15
	APIGLES2   API = 1 << 16
)

func (a API) String() string {
	if a == APINone {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		flag API
		name string
	}{{APIOpenGL, "opengl"}, {APIOpenGL3, "opengl3"}, {APIGLES1, "gles1"}, {APIGLES2, "gles2"}} {
		if a&f.flag != 0 {
			names = append(names, f.name)
			a &^= f.flag
		}
	}
	if a != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(a)))
	}
	return strings.Join(names, "|")
}

// Display describes a native display to the media layer. It does not own
// the native display.
type Display struct {
	handle   uintptr
	platform Platform
}

// NewDisplayEGLWithHandle wraps an existing native EGL display.
func NewDisplayEGLWithHandle(handle uintptr) (*Display, error) {
	if _, ok := gles.LookupDisplay(handle); !ok {
		return nil, fmt.Errorf("%w: unknown EGL display %#x", glbridge.ErrUnsupportedPlatform, handle)
	}
	glbridge.Logger().Info("mediagl: display wrapped", "handle", fmt.Sprintf("%#x", handle))
	return &Display{handle: handle, platform: PlatformEGL}, nil
}

// Handle returns the raw native display handle.
func (d *Display) Handle() uintptr { return d.handle }

// Platform returns the platform of the native display.
func (d *Display) Platform() Platform { return d.platform }
