package mediagl

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// Context describes a native context to the media layer. It holds the raw
// handle and a non-owning reference to the native object; the native
// context must outlive it.
//
// Activation is a per-context state machine, Inactive -> Active(thread) ->
// Inactive, and every transition goes through Activate.
type Context struct {
	display  *Display
	handle   uintptr
	platform Platform
	api      API
	native   *gles.Context

	mu    sync.Mutex
	info  *contextInfo
	bound *Framebuffer
}

type contextInfo struct {
	version      string
	major, minor int
	extensions   map[string]bool
}

// NewWrappedContext wraps the native context handle for the media layer.
// Only EGL with the GLES2 API is supported; any other combination fails
// with glbridge.ErrUnsupportedPlatform before the context is touched.
func NewWrappedContext(display *Display, handle uintptr, platform Platform, api API) (*Context, error) {
	if display == nil {
		return nil, fmt.Errorf("%w: nil display", glbridge.ErrUnsupportedPlatform)
	}
	if platform != PlatformEGL || display.platform != PlatformEGL {
		return nil, fmt.Errorf("%w: platform=%s display=%s api=%s",
			glbridge.ErrUnsupportedPlatform, platform, display.platform, api)
	}
	if api != APIGLES2 {
		return nil, fmt.Errorf("%w: platform=%s api=%s", glbridge.ErrUnsupportedPlatform, platform, api)
	}
	native, ok := gles.LookupContext(handle)
	if !ok {
		return nil, fmt.Errorf("%w: unknown context handle %#x", glbridge.ErrUnsupportedPlatform, handle)
	}
	if native.Display().Handle() != display.handle {
		return nil, fmt.Errorf("%w: context %#x does not belong to display %#x",
			glbridge.ErrUnsupportedPlatform, handle, display.handle)
	}

	glbridge.Logger().Info("mediagl: context wrapped",
		"handle", fmt.Sprintf("%#x", handle), "platform", platform.String(), "api", api.String())
	return &Context{
		display:  display,
		handle:   handle,
		platform: platform,
		api:      api,
		native:   native,
	}, nil
}

// Display returns the wrapped display.
func (c *Context) Display() *Display { return c.display }

// Handle returns the raw native context handle.
func (c *Context) Handle() uintptr { return c.handle }

// Platform returns the platform the context was wrapped with.
func (c *Context) Platform() Platform { return c.platform }

// API returns the API the context was wrapped with.
func (c *Context) API() API { return c.api }

// Activate makes the context current (true) or not current (false) on the
// calling OS thread. The caller must be locked to its thread.
//
// Activating while another thread holds the context fails with
// glbridge.ErrContextContention; so does deactivating from a thread that
// does not hold it. Activating twice on the holder and deactivating an
// inactive context are no-ops. A destroyed native context fails with
// glbridge.ErrInitialization.
func (c *Context) Activate(active bool) error {
	var err error
	if active {
		err = c.native.MakeCurrent()
	} else {
		err = c.native.ReleaseCurrent()
	}
	if err != nil {
		op := fmt.Sprintf("activate(%t) on thread %d, context %#x current on thread %d",
			active, gles.CurrentThread(), c.handle, c.native.CurrentOn())
		return wrapGL(glbridge.ErrInitialization, op, err)
	}
	glbridge.Logger().Debug("mediagl: activate",
		"active", active, "thread", uint64(gles.CurrentThread()), "handle", fmt.Sprintf("%#x", c.handle))
	return nil
}

// IsActive reports whether the context is current on the calling thread.
func (c *Context) IsActive() bool { return c.native.IsCurrent() }

// ActiveThread returns the id of the OS thread the context is current on,
// or 0 when it is inactive.
func (c *Context) ActiveThread() uint64 { return uint64(c.native.CurrentOn()) }

// FillInfo queries the GL version and extensions of the wrapped context.
// The context must be active on the calling thread. Allocators and
// framebuffers refuse a context whose info has not been filled.
func (c *Context) FillInfo() error {
	version, err := c.native.GetString(gles.VERSION)
	if err != nil {
		return wrapGL(glbridge.ErrInitialization, "fill info", err)
	}
	exts, err := c.native.GetString(gles.EXTENSIONS)
	if err != nil {
		return wrapGL(glbridge.ErrInitialization, "fill info", err)
	}
	info := &contextInfo{version: version, extensions: make(map[string]bool)}
	if _, err := fmt.Sscanf(version, "OpenGL ES %d.%d", &info.major, &info.minor); err != nil {
		return fmt.Errorf("%w: unparsable GL version %q", glbridge.ErrContextInfo, version)
	}
	for _, e := range strings.Fields(exts) {
		info.extensions[e] = true
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	glbridge.Logger().Info("mediagl: context info", "version", version, "extensions", len(info.extensions))
	return nil
}

// GLVersion returns the GL version recorded by FillInfo.
func (c *Context) GLVersion() (major, minor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info == nil {
		return 0, 0
	}
	return c.info.major, c.info.minor
}

// HasExtension reports whether FillInfo recorded ext.
func (c *Context) HasExtension(ext string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info != nil && c.info.extensions[ext]
}

// requireReady checks the preconditions of every object operation: info
// filled and context active on the calling thread.
func (c *Context) requireReady(op string) error {
	c.mu.Lock()
	filled := c.info != nil
	c.mu.Unlock()
	if !filled {
		return fmt.Errorf("%w: %s on context %#x", glbridge.ErrContextInfo, op, c.handle)
	}
	if !c.native.IsCurrent() {
		return fmt.Errorf("%w: %s on thread %d, context %#x held by thread %d",
			glbridge.ErrContextNotCurrent, op, gles.CurrentThread(), c.handle, c.native.CurrentOn())
	}
	return nil
}

// CheckFramebufferStatus reports the completeness of the bound framebuffer.
func (c *Context) CheckFramebufferStatus() (FramebufferStatus, error) {
	if err := c.requireReady("check framebuffer status"); err != nil {
		return 0, err
	}
	s, err := c.native.CheckFramebufferStatus(gles.FRAMEBUFFER)
	if err != nil {
		return 0, wrapGL(glbridge.ErrRenderBackend, "check framebuffer status", err)
	}
	return FramebufferStatus(s), nil
}

// ClearFramebuffer unbinds the active render target.
func (c *Context) ClearFramebuffer() error {
	if err := c.requireReady("clear framebuffer"); err != nil {
		return err
	}
	if err := c.native.BindFramebuffer(gles.FRAMEBUFFER, gles.Framebuffer{}); err != nil {
		return wrapGL(glbridge.ErrRenderBackend, "clear framebuffer", err)
	}
	c.setBound(nil)
	return nil
}

// BoundFramebuffer returns the framebuffer bound through this context, or nil.
func (c *Context) BoundFramebuffer() *Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

func (c *Context) setBound(fb *Framebuffer) {
	c.mu.Lock()
	c.bound = fb
	c.mu.Unlock()
}
