package egl

import (
	"errors"
	"fmt"

	"github.com/gogpu/glbridge"
)

// ClientAPI selects the client API and version of a context.
type ClientAPI uint8

const (
	APIGLES2 ClientAPI = iota
	APIGLES3
	APIOpenGL
)

func (a ClientAPI) String() string {
	switch a {
	case APIGLES2:
		return "gles2"
	case APIGLES3:
		return "gles3"
	case APIOpenGL:
		return "opengl"
	default:
		return fmt.Sprintf("ClientAPI(%d)", uint8(a))
	}
}

// ContextAttribs describes the context to create.
type ContextAttribs struct {
	API ClientAPI

	// Extensions overrides the backend's extension set when non-nil.
	Extensions []string

	// MaxTextureSize bounds texture dimensions; zero selects the backend default.
	MaxTextureSize int
}

func (a ContextAttribs) String() string {
	return fmt.Sprintf("api=%s max-texture=%d", a.API, a.MaxTextureSize)
}

// Context is a native rendering context. It is not current on any thread
// when created.
type Context struct {
	native  NativeContext
	display *Display
	attribs ContextAttribs
	closed  bool
}

// NewContext creates a context on d. A nil attribs selects GLES2 with the
// backend's defaults. It fails with glbridge.ErrContextCreation when the
// display rejects the attributes.
func NewContext(d *Display, attribs *ContextAttribs) (*Context, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil display", glbridge.ErrContextCreation)
	}
	var a ContextAttribs
	if attribs != nil {
		a = *attribs
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("%w: display closed", glbridge.ErrContextCreation)
	}
	native, err := d.native.CreateContext(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %s on %s: %w", glbridge.ErrContextCreation, a, d.backend, err)
	}
	d.contexts++

	c := &Context{native: native, display: d, attribs: a}
	glbridge.Logger().Info("egl: context created",
		"api", a.API.String(), "handle", fmt.Sprintf("%#x", native.Handle()))
	return c, nil
}

// Handle returns the raw native context handle.
func (c *Context) Handle() uintptr { return c.native.Handle() }

// Display returns the display c was created on.
func (c *Context) Display() *Display { return c.display }

// Attribs returns the attributes c was created with.
func (c *Context) Attribs() ContextAttribs { return c.attribs }

// Close destroys the native context. It fails when the context is still
// current on another thread.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if err := c.native.Destroy(); err != nil {
		return fmt.Errorf("egl: destroy context %#x: %w", c.native.Handle(), err)
	}
	c.closed = true
	c.display.mu.Lock()
	c.display.contexts--
	c.display.mu.Unlock()
	return nil
}

// errUnsupportedPlatform is returned by backends asked for a platform they
// do not serve.
var errUnsupportedPlatform = errors.New("egl: platform not supported by backend")
