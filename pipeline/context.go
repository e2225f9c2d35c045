package pipeline

import (
	"sync"

	"github.com/gogpu/glbridge/mediagl"
)

// Context types understood by the Responder.
const (
	// DisplayContextType is the tag elements use to request the display
	// context. The Responder answers it with the wrapped display.
	DisplayContextType = "gst.gl.GLDisplay"

	// AppContextType is the tag elements use to request the application
	// GL context. The Responder answers it with the wrapped context.
	AppContextType = "gst.gl.app_context"
)

// Element is a pipeline node that can receive contexts.
type Element interface {
	Name() string
	SetContext(c *Context)
}

// Context carries shared objects to an element.
type Context struct {
	contextType string
	persistent  bool

	display *mediagl.Display
	gl      *mediagl.Context
}

// NewContext returns an empty context of the given type. Persistent
// contexts survive the element's state resets.
func NewContext(contextType string, persistent bool) *Context {
	return &Context{contextType: contextType, persistent: persistent}
}

// Type returns the context type.
func (c *Context) Type() string { return c.contextType }

// Persistent reports whether the context is persistent.
func (c *Context) Persistent() bool { return c.persistent }

// SetGLDisplay stores the display.
func (c *Context) SetGLDisplay(d *mediagl.Display) { c.display = d }

// GLDisplay returns the stored display, or nil.
func (c *Context) GLDisplay() *mediagl.Display { return c.display }

// SetGLContext stores the GL context.
func (c *Context) SetGLContext(gl *mediagl.Context) { c.gl = gl }

// GLContext returns the stored GL context, or nil.
func (c *Context) GLContext() *mediagl.Context { return c.gl }

// ContextHolder is an embeddable Element helper that keeps the last
// context received per type.
type ContextHolder struct {
	mu       sync.Mutex
	contexts map[string]*Context
	sets     int
}

// SetContext implements Element.
func (h *ContextHolder) SetContext(c *Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.contexts == nil {
		h.contexts = make(map[string]*Context)
	}
	h.contexts[c.Type()] = c
	h.sets++
}

// Context returns the context received for contextType, or nil.
func (h *ContextHolder) Context(contextType string) *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.contexts[contextType]
}

// SetContextCalls returns how many times SetContext has been called.
func (h *ContextHolder) SetContextCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sets
}
