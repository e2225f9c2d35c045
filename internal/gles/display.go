// Package gles is a software GLES2 driver used by the surfaceless EGL
// backend. It keeps GL objects in host memory but enforces the same rules a
// hardware driver does: a context is current on at most one OS thread, every
// object call requires the context to be current, and draws into an
// incomplete framebuffer fail instead of executing.
//
// Native objects are addressed by raw handles, the way EGLDisplay and
// EGLContext values cross library boundaries. Any layer that knows a handle
// can look the object up; ownership stays with whoever created it.
package gles

import (
	"sync"
)

// handle table shared by every layer that talks to the driver.
var (
	tableMu    sync.Mutex
	nextHandle uintptr = 0x1000
	displays          = make(map[uintptr]*Display)
	contexts          = make(map[uintptr]*Context)
)

func allocHandle() uintptr {
	h := nextHandle
	nextHandle += 0x10
	return h
}

// Display is a connection to the driver. Contexts are created on a display
// and must be destroyed before it.
type Display struct {
	handle uintptr

	mu       sync.Mutex
	contexts int
	closed   bool
}

// OpenDisplay opens a new display connection.
func OpenDisplay() *Display {
	tableMu.Lock()
	defer tableMu.Unlock()
	d := &Display{handle: allocHandle()}
	displays[d.handle] = d
	return d
}

// LookupDisplay resolves a raw display handle.
func LookupDisplay(handle uintptr) (*Display, bool) {
	tableMu.Lock()
	defer tableMu.Unlock()
	d, ok := displays[handle]
	return d, ok
}

// Handle returns the raw display handle.
func (d *Display) Handle() uintptr { return d.handle }

// Close terminates the display. It fails while contexts created on it are
// still alive.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.contexts > 0 {
		return ErrDisplayInUse
	}
	d.closed = true
	tableMu.Lock()
	delete(displays, d.handle)
	tableMu.Unlock()
	return nil
}

// API is the client API of a context.
type API uint8

const (
	APIGLES API = iota
	APIOpenGL
)

// Config describes a context to create.
type Config struct {
	API API

	// Major and Minor select the client API version. GLES 2.0 and 3.0 are
	// accepted; zero means 2.0.
	Major, Minor int

	// Extensions overrides DefaultExtensions when non-nil.
	Extensions []string

	// MaxTextureSize bounds texture dimensions; zero means 16384.
	MaxTextureSize int
}

// CreateContext creates a context on d. The context starts not current.
func (d *Display) CreateContext(cfg Config) (*Context, error) {
	if cfg.API != APIGLES {
		return nil, ErrBadConfig
	}
	if cfg.Major == 0 {
		cfg.Major, cfg.Minor = 2, 0
	}
	if (cfg.Major != 2 && cfg.Major != 3) || cfg.Minor != 0 {
		return nil, ErrBadConfig
	}
	if cfg.MaxTextureSize == 0 {
		cfg.MaxTextureSize = 16384
	}
	if cfg.MaxTextureSize < 0 {
		return nil, ErrBadConfig
	}
	exts := cfg.Extensions
	if exts == nil {
		exts = DefaultExtensions
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDestroyed
	}

	c := &Context{
		display:      d,
		cfg:          cfg,
		exts:         make(map[string]bool, len(exts)),
		extList:      append([]string(nil), exts...),
		textures:     make(map[uint32]*texture),
		framebuffers: make(map[uint32]*framebuffer),
	}
	for _, e := range exts {
		c.exts[e] = true
	}

	tableMu.Lock()
	c.handle = allocHandle()
	contexts[c.handle] = c
	tableMu.Unlock()

	d.contexts++
	return c, nil
}

// LookupContext resolves a raw context handle.
func LookupContext(handle uintptr) (*Context, bool) {
	tableMu.Lock()
	defer tableMu.Unlock()
	c, ok := contexts[handle]
	return c, ok
}
