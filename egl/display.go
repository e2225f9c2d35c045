// Package egl creates the native display and rendering context the bridge
// is built on.
//
// Displays come from registered backends. The surfaceless backend is always
// registered and needs no window system or GPU device node; it is what the
// bridge uses by default.
//
//	d, err := egl.NewDisplay(egl.PlatformSurfaceless)
//	ctx, err := egl.NewContext(d, nil)
//
// The context starts not current on any thread. Other layers reach it
// through its raw handle and never own it.
package egl

import (
	"fmt"
	"sync"

	"github.com/gogpu/glbridge"
)

// Platform is a native display platform.
type Platform uint8

const (
	PlatformSurfaceless Platform = iota
	PlatformDevice
	PlatformGBM
	PlatformX11
	PlatformWayland
)

func (p Platform) String() string {
	switch p {
	case PlatformSurfaceless:
		return "surfaceless"
	case PlatformDevice:
		return "device"
	case PlatformGBM:
		return "gbm"
	case PlatformX11:
		return "x11"
	case PlatformWayland:
		return "wayland"
	default:
		return fmt.Sprintf("Platform(%d)", uint8(p))
	}
}

// Display is an initialised native display. It owns the native object and
// must outlive every context created on it.
type Display struct {
	native   NativeDisplay
	backend  string
	platform Platform

	mu       sync.Mutex
	contexts int
	closed   bool
}

// NewDisplay opens a display for platform on the best available backend.
// It fails with glbridge.ErrDisplayInit when no registered backend can serve
// the platform.
func NewDisplay(p Platform) (*Display, error) {
	b := selectBackend(p)
	if b == nil {
		return nil, fmt.Errorf("%w: platform=%s registered=%v", glbridge.ErrDisplayInit, p, Available())
	}
	native, err := b.OpenDisplay(p)
	if err != nil {
		return nil, fmt.Errorf("%w: platform=%s backend=%s: %w", glbridge.ErrDisplayInit, p, b.Name(), err)
	}
	d := &Display{native: native, backend: b.Name(), platform: p}
	glbridge.Logger().Info("egl: display created",
		"backend", d.backend, "platform", p.String(), "handle", fmt.Sprintf("%#x", native.Handle()))
	return d, nil
}

// Handle returns the raw native display handle.
func (d *Display) Handle() uintptr { return d.native.Handle() }

// Backend returns the name of the backend that opened d.
func (d *Display) Backend() string { return d.backend }

// Platform returns the platform of d.
func (d *Display) Platform() Platform { return d.platform }

// Close terminates the display. Every context must be closed first.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.contexts > 0 {
		return fmt.Errorf("egl: display %#x has %d live contexts", d.native.Handle(), d.contexts)
	}
	if err := d.native.Close(); err != nil {
		return fmt.Errorf("egl: close display: %w", err)
	}
	d.closed = true
	return nil
}
