package gles

import (
	"errors"
	"fmt"
)

// Thread identifies an OS thread. The zero value means "no thread".
type Thread uint64

type (
	Texture     struct{ V uint32 }
	Framebuffer struct{ V uint32 }
)

func (t Texture) Valid() bool     { return t.V != 0 }
func (f Framebuffer) Valid() bool { return f.V != 0 }

// Enum is a GL enumerant.
type Enum uint32

const (
	NO_ERROR                      Enum = 0
	INVALID_ENUM                  Enum = 0x0500
	INVALID_VALUE                 Enum = 0x0501
	INVALID_OPERATION             Enum = 0x0502
	OUT_OF_MEMORY                 Enum = 0x0505
	INVALID_FRAMEBUFFER_OPERATION Enum = 0x0506

	VENDOR     Enum = 0x1f00
	RENDERER   Enum = 0x1f01
	VERSION    Enum = 0x1f02
	EXTENSIONS Enum = 0x1f03

	TEXTURE_2D           Enum = 0x0de1
	TEXTURE_RECTANGLE    Enum = 0x84f5
	TEXTURE_EXTERNAL_OES Enum = 0x8d65

	RGBA     Enum = 0x1908
	BGRA_EXT Enum = 0x80e1

	FRAMEBUFFER                           Enum = 0x8d40
	COLOR_ATTACHMENT0                     Enum = 0x8ce0
	DEPTH_ATTACHMENT                      Enum = 0x8d00
	STENCIL_ATTACHMENT                    Enum = 0x8d20
	FRAMEBUFFER_COMPLETE                  Enum = 0x8cd5
	FRAMEBUFFER_INCOMPLETE_ATTACHMENT     Enum = 0x8cd6
	FRAMEBUFFER_INCOMPLETE_MISSING_ATTACH Enum = 0x8cd7
	FRAMEBUFFER_UNDEFINED                 Enum = 0x8219

	COLOR_BUFFER_BIT Enum = 0x4000
	SCISSOR_TEST     Enum = 0x0c11
)

// Extensions understood by the driver.
const (
	ExtBGRA8888      = "GL_EXT_texture_format_BGRA8888"
	ExtAppleBGRA8888 = "GL_APPLE_texture_format_BGRA8888"
	ExtReadBGRA      = "GL_EXT_read_format_bgra"
	ExtSurfaceless   = "GL_OES_surfaceless_context"
	ExtRGBA8         = "GL_OES_rgb8_rgba8"
)

// DefaultExtensions is the extension set of a surfaceless context when the
// configuration does not override it.
var DefaultExtensions = []string{ExtSurfaceless, ExtRGBA8, ExtBGRA8888, ExtReadBGRA}

// Error is a GL error code returned by a failed call.
type Error Enum

func (e Error) Error() string {
	switch Enum(e) {
	case INVALID_ENUM:
		return "gles: GL_INVALID_ENUM"
	case INVALID_VALUE:
		return "gles: GL_INVALID_VALUE"
	case INVALID_OPERATION:
		return "gles: GL_INVALID_OPERATION"
	case OUT_OF_MEMORY:
		return "gles: GL_OUT_OF_MEMORY"
	case INVALID_FRAMEBUFFER_OPERATION:
		return "gles: GL_INVALID_FRAMEBUFFER_OPERATION"
	default:
		return fmt.Sprintf("gles: GL error 0x%04x", uint32(e))
	}
}

// Driver-level failures outside the GL error space.
var (
	ErrNotCurrent   = errors.New("gles: context not current on calling thread")
	ErrContextBusy  = errors.New("gles: context current on another thread")
	ErrDestroyed    = errors.New("gles: object destroyed")
	ErrBadConfig    = errors.New("gles: unsupported context configuration")
	ErrDisplayInUse = errors.New("gles: display has live contexts")
)

// BytesPerPixel returns the storage size of one texel of format, or 0 for
// formats the driver does not store.
func BytesPerPixel(format Enum) int {
	switch format {
	case RGBA, BGRA_EXT:
		return 4
	default:
		return 0
	}
}
