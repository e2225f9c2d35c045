package mediagl

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/internal/gles"
)

// VideoFormat is the pixel layout of a video frame.
type VideoFormat uint8

const (
	VideoFormatUnknown VideoFormat = iota
	VideoFormatBGRA
	VideoFormatRGBA
)

func (f VideoFormat) String() string {
	switch f {
	case VideoFormatBGRA:
		return "BGRA"
	case VideoFormatRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("VideoFormat(%d)", uint8(f))
	}
}

// ParseVideoFormat parses a caps format name, case-insensitively.
func ParseVideoFormat(s string) (VideoFormat, error) {
	switch strings.ToUpper(s) {
	case "BGRA":
		return VideoFormatBGRA, nil
	case "RGBA":
		return VideoFormatRGBA, nil
	default:
		return VideoFormatUnknown, fmt.Errorf("%w: video format %q", glbridge.ErrUnsupportedFormat, s)
	}
}

// TextureTarget is the texture binding point of GL memory.
type TextureTarget uint8

const (
	Target2D TextureTarget = iota
	TargetRectangle
	TargetExternalOES
)

func (t TextureTarget) String() string {
	switch t {
	case Target2D:
		return "2D"
	case TargetRectangle:
		return "rectangle"
	case TargetExternalOES:
		return "external-oes"
	default:
		return fmt.Sprintf("TextureTarget(%d)", uint8(t))
	}
}

// ParseTextureTarget parses a caps texture-target value.
func ParseTextureTarget(s string) (TextureTarget, error) {
	switch strings.ToLower(s) {
	case "2d":
		return Target2D, nil
	case "rectangle":
		return TargetRectangle, nil
	case "external-oes":
		return TargetExternalOES, nil
	default:
		return 0, fmt.Errorf("%w: texture target %q", glbridge.ErrUnsupportedFormat, s)
	}
}

// VideoInfo describes the frames a piece of GL memory holds.
type VideoInfo struct {
	Format VideoFormat
	Width  int
	Height int
}

// Validate reports whether info describes storable frames.
func (info VideoInfo) Validate() error {
	if info.Format != VideoFormatBGRA && info.Format != VideoFormatRGBA {
		return fmt.Errorf("%w: format %s", glbridge.ErrUnsupportedFormat, info.Format)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", glbridge.ErrUnsupportedFormat, info.Width, info.Height)
	}
	return nil
}

// Stride returns the row length in bytes.
func (info VideoInfo) Stride() int { return info.Width * 4 }

// Size returns the frame size in bytes.
func (info VideoInfo) Size() int { return info.Stride() * info.Height }

// TextureFormat returns the matching GPU texture format.
func (info VideoInfo) TextureFormat() gputypes.TextureFormat {
	if info.Format == VideoFormatRGBA {
		return gputypes.TextureFormatRGBA8Unorm
	}
	return gputypes.TextureFormatBGRA8Unorm
}

func (info VideoInfo) String() string {
	return fmt.Sprintf("%s %dx%d", info.Format, info.Width, info.Height)
}

func (info VideoInfo) glFormat() gles.Enum {
	if info.Format == VideoFormatRGBA {
		return gles.RGBA
	}
	return gles.BGRA_EXT
}

// Caps features naming where a buffer lives.
const (
	CapsFeatureMemoryGLMemory     = "memory:GLMemory"
	CapsFeatureMemorySystemMemory = "memory:SystemMemory"
)

// MediaTypeVideoRaw is the media type of uncompressed video.
const MediaTypeVideoRaw = "video/x-raw"

// Caps is a media-format description: a media type, memory features and
// ordered fields.
type Caps struct {
	MediaType string
	Features  []string
	fields    []capsField
}

type capsField struct {
	name  string
	value any
}

// Field returns the value of the named field.
func (c Caps) Field(name string) (any, bool) {
	for _, f := range c.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

// HasFeature reports whether c carries feature.
func (c Caps) HasFeature(feature string) bool {
	for _, f := range c.Features {
		if f == feature {
			return true
		}
	}
	return false
}

func (c Caps) String() string {
	var b strings.Builder
	b.WriteString(c.MediaType)
	if len(c.Features) > 0 {
		b.WriteString("(" + strings.Join(c.Features, ", ") + ")")
	}
	for _, f := range c.fields {
		fmt.Fprintf(&b, ", %s=%v", f.name, f.value)
	}
	return b.String()
}

// CapsBuilder assembles a Caps value.
type CapsBuilder struct {
	caps Caps
}

// NewCapsBuilder starts caps of the given media type.
func NewCapsBuilder(mediaType string) *CapsBuilder {
	return &CapsBuilder{caps: Caps{MediaType: mediaType}}
}

// Feature appends a memory feature.
func (b *CapsBuilder) Feature(feature string) *CapsBuilder {
	b.caps.Features = append(b.caps.Features, feature)
	return b
}

// Field sets a field, replacing an earlier value of the same name.
func (b *CapsBuilder) Field(name string, value any) *CapsBuilder {
	for i := range b.caps.fields {
		if b.caps.fields[i].name == name {
			b.caps.fields[i].value = value
			return b
		}
	}
	b.caps.fields = append(b.caps.fields, capsField{name: name, value: value})
	return b
}

// Build returns the caps. The builder may be reused.
func (b *CapsBuilder) Build() Caps {
	c := b.caps
	c.Features = append([]string(nil), b.caps.Features...)
	c.fields = append([]capsField(nil), b.caps.fields...)
	return c
}

// CapsFor returns GL-memory caps for info on target.
func CapsFor(info VideoInfo, target TextureTarget) Caps {
	return NewCapsBuilder(MediaTypeVideoRaw).
		Feature(CapsFeatureMemoryGLMemory).
		Field("format", info.Format.String()).
		Field("width", info.Width).
		Field("height", info.Height).
		Field("texture-target", target.String()).
		Build()
}

// VideoInfoFromCaps extracts allocation parameters from caps. A missing
// texture-target defaults to 2D.
func VideoInfoFromCaps(c Caps) (AllocationParams, error) {
	var p AllocationParams
	if c.MediaType != MediaTypeVideoRaw {
		return p, fmt.Errorf("%w: media type in %s", glbridge.ErrUnsupportedFormat, c)
	}
	switch {
	case c.HasFeature(CapsFeatureMemoryGLMemory):
		p.Memory = MemoryGL
	case c.HasFeature(CapsFeatureMemorySystemMemory), len(c.Features) == 0:
		p.Memory = MemorySystem
	default:
		return p, fmt.Errorf("%w: memory features in %s", glbridge.ErrUnsupportedFormat, c)
	}

	v, ok := c.Field("format")
	s, isString := v.(string)
	if !ok || !isString {
		return p, fmt.Errorf("%w: missing format in %s", glbridge.ErrUnsupportedFormat, c)
	}
	format, err := ParseVideoFormat(s)
	if err != nil {
		return p, err
	}
	w, wok := intField(c, "width")
	h, hok := intField(c, "height")
	if !wok || !hok {
		return p, fmt.Errorf("%w: missing size in %s", glbridge.ErrUnsupportedFormat, c)
	}
	p.Info = VideoInfo{Format: format, Width: w, Height: h}
	if err := p.Info.Validate(); err != nil {
		return p, err
	}

	p.Target = Target2D
	if v, ok := c.Field("texture-target"); ok {
		s, isString := v.(string)
		if !isString {
			return p, fmt.Errorf("%w: texture-target in %s", glbridge.ErrUnsupportedFormat, c)
		}
		if p.Target, err = ParseTextureTarget(s); err != nil {
			return p, err
		}
	}
	return p, nil
}

func intField(c Caps, name string) (int, bool) {
	v, ok := c.Field(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	default:
		return 0, false
	}
}
