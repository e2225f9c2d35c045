package export

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/mediagl"
)

// Format is an output image encoding.
type Format uint8

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatWebP
	FormatTGA
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatWebP:
		return "webp"
	case FormatTGA:
		return "tga"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".webp":
		return FormatWebP, nil
	case ".tga":
		return FormatTGA, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Encode writes pix, laid out as info, to w in format f. WebP output is
// lossless.
func Encode(w io.Writer, pix []byte, info mediagl.VideoInfo, f Format, quality int) error {
	img, err := ToImage(pix, info)
	if err != nil {
		return err
	}
	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatWebP:
		err = nativewebp.Encode(w, img, nil)
	case FormatTGA:
		err = tga.Encode(w, img)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	if err != nil {
		return fmt.Errorf("export: %s encode: %w", f, err)
	}
	return nil
}

// Sink receives frames read back from GL memory.
type Sink interface {
	Write(pix []byte, info mediagl.VideoInfo) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(pix []byte, info mediagl.VideoInfo) error

// Write calls f.
func (f SinkFunc) Write(pix []byte, info mediagl.VideoInfo) error { return f(pix, info) }

// FileSink encodes each frame to Path, replacing earlier frames. The
// encoding follows the extension.
type FileSink struct {
	Path string

	// Quality is the JPEG quality; 0 selects the encoder default.
	Quality int
}

// Write encodes the frame to the sink's path.
func (s FileSink) Write(pix []byte, info mediagl.VideoInfo) (err error) {
	f, err := FormatFromPath(s.Path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	out, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()
	if err := Encode(out, pix, info, f, s.Quality); err != nil {
		return err
	}
	glbridge.Logger().Debug("export: frame written", "path", s.Path, "format", f.String(), "info", info.String())
	return nil
}
