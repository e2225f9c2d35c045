// Package export moves pixels read back from GL memory to the host: image
// values, encoded files, and seed images decoded into a buffer's layout.
package export

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/mediagl"
)

// ErrUnknownFormat is returned for output paths whose extension names no
// supported encoder.
var ErrUnknownFormat = errors.New("export: unknown output format")

// ToImage converts pixels in info's layout into an RGBA image. BGRA input
// is swizzled; pix is not modified.
func ToImage(pix []byte, info mediagl.VideoInfo) (*image.RGBA, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if len(pix) < info.Size() {
		return nil, fmt.Errorf("export: %d bytes for %s, want %d", len(pix), info, info.Size())
	}
	img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	copy(img.Pix, pix[:info.Size()])
	if info.Format == mediagl.VideoFormatBGRA {
		swizzle(img.Pix)
	}
	return img, nil
}

// FromImage converts img into pixels of info's layout. The image must have
// the frame's size.
func FromImage(img image.Image, info mediagl.VideoInfo) ([]byte, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() != info.Width || b.Dy() != info.Height {
		return nil, fmt.Errorf("%w: image %dx%d for %s", glbridge.ErrUnsupportedFormat, b.Dx(), b.Dy(), info)
	}
	rgba := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	for y := 0; y < info.Height; y++ {
		for x := 0; x < info.Width; x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	if info.Format == mediagl.VideoFormatBGRA {
		swizzle(rgba.Pix)
	}
	return rgba.Pix, nil
}

func swizzle(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
