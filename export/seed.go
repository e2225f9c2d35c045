package export

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/gogpu/glbridge/mediagl"
)

// The tga package registers itself with image.RegisterFormat under an
// empty magic string, which matches any input. image.Decode is therefore
// never used here: seeds are sniffed and dispatched explicitly.

type seedDecoder struct {
	match  func(head []byte) bool
	decode func(io.Reader) (image.Image, error)
}

var seedDecoders = []seedDecoder{
	{func(h []byte) bool { return bytes.HasPrefix(h, []byte("\x89PNG\r\n\x1a\n")) }, png.Decode},
	{func(h []byte) bool { return bytes.HasPrefix(h, []byte("\xff\xd8")) }, jpeg.Decode},
	{func(h []byte) bool { return bytes.HasPrefix(h, []byte("GIF8")) }, gif.Decode},
	{func(h []byte) bool {
		return len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WEBP"
	}, webp.Decode},
}

// LoadSeed decodes the image at path and returns it scaled to info's size
// in info's byte order, ready to be written into GL memory. PNG, JPEG, GIF
// and WebP are recognised by content, TGA by the .tga extension.
func LoadSeed(path string, info mediagl.VideoInfo) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: seed: %w", err)
	}
	defer f.Close()

	var pix []byte
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		pix, err = decodeSeedWith(f, info, tga.Decode)
	} else {
		pix, err = DecodeSeed(f, info)
	}
	if err != nil {
		return nil, fmt.Errorf("export: seed %s: %w", path, err)
	}
	return pix, nil
}

// DecodeSeed is LoadSeed for an open stream. The format is sniffed from
// the first bytes; TGA has no signature and is not recognised.
func DecodeSeed(r io.Reader, info mediagl.VideoInfo) ([]byte, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(12)
	for _, d := range seedDecoders {
		if d.match(head) {
			return decodeSeedWith(br, info, d.decode)
		}
	}
	return nil, image.ErrFormat
}

func decodeSeedWith(r io.Reader, info mediagl.VideoInfo, decode func(io.Reader) (image.Image, error)) ([]byte, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	src, err := decode(r)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	if info.Format == mediagl.VideoFormatBGRA {
		swizzle(dst.Pix)
	}
	return dst.Pix, nil
}
