package export

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"

	"github.com/gogpu/glbridge"
	"github.com/gogpu/glbridge/mediagl"
)

func solid(info mediagl.VideoInfo, px [4]byte) []byte {
	pix := make([]byte, info.Size())
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], px[:])
	}
	return pix
}

func TestToImage(t *testing.T) {
	tests := []struct {
		name   string
		format mediagl.VideoFormat
		px     [4]byte
		want   color.RGBA
	}{
		{"bgra", mediagl.VideoFormatBGRA, [4]byte{0, 0, 255, 255}, color.RGBA{255, 0, 0, 255}},
		{"rgba", mediagl.VideoFormatRGBA, [4]byte{255, 0, 0, 255}, color.RGBA{255, 0, 0, 255}},
		{"bgra mixed", mediagl.VideoFormatBGRA, [4]byte{10, 20, 30, 40}, color.RGBA{30, 20, 10, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := mediagl.VideoInfo{Format: tt.format, Width: 3, Height: 2}
			pix := solid(info, tt.px)
			img, err := ToImage(pix, info)
			if err != nil {
				t.Fatalf("ToImage: %v", err)
			}
			if got := img.RGBAAt(2, 1); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
			if pix[0] != tt.px[0] {
				t.Errorf("input modified: %v", pix[:4])
			}
		})
	}
}

func TestToImageShortBuffer(t *testing.T) {
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 4, Height: 4}
	if _, err := ToImage(make([]byte, 10), info); err == nil {
		t.Fatal("expected error for short buffer")
	}
	bad := mediagl.VideoInfo{Format: mediagl.VideoFormatUnknown, Width: 4, Height: 4}
	if _, err := ToImage(make([]byte, 64), bad); !errors.Is(err, glbridge.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFromImage(t *testing.T) {
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 2, Height: 2}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(1, 1, color.RGBA{1, 2, 3, 255})
	pix, err := FromImage(img, info)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if got := pix[12:16]; !bytes.Equal(got, []byte{3, 2, 1, 255}) {
		t.Errorf("pixel = %v, want [3 2 1 255]", got)
	}

	wrong := image.NewRGBA(image.Rect(0, 0, 3, 2))
	if _, err := FromImage(wrong, info); !errors.Is(err, glbridge.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"out.png", FormatPNG, false},
		{"OUT.PNG", FormatPNG, false},
		{"a/b/out.jpg", FormatJPEG, false},
		{"out.jpeg", FormatJPEG, false},
		{"out.webp", FormatWebP, false},
		{"seed.TGA", FormatTGA, false},
		{"out.bmp", 0, true},
		{"out", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Fatalf("err = %v, want ErrUnknownFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatFromPath: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileSinkRoundTrip(t *testing.T) {
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 16, Height: 8}
	pix := solid(info, [4]byte{0, 0, 255, 255})

	tests := []struct {
		name  string
		file  string
		exact bool
	}{
		{"png", "frame.png", true},
		{"webp", "frame.webp", true},
		{"tga", "frame.tga", true},
		{"jpeg", "frame.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", tt.file)
			if err := (FileSink{Path: path}).Write(pix, info); err != nil {
				t.Fatalf("Write: %v", err)
			}
			rgba := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: info.Width, Height: info.Height}
			got, err := LoadSeed(path, rgba)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			px := got[(5*rgba.Width+5)*4:][:4]
			if tt.exact {
				if [4]byte(px) != [4]byte{255, 0, 0, 255} {
					t.Errorf("pixel = %v, want [255 0 0 255]", px)
				}
				return
			}
			if px[0] < 200 || px[1] > 60 || px[2] > 60 {
				t.Errorf("pixel = %v, want red", px)
			}
		})
	}
}

func TestFileSinkUnknownFormat(t *testing.T) {
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 2, Height: 2}
	path := filepath.Join(t.TempDir(), "frame.bmp")
	if err := (FileSink{Path: path}).Write(solid(info, [4]byte{}), info); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file created for unknown format")
	}
}

func TestSinkFunc(t *testing.T) {
	var got int
	var s Sink = SinkFunc(func(pix []byte, info mediagl.VideoInfo) error {
		got = len(pix)
		return nil
	})
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 2, Height: 3}
	if err := s.Write(make([]byte, info.Size()), info); err != nil {
		t.Fatal(err)
	}
	if got != 24 {
		t.Errorf("got %d bytes, want 24", got)
	}
}

func writeSeed(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(f, img)
	case ".gif":
		pal := image.NewPaletted(img.Bounds(), color.Palette{color.Transparent, img.At(0, 0)})
		draw.Draw(pal, pal.Bounds(), img, image.Point{}, draw.Src)
		err = gif.Encode(f, pal, nil)
	case ".tga":
		err = tga.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	green := color.RGBA{0, 255, 0, 255}
	tests := []struct {
		name   string
		file   string
		src    image.Point
		format mediagl.VideoFormat
		want   [4]byte
	}{
		{"png same size rgba", "seed.png", image.Pt(4, 4), mediagl.VideoFormatRGBA, [4]byte{0, 255, 0, 255}},
		{"png scaled bgra", "seed.png", image.Pt(2, 2), mediagl.VideoFormatBGRA, [4]byte{0, 255, 0, 255}},
		{"gif scaled", "seed.gif", image.Pt(8, 8), mediagl.VideoFormatRGBA, [4]byte{0, 255, 0, 255}},
		{"tga same size bgra", "seed.tga", image.Pt(4, 4), mediagl.VideoFormatBGRA, [4]byte{0, 255, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rectangle{Max: tt.src})
			for y := 0; y < tt.src.Y; y++ {
				for x := 0; x < tt.src.X; x++ {
					src.SetRGBA(x, y, green)
				}
			}
			path := writeSeed(t, tt.file, src)

			info := mediagl.VideoInfo{Format: tt.format, Width: 4, Height: 4}
			pix, err := LoadSeed(path, info)
			if err != nil {
				t.Fatalf("LoadSeed: %v", err)
			}
			if len(pix) != info.Size() {
				t.Fatalf("len = %d, want %d", len(pix), info.Size())
			}
			for i := 0; i < len(pix); i += 4 {
				for c := 0; c < 4; c++ {
					d := int(pix[i+c]) - int(tt.want[c])
					if d < -1 || d > 1 {
						t.Fatalf("pixel %d = %v, want %v", i/4, pix[i:i+4], tt.want)
					}
				}
			}
		})
	}
}

func TestDecodeSeedFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:], []byte{0, 0, 255, 255})
	}
	pal := image.NewPaletted(src.Bounds(), color.Palette{color.RGBA{0, 0, 255, 255}})

	tests := []struct {
		name   string
		encode func(w io.Writer) error
	}{
		{"png", func(w io.Writer) error { return png.Encode(w, src) }},
		{"jpeg", func(w io.Writer) error { return jpeg.Encode(w, src, &jpeg.Options{Quality: 100}) }},
		{"gif", func(w io.Writer) error { return gif.Encode(w, pal, nil) }},
		{"webp", func(w io.Writer) error { return nativewebp.Encode(w, src, nil) }},
	}
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 2, Height: 2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatal(err)
			}
			pix, err := DecodeSeed(&buf, info)
			if err != nil {
				t.Fatalf("DecodeSeed: %v", err)
			}
			if pix[2] < 240 || pix[0] > 15 || pix[3] != 255 {
				t.Errorf("pixel = %v, want blue", pix[:4])
			}
		})
	}

	if _, err := DecodeSeed(bytes.NewReader([]byte("not an image")), info); !errors.Is(err, image.ErrFormat) {
		t.Errorf("err = %v, want image.ErrFormat", err)
	}
}

func TestLoadSeedErrors(t *testing.T) {
	info := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 4, Height: 4}
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.png"), info); err == nil {
		t.Error("expected error for missing file")
	}
	garbage := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeed(garbage, info); !errors.Is(err, image.ErrFormat) {
		t.Errorf("err = %v, want image.ErrFormat", err)
	}
}

func TestSeedCache(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(red.Pix); i += 4 {
		copy(red.Pix[i:], []byte{255, 0, 0, 255})
	}
	a := writeSeed(t, "a.png", red)
	b := writeSeed(t, "b.png", red)
	rgba := mediagl.VideoInfo{Format: mediagl.VideoFormatRGBA, Width: 2, Height: 2}
	bgra := mediagl.VideoInfo{Format: mediagl.VideoFormatBGRA, Width: 2, Height: 2}

	c := NewSeedCache(2)
	steps := []struct {
		path     string
		info     mediagl.VideoInfo
		wantHits uint64
		wantLen  int
	}{
		{a, rgba, 0, 1},
		{a, rgba, 1, 1},
		{a, bgra, 1, 2},
		{b, rgba, 1, 2}, // evicts a/rgba
		{a, bgra, 2, 2},
		{a, rgba, 2, 2}, // decoded again
	}
	for i, s := range steps {
		pix, err := c.Load(s.path, s.info)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if s.info.Format == mediagl.VideoFormatBGRA && pix[2] != 255 {
			t.Errorf("step %d: BGRA seed not swizzled: %v", i, pix[:4])
		}
		hits, _ := c.Stats()
		if hits != s.wantHits || c.Len() != s.wantLen {
			t.Errorf("step %d: hits=%d len=%d, want %d %d", i, hits, c.Len(), s.wantHits, s.wantLen)
		}
	}
	if _, misses := c.Stats(); misses != 4 {
		t.Errorf("misses = %d, want 4", misses)
	}
	if _, err := c.Load(filepath.Join(t.TempDir(), "none.png"), rgba); err == nil {
		t.Error("expected error for missing seed")
	}
}
