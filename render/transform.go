// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"
	"strings"
)

// Transform is the orientation of the output relative to the framebuffer:
// an optional horizontal flip followed by a counter-clockwise rotation.
type Transform uint8

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

var transformNames = [...]string{
	"normal", "90", "180", "270",
	"flipped", "flipped-90", "flipped-180", "flipped-270",
}

func (t Transform) String() string {
	if int(t) < len(transformNames) {
		return transformNames[t]
	}
	return fmt.Sprintf("Transform(%d)", uint8(t))
}

// ParseTransform parses a transform name as printed by String.
func ParseTransform(s string) (Transform, error) {
	for i, n := range transformNames {
		if strings.EqualFold(s, n) {
			return Transform(i), nil
		}
	}
	return 0, fmt.Errorf("render: unknown transform %q", s)
}

func (t Transform) flipped() bool { return t >= TransformFlipped && t <= TransformFlipped270 }
func (t Transform) quarterTurns() int { return int(t) % 4 }

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	switch t {
	case Transform90:
		return Transform270
	case Transform270:
		return Transform90
	default:
		// 180 and every flipped transform are their own inverse.
		return t
	}
}

// TransformSize returns the framebuffer size holding an output of size
// under t.
func TransformSize(t Transform, size image.Point) image.Point {
	if t.quarterTurns()%2 == 1 {
		return image.Pt(size.Y, size.X)
	}
	return size
}

// TransformRect maps r from an output of the given size into framebuffer
// pixels.
func TransformRect(t Transform, r image.Rectangle, size image.Point) image.Rectangle {
	w, h := size.X, size.Y
	if t.flipped() {
		r = image.Rect(w-r.Max.X, r.Min.Y, w-r.Min.X, r.Max.Y)
	}
	switch t.quarterTurns() {
	case 1:
		return image.Rect(h-r.Max.Y, r.Min.X, h-r.Min.Y, r.Max.X)
	case 2:
		return image.Rect(w-r.Max.X, h-r.Max.Y, w-r.Min.X, h-r.Min.Y)
	case 3:
		return image.Rect(r.Min.Y, w-r.Max.X, r.Max.Y, w-r.Min.X)
	default:
		return r
	}
}

// transformPixels reorients a w x h block of 4-byte pixels the same way
// TransformRect maps coordinates. The byte order inside a pixel is kept.
func transformPixels(t Transform, pix []byte, w, h int) (out []byte, ow, oh int) {
	size := image.Pt(w, h)
	osize := TransformSize(t, size)
	out = make([]byte, len(pix))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := TransformRect(t, image.Rect(x, y, x+1, y+1), size).Min
			copy(out[(d.Y*osize.X+d.X)*4:][:4], pix[(y*w+x)*4:][:4])
		}
	}
	return out, osize.X, osize.Y
}
