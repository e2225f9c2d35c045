// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a straight-alpha RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	Red         = Color{R: 1, A: 1}
	Green       = Color{G: 1, A: 1}
	Blue        = Color{B: 1, A: 1}
	Black       = Color{A: 1}
	White       = Color{R: 1, G: 1, B: 1, A: 1}
	Transparent = Color{}
)

// NRGBA converts c to 8-bit components, clamping out-of-range values.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: unorm8(c.R), G: unorm8(c.G), B: unorm8(c.B), A: unorm8(c.A)}
}

// Bytes returns c as 8-bit components in BGRA or RGBA byte order.
func (c Color) Bytes(bgra bool) [4]byte {
	n := c.NRGBA()
	if bgra {
		return [4]byte{n.B, n.G, n.R, n.A}
	}
	return [4]byte{n.R, n.G, n.B, n.A}
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%g, %g, %g, %g)", c.R, c.G, c.B, c.A)
}

// ParseColor parses "r,g,b,a" floats in [0,1] or "#rrggbb[aa]" hex.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("render: color %q: want 3 or 4 components", s)
	}
	v := [4]float32{3: 1}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil || f < 0 || f > 1 {
			return Color{}, fmt.Errorf("render: color component %q out of [0,1]", p)
		}
		v[i] = float32(f)
	}
	return Color{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func parseHex(s string) (Color, error) {
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("render: hex color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("render: hex color %q: %w", s, err)
	}
	return Color{
		R: float32(n>>24&0xff) / 255,
		G: float32(n>>16&0xff) / 255,
		B: float32(n>>8&0xff) / 255,
		A: float32(n&0xff) / 255,
	}, nil
}

func unorm8(v float32) uint8 {
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
