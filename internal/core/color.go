package core

import (
	"strconv"
	"strings"
)

// RGBA is a color with channels in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// NeutralGray is used whenever a hex string cannot be interpreted.
var NeutralGray = RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}

// ParseHexColor interprets "RGB", "RRGGBB" and "AARRGGBB" strings, with or
// without a leading '#'. Any other length, or non-hex digits, degrade to
// NeutralGray instead of failing.
func ParseHexColor(s string) RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return NeutralGray
	}

	var a, r, g, b uint64
	switch len(s) {
	case 3:
		a, r, g, b = 255, (v>>8)*17, (v>>4&0xF)*17, (v&0xF)*17
	case 6:
		a, r, g, b = 255, v>>16, v>>8&0xFF, v&0xFF
	case 8:
		a, r, g, b = v>>24, v>>16&0xFF, v>>8&0xFF, v&0xFF
	default:
		return NeutralGray
	}

	return RGBA{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
		A: float64(a) / 255,
	}
}
