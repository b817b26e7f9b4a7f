package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Style describes how a text frame looks.
type Style struct {
	Foreground color.RGBA
	Background color.RGBA
	FontSize   float64
	Margin     int
}

// IsZero reports whether no style was set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// ParseHexColor parses "#rgb" or "#rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}

// NewStyle builds a Style from hex colors.
func NewStyle(foreground, background string, fontSize float64, margin int) (Style, error) {
	fg, err := ParseHexColor(foreground)
	if err != nil {
		return Style{}, fmt.Errorf("foreground: %w", err)
	}

	bg, err := ParseHexColor(background)
	if err != nil {
		return Style{}, fmt.Errorf("background: %w", err)
	}

	if fontSize <= 0 {
		return Style{}, fmt.Errorf("font size must be positive, got %v", fontSize)
	}

	if margin < 0 {
		return Style{}, fmt.Errorf("margin must not be negative, got %d", margin)
	}

	return Style{
		Foreground: fg,
		Background: bg,
		FontSize:   fontSize,
		Margin:     margin,
	}, nil
}
