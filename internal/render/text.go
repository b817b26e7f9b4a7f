package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	minFontSize  = 6.0
	shrinkFactor = 0.9
	lineSpacing  = 1.2
)

var (
	ErrInvalidSize  = errors.New("frame size must be positive")
	ErrTextTooLarge = errors.New("text does not fit the frame")
)

// TextRenderer draws centered, word-wrapped text onto a solid frame.
// It is safe for concurrent use; every call gets its own font face.
type TextRenderer struct {
	font  *opentype.Font
	style Style
}

// NewTextRenderer creates a renderer using the embedded Go Bold font.
// style is used for frames whose caller passes a zero Style.
func NewTextRenderer(style Style) (*TextRenderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	return &TextRenderer{font: f, style: style}, nil
}

// Render draws text centered on a width x height frame. Text wraps at word
// boundaries and the font shrinks until every line fits inside the margins.
// At the smallest size, words wider than the frame are broken between
// runes; text that still overflows returns ErrTextTooLarge.
func (r *TextRenderer) Render(text string, width, height int, style Style) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if style.IsZero() {
		style = r.style
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(style.Background), image.Point{}, draw.Src)

	words := strings.Fields(text)
	if len(words) == 0 {
		return img, nil
	}

	margin := style.Margin
	if 2*margin >= width || 2*margin >= height {
		margin = 0
	}
	maxW := fixed.I(width - 2*margin)
	maxH := height - 2*margin

	size := style.FontSize
	if size <= 0 {
		size = minFontSize
	}

	for {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create font face: %w", err)
		}

		lines := wrap(words, face, maxW)
		lineH := int(float64(face.Metrics().Height.Ceil()) * lineSpacing)

		if size <= minFontSize && !fits(lines, face, maxW, lineH, maxH) {
			lines = wrap(breakWords(words, face, maxW), face, maxW)
			if !fits(lines, face, maxW, lineH, maxH) {
				face.Close()
				return nil, fmt.Errorf("%w: %d lines at %gpt in %dx%d", ErrTextTooLarge, len(lines), size, width, height)
			}
		}

		if fits(lines, face, maxW, lineH, maxH) {
			drawLines(img, lines, face, style, lineH)
			face.Close()
			return img, nil
		}

		face.Close()
		size = max(size*shrinkFactor, minFontSize)
	}
}

// wrap greedily packs words into lines no wider than maxW. A word wider
// than maxW gets a line of its own.
func wrap(words []string, face font.Face, maxW fixed.Int26_6) []string {
	var lines []string
	current := ""

	for _, w := range words {
		candidate := w
		if current != "" {
			candidate = current + " " + w
		}

		if current != "" && font.MeasureString(face, candidate) > maxW {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}

	return append(lines, current)
}

// breakWords splits every word wider than maxW into the longest rune
// prefixes that fit.
func breakWords(words []string, face font.Face, maxW fixed.Int26_6) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		for font.MeasureString(face, w) > maxW {
			cut := 0
			for i := range w {
				if i > 0 && font.MeasureString(face, w[:i]) > maxW {
					break
				}
				cut = i
			}
			if cut == 0 {
				// A single glyph wider than the frame.
				_, n := utf8.DecodeRuneInString(w)
				cut = n
			}
			out = append(out, w[:cut])
			w = w[cut:]
		}
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func fits(lines []string, face font.Face, maxW fixed.Int26_6, lineH, maxH int) bool {
	if len(lines)*lineH > maxH {
		return false
	}
	for _, l := range lines {
		if font.MeasureString(face, l) > maxW {
			return false
		}
	}
	return true
}

func drawLines(img *image.RGBA, lines []string, face font.Face, style Style, lineH int) {
	b := img.Bounds()
	m := face.Metrics()

	blockH := len(lines) * lineH
	// Baseline of the first line, centering the block and each line's glyph box.
	top := (b.Dy()-blockH)/2 + (lineH-m.Height.Ceil())/2 + m.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(style.Foreground),
		Face: face,
	}

	for i, l := range lines {
		w := d.MeasureString(l)
		x := (fixed.I(b.Dx()) - w) / 2
		d.Dot = fixed.Point26_6{X: x, Y: fixed.I(top + i*lineH)}
		d.DrawString(l)
	}
}
