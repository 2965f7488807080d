// Package banner rasterizes formatted trailer text into the image strip
// that gets stacked beneath the original picture.
package banner

import (
	"image"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// lineSpacing multiplies the font height between lines. The same value feeds
// the measure and draw passes so the canvas always fits the text.
const lineSpacing = 1.0

// Rasterizer renders multiline text at a fixed face and point size. It holds
// only read-only state and may be shared across files.
type Rasterizer struct {
	Face   font.Face
	Points float64
}

// NewRasterizer creates a rasterizer for the given face and point size.
func NewRasterizer(face font.Face, points float64) *Rasterizer {
	return &Rasterizer{Face: face, Points: points}
}

// Render draws text left-aligned on a white canvas of the given pixel width.
// The canvas height is the measured multiline text height plus half the
// point size; the text starts at a left margin of a quarter of the point
// size. Lines are not wrapped: anything wider than the canvas is clipped.
func (r *Rasterizer) Render(text string, width int) image.Image {
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(r.Face)
	lines := strings.Split(text, "\n")
	textHeight := measure.FontHeight() * lineSpacing * float64(len(lines))

	height := int(textHeight) + int(r.Points)/2
	if height < 1 {
		height = 1
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(r.Face)
	dc.SetRGB(0, 0, 0)

	x := r.Points / 4
	lineHeight := dc.FontHeight() * lineSpacing
	y := 0.0
	for _, line := range lines {
		y += lineHeight
		dc.DrawString(line, x, y)
	}
	return dc.Image()
}
