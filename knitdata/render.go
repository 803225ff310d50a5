package knitdata

import (
	"image"
	"image/color"
	"strings"
)

// String renders the pattern as text, '*' for a set stitch and ' ' otherwise.
func (p *Pattern) String() string {
	var b strings.Builder
	b.Grow(len(p.RowData) * (2*p.Stitches + 1))
	for _, row := range p.RowData {
		for i, v := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			if v != 0 {
				b.WriteByte('*')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Image renders the pattern as a grayscale image, one pixel per stitch:
// set stitches are black, clear stitches white. Row 0 is the top line.
func (p *Pattern) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Stitches, len(p.RowData)))
	for y, row := range p.RowData {
		for x, v := range row {
			if v != 0 {
				img.SetGray(x, y, color.Gray{Y: 0x00})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}
	return img
}
