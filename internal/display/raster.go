package display

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const rasterMargin = 2

// Rasterize draws the frame in black on white and returns it in device
// orientation. bounds is the panel's native size; rotation turns the board
// clockwise, so 90 and 270 give a landscape board on a portrait panel.
func Rasterize(f Frame, bounds image.Rectangle, rotation int) *image.Gray {
	w, h := bounds.Dx(), bounds.Dy()
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}
	canvas := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	cols := (w - 2*rasterMargin) / face.Advance
	lineH := face.Height
	d := font.Drawer{Dst: canvas, Src: image.Black, Face: face}

	for i, line := range f.Lines(cols) {
		baseline := rasterMargin + face.Ascent + i*lineH
		if baseline > h {
			break
		}
		d.Dot = fixed.P(rasterMargin, baseline)
		d.DrawString(line)
		if i == 0 {
			underline(canvas, baseline+face.Descent)
		}
	}
	return rotate(canvas, rotation)
}

func underline(img *image.Gray, y int) {
	b := img.Bounds()
	if y >= b.Max.Y {
		return
	}
	for x := b.Min.X + rasterMargin; x < b.Max.X-rasterMargin; x++ {
		img.SetGray(x, y, color.Gray{Y: 0})
	}
}

// rotate turns src clockwise by rotation degrees.
func rotate(src *image.Gray, rotation int) *image.Gray {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	var dst *image.Gray
	switch rotation {
	case 90, 270:
		dst = image.NewGray(image.Rect(0, 0, sh, sw))
	case 180:
		dst = image.NewGray(image.Rect(0, 0, sw, sh))
	default:
		return src
	}
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			c := src.GrayAt(sx, sy)
			switch rotation {
			case 90:
				dst.SetGray(sh-1-sy, sx, c)
			case 180:
				dst.SetGray(sw-1-sx, sh-1-sy, c)
			case 270:
				dst.SetGray(sy, sw-1-sx, c)
			}
		}
	}
	return dst
}
