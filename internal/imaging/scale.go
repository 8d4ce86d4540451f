package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// MaxUpscale bounds the enlargement factor of ScaleToWidth.
const MaxUpscale = 4

// ScaleToWidth enlarges img with Catmull-Rom resampling so that it is width pixels
// wide, keeping the aspect ratio. Images already at least that wide are returned
// unchanged, and the factor never exceeds MaxUpscale.
func ScaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || width <= b.Dx() {
		return img
	}
	width = min(width, b.Dx()*MaxUpscale)
	height := b.Dy() * width / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
