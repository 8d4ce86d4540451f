// Package imaging prepares rasterized page images for OCR.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Fixed pipeline parameters.
const (
	ClipLimit      = 2.0
	TileGrid       = 8
	ThresholdBlock = 15
	ThresholdBias  = 4
	CloseKernel    = 2
)

// Preprocess converts img to gray, removes speckle noise, equalizes local contrast and
// binarizes it. The result holds only 0 and 255.
func Preprocess(img image.Image) *image.Gray {
	g := Grayscale(img)
	g = Median3(g)
	g = CLAHE(g, ClipLimit, TileGrid)
	g = AdaptiveThreshold(g, ThresholdBlock, ThresholdBias)
	return CloseInk(g, CloseKernel)
}

// Grayscale returns img as an *image.Gray with bounds starting at (0,0).
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// The filters below index Pix directly and expect bounds starting at (0,0), as
// returned by Grayscale.

// Median3 applies a 3x3 median filter with clamped edges.
func Median3(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					win[n] = src.Pix[clamp(y+dy, h)*src.Stride+clamp(x+dx, w)]
					n++
				}
			}
			dst.Pix[y*dst.Stride+x] = median9(&win)
		}
	}
	return dst
}

// CLAHE performs contrast limited adaptive histogram equalization over a grid x grid
// tiling, blending neighbouring tile mappings bilinearly.
func CLAHE(src *image.Gray, clip float64, grid int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gx, gy := min(grid, w), min(grid, h)
	if gx == 0 || gy == 0 {
		return src
	}
	luts := make([][256]uint8, gx*gy)
	for ty := 0; ty < gy; ty++ {
		for tx := 0; tx < gx; tx++ {
			x0, x1 := tx*w/gx, (tx+1)*w/gx
			y0, y1 := ty*h/gy, (ty+1)*h/gy
			luts[ty*gx+tx] = tileLUT(src, x0, y0, x1, y1, clip)
		}
	}

	tw, th := float64(w)/float64(gx), float64(h)/float64(gy)
	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/th - 0.5
		y1 := int(math.Floor(fy))
		ay := fy - float64(y1)
		y2 := y1 + 1
		y1, y2 = clamp(y1, gy), clamp(y2, gy)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/tw - 0.5
			x1 := int(math.Floor(fx))
			ax := fx - float64(x1)
			x2 := x1 + 1
			x1, x2 = clamp(x1, gx), clamp(x2, gx)

			v := src.Pix[y*src.Stride+x]
			top := (1-ax)*float64(luts[y1*gx+x1][v]) + ax*float64(luts[y1*gx+x2][v])
			bot := (1-ax)*float64(luts[y2*gx+x1][v]) + ax*float64(luts[y2*gx+x2][v])
			dst.Pix[y*dst.Stride+x] = uint8(math.Round((1-ay)*top + ay*bot))
		}
	}
	return dst
}

func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clip float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	limit := int(clip * float64(area) / 256)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	bonus, residual := excess/256, excess%256
	for i := range hist {
		hist[i] += bonus
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	sum := 0
	scale := 255.0 / float64(max(area, 1))
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}

// AdaptiveThreshold sets a pixel to 255 when it is brighter than the mean of its
// block x block neighbourhood minus bias, and to 0 otherwise.
func AdaptiveThreshold(src *image.Gray, block, bias int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	// integral image with a zero row and column
	sums := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var row int64
		for x := 0; x < w; x++ {
			row += int64(src.Pix[y*src.Stride+x])
			sums[(y+1)*(w+1)+x+1] = sums[y*(w+1)+x+1] + row
		}
	}

	r := block / 2
	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		ya, yb := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			xa, xb := max(x-r, 0), min(x+r+1, w)
			total := sums[yb*(w+1)+xb] - sums[ya*(w+1)+xb] - sums[yb*(w+1)+xa] + sums[ya*(w+1)+xa]
			mean := float64(total) / float64((xb-xa)*(yb-ya))
			if float64(src.Pix[y*src.Stride+x]) > mean-float64(bias) {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// CloseInk performs a morphological closing of the dark pixels with a k x k square,
// filling gaps narrower than k in glyph strokes.
func CloseInk(src *image.Gray, k int) *image.Gray {
	if k <= 1 {
		return src
	}
	// growing ink is a min filter, shrinking it back is a max filter over the reflected window
	grown := windowFilter(src, k, 0, false)
	return windowFilter(grown, k, -(k - 1), true)
}

func windowFilter(src *image.Gray, k, offset int, takeMax bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := src.Pix[y*src.Stride+x]
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					p := src.Pix[clamp(y+offset+dy, h)*src.Stride+clamp(x+offset+dx, w)]
					if (takeMax && p > v) || (!takeMax && p < v) {
						v = p
					}
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

func median9(win *[9]uint8) uint8 {
	for i := 1; i < len(win); i++ {
		for j := i; j > 0 && win[j] < win[j-1]; j-- {
			win[j], win[j-1] = win[j-1], win[j]
		}
	}
	return win[4]
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
