package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	pdfcpuAPI "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/hyperjump/banglarag/internal/imaging"
)

// EmbeddedImages takes the largest image embedded in each page. Scanned PDFs carry one
// full-page image per page, so this works without an external renderer. An image
// narrower than the page width at dpi is upscaled toward it.
type EmbeddedImages struct{}

// Name implements Rasterizer.
func (EmbeddedImages) Name() string { return "pdfcpu" }

// Rasterize implements Rasterizer.
func (EmbeddedImages) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error) {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTIMAGES
	pctx, err := pdfcpuAPI.ReadValidateAndOptimize(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	// page sizes are in points; a missing size leaves the image unscaled
	dims, _ := pctx.PageDims()

	var pages []image.Image
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		imgs, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
		if err != nil {
			return nil, fmt.Errorf("failed to extract images of page %d: %w", pageNr, err)
		}
		best := largest(imgs)
		if best == nil {
			return nil, fmt.Errorf("page %d has no decodable image", pageNr)
		}
		if i := pageNr - 1; dpi > 0 && i < len(dims) {
			best = imaging.ScaleToWidth(best, TargetWidth(dims[i].Width, dpi))
		}
		pages = append(pages, best)
	}
	return pages, nil
}

func largest(imgs map[int]model.Image) image.Image {
	var best image.Image
	bestArea := 0
	for _, img := range imgs {
		if img.Reader == nil {
			continue
		}
		decoded, _, err := image.Decode(img.Reader)
		if err != nil {
			continue
		}
		b := decoded.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = decoded, area
		}
	}
	return best
}

// TargetWidth is the pixel width of a page widthPt points wide rendered at dpi.
func TargetWidth(widthPt float64, dpi int) int {
	return int(widthPt / 72 * float64(dpi))
}
