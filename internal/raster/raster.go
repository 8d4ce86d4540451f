// Package raster turns PDF pages into images for OCR.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"
)

// Rasterizer renders every page of a PDF to an image, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error)
	Name() string
}

// ErrNoPages is returned when a rasterizer produced no page images.
var ErrNoPages = errors.New("no page images produced")

// Chain tries each rasterizer in order and returns the first non-empty result.
type Chain struct {
	rasterizers []Rasterizer
	logger      *zap.Logger
}

// NewChain returns a Chain over rs. A nil logger disables logging.
func NewChain(logger *zap.Logger, rs ...Rasterizer) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{rasterizers: rs, logger: logger}
}

// Name lists the chained rasterizers.
func (c *Chain) Name() string {
	names := make([]string, len(c.rasterizers))
	for i, r := range c.rasterizers {
		names[i] = r.Name()
	}
	return strings.Join(names, "|")
}

// Rasterize returns the pages from the first rasterizer that succeeds.
func (c *Chain) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error) {
	var errs []error
	for _, r := range c.rasterizers {
		pages, err := r.Rasterize(ctx, pdf, dpi)
		if err == nil && len(pages) == 0 {
			err = ErrNoPages
		}
		if err != nil {
			c.logger.Warn("rasterizer failed", zap.String("rasterizer", r.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			continue
		}
		return pages, nil
	}
	if len(errs) == 0 {
		return nil, errors.New("no rasterizer configured")
	}
	return nil, errors.Join(errs...)
}
