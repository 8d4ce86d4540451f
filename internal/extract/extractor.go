// Package extract turns PDF bytes into normalized Bengali text, reading the embedded
// text layer when there is one and falling back to OCR otherwise.
package extract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/hyperjump/banglarag/internal/bengali"
	"github.com/hyperjump/banglarag/internal/imaging"
	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/hyperjump/banglarag/internal/ocr"
	"github.com/hyperjump/banglarag/internal/raster"
	"github.com/hyperjump/banglarag/pkg/utils"
	"go.uber.org/zap"
)

// Strategy selects how a document is read.
type Strategy string

const (
	// OCROnly rasterizes and recognizes every page without looking at the text layer.
	OCROnly Strategy = "ocr_only"
	// DirectWithOCRFallback reads the text layer and runs OCR only when it is nearly empty.
	DirectWithOCRFallback Strategy = "direct_with_ocr_fallback"
)

// ParseStrategy accepts the canonical names and the short forms "ocr" and "direct".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ocr", "ocr_only":
		return OCROnly, nil
	case "", "direct", "auto", "direct_with_ocr_fallback":
		return DirectWithOCRFallback, nil
	}
	return "", fmt.Errorf("unknown extraction strategy %q", s)
}

// Method records which path produced a Result.
type Method string

const (
	MethodDirect Method = "direct"
	MethodOCR    Method = "ocr"
)

// Options are the tunables of extraction.
type Options struct {
	DPI int
	// OCRConfigs are tried on every preprocessed page, best first.
	OCRConfigs []string
	// MinOCRChars below which the raw page image is recognized again.
	MinOCRChars int
	// MinPageChars below which a text layer page is treated as a scan.
	MinPageChars int
	// DirectAcceptChars is the text layer size above which OCR is skipped.
	DirectAcceptChars int
}

// DefaultOptions returns the tuned defaults for Bengali documents.
func DefaultOptions() Options {
	return Options{
		DPI:               400,
		OCRConfigs:        []string{"--oem 3 --psm 6 -l ben"},
		MinOCRChars:       50,
		MinPageChars:      50,
		DirectAcceptChars: 200,
	}
}

// Result is the extracted text of one document.
type Result struct {
	Text   string `json:"-"`
	Method Method `json:"method"`
	Pages  int    `json:"pages"`
}

// Adapter extracts document text with a direct reader and an OCR pipeline.
type Adapter struct {
	text       TextReader
	rasterizer raster.Rasterizer
	engine     ocr.Engine
	opts       Options
	preprocess func(image.Image) image.Image
	logger     *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// WithTextReader replaces the ledongthuc/pdf text reader.
func WithTextReader(r TextReader) AdapterOption {
	return func(a *Adapter) { a.text = r }
}

// WithPreprocessor replaces imaging.Preprocess.
func WithPreprocessor(fn func(image.Image) image.Image) AdapterOption {
	return func(a *Adapter) { a.preprocess = fn }
}

// NewAdapter returns an Adapter. Zero option fields take their defaults.
func NewAdapter(r raster.Rasterizer, engine ocr.Engine, opts Options, options ...AdapterOption) *Adapter {
	def := DefaultOptions()
	if opts.DPI <= 0 {
		opts.DPI = def.DPI
	}
	if len(opts.OCRConfigs) == 0 {
		opts.OCRConfigs = def.OCRConfigs
	}
	if opts.MinOCRChars <= 0 {
		opts.MinOCRChars = def.MinOCRChars
	}
	if opts.MinPageChars <= 0 {
		opts.MinPageChars = def.MinPageChars
	}
	if opts.DirectAcceptChars <= 0 {
		opts.DirectAcceptChars = def.DirectAcceptChars
	}
	a := &Adapter{
		text:       PDFTextReader{},
		rasterizer: r,
		engine:     engine,
		opts:       opts,
		preprocess: func(img image.Image) image.Image { return imaging.Preprocess(img) },
	}
	for _, o := range options {
		o(a)
	}
	a.logger = utils.OrNop(a.logger)
	return a
}

// Extract returns the normalized text of one document. Failures never escape: they
// are reported to n and yield empty text.
func (a *Adapter) Extract(ctx context.Context, name string, content []byte, strategy Strategy, n notify.Notifier) Result {
	n = notify.OrNop(n)
	if strategy != OCROnly {
		n.Info(fmt.Sprintf("Reading text layer of %s", name))
		text, pages := a.Direct(name, content, n)
		if utils.TrimmedLen(text) > a.opts.DirectAcceptChars {
			return Result{Text: text, Method: MethodDirect, Pages: pages}
		}
		n.Info(fmt.Sprintf("Little embedded text in %s, switching to OCR", name))
	}

	text, pages, err := a.OCR(ctx, name, content, n)
	if err != nil {
		a.logger.Warn("ocr failed", zap.String("source", name), zap.Error(err))
		n.Warn(fmt.Sprintf("OCR failed for %s: %v", name, err))
		return Result{Method: MethodOCR}
	}
	return Result{Text: text, Method: MethodOCR, Pages: pages}
}

// Direct reads the text layer. Pages shorter than MinPageChars characters after trimming
// are skipped. It returns the cleaned text and the number of pages kept.
func (a *Adapter) Direct(name string, content []byte, n notify.Notifier) (string, int) {
	pages, err := a.text.PageTexts(content)
	if err != nil {
		a.logger.Warn("direct extraction failed", zap.String("source", name), zap.Error(err))
		notify.OrNop(n).Warn(fmt.Sprintf("Direct text extraction failed for %s: %v", name, err))
		return "", 0
	}

	var b strings.Builder
	kept := 0
	for i, page := range pages {
		if utils.TrimmedLen(page) < a.opts.MinPageChars {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i+1)
		b.WriteString(bengali.Normalize(page))
		b.WriteString("\n")
		kept++
	}
	a.logger.Debug("direct extraction",
		zap.String("source", name), zap.Int("pages", len(pages)), zap.Int("kept", kept))
	return bengali.Clean(b.String()), kept
}

// OCR rasterizes every page and recognizes it. A page whose recognition fails
// entirely contributes nothing. Rasterization failures and panics are returned.
func (a *Adapter) OCR(ctx context.Context, name string, content []byte, n notify.Notifier) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("ocr panic: %v", r)
		}
	}()
	n = notify.OrNop(n)

	n.Info(fmt.Sprintf("Rasterizing %s at %d DPI", name, a.opts.DPI))
	images, err := a.rasterizer.Rasterize(ctx, content, a.opts.DPI)
	if err != nil {
		return "", 0, fmt.Errorf("failed to rasterize: %w", err)
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		n.Progress(fmt.Sprintf("OCR %s", name), i+1, len(images))
		texts = append(texts, bengali.Normalize(a.recognizePage(ctx, name, i+1, img)))
	}
	return bengali.Clean(strings.Join(texts, "\n\n")), len(images), nil
}

func (a *Adapter) recognizePage(ctx context.Context, name string, pageNr int, img image.Image) string {
	logger := a.logger.With(zap.String("source", name), zap.Int("page", pageNr))
	processed, err := imaging.EncodePNG(a.preprocess(img))
	if err != nil {
		logger.Warn("failed to encode page", zap.Error(err))
		return ""
	}

	candidates := make([]ocr.Candidate, len(a.opts.OCRConfigs))
	for i, cfg := range a.opts.OCRConfigs {
		cfg := cfg
		candidates[i] = ocr.Candidate{
			Name: cfg,
			Run: func(ctx context.Context) (string, error) {
				return a.engine.Recognize(ctx, processed, cfg)
			},
		}
	}
	fallback := ocr.Candidate{
		Name: "raw " + a.opts.OCRConfigs[0],
		Run: func(ctx context.Context) (string, error) {
			raw, err := imaging.EncodePNG(img)
			if err != nil {
				return "", err
			}
			return a.engine.Recognize(ctx, raw, a.opts.OCRConfigs[0])
		},
	}

	selector := &ocr.Selector{Score: ocr.TrimmedLen, MinScore: a.opts.MinOCRChars, Logger: logger}
	sel, err := selector.Select(ctx, candidates, &fallback)
	if err != nil {
		logger.Warn("no OCR result for page", zap.Error(err))
		return ""
	}
	logger.Debug("page recognized",
		zap.String("candidate", sel.Candidate), zap.Int("chars", sel.Score), zap.Bool("fallback", sel.UsedFallback))
	return sel.Text
}
