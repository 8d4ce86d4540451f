//go:build gosseract && cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs tesseract in-process through libtesseract.
type Gosseract struct{}

// NewGosseract returns the in-process engine.
func NewGosseract() (*Gosseract, error) {
	client := gosseract.NewClient()
	defer client.Close()
	if client.Version() == "" {
		return nil, ErrUnavailable
	}
	return &Gosseract{}, nil
}

// Name implements Engine.
func (g *Gosseract) Name() string { return "gosseract" }

// Recognize implements Engine. The engine mode of a config string is ignored; it is
// fixed when libtesseract initializes.
func (g *Gosseract) Recognize(ctx context.Context, png []byte, config string) (string, error) {
	type result struct {
		text string
		err  error
	}
	// buffered so the worker can finish and close its client after a cancel
	ch := make(chan result, 1)
	go func() {
		text, err := recognize(png, ParseConfig(config))
		ch <- result{text, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.text, res.err
	}
}

func recognize(png []byte, settings Settings) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(settings.Languages) > 0 {
		if err := client.SetLanguage(settings.Languages...); err != nil {
			return "", fmt.Errorf("failed to set language: %w", err)
		}
	}
	if settings.PageSegMode >= 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(settings.PageSegMode)); err != nil {
			return "", fmt.Errorf("failed to set page segmentation mode %d: %w", settings.PageSegMode, err)
		}
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}
