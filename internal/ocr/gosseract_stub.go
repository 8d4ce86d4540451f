//go:build !(gosseract && cgo)

package ocr

import "context"

// Gosseract is unavailable in this build; rebuild with -tags gosseract and cgo enabled.
type Gosseract struct{}

// NewGosseract returns ErrUnavailable.
func NewGosseract() (*Gosseract, error) {
	return nil, ErrUnavailable
}

// Name implements Engine.
func (g *Gosseract) Name() string { return "gosseract" }

// Recognize implements Engine.
func (g *Gosseract) Recognize(ctx context.Context, png []byte, config string) (string, error) {
	return "", ErrUnavailable
}
