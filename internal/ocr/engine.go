// Package ocr wraps OCR engines and picks the best of several recognition attempts.
package ocr

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Engine recognizes text in a PNG image. config uses tesseract command-line syntax,
// e.g. "--oem 3 --psm 6 -l ben".
type Engine interface {
	Recognize(ctx context.Context, png []byte, config string) (string, error)
	Name() string
}

// ErrUnavailable is returned by engines that were not compiled in or cannot run.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Settings are the options understood in a config string.
type Settings struct {
	Languages   []string
	PageSegMode int // -1 when unset
	EngineMode  int // -1 when unset
}

// ParseConfig reads -l, --psm and --oem from a tesseract style config string.
// Unknown flags are ignored.
func ParseConfig(config string) Settings {
	s := Settings{PageSegMode: -1, EngineMode: -1}
	fields := strings.Fields(config)
	for i := 0; i < len(fields); i++ {
		var next string
		if i+1 < len(fields) {
			next = fields[i+1]
		}
		switch fields[i] {
		case "-l":
			if next != "" {
				s.Languages = strings.Split(next, "+")
				i++
			}
		case "--psm":
			if n, err := strconv.Atoi(next); err == nil {
				s.PageSegMode = n
				i++
			}
		case "--oem":
			if n, err := strconv.Atoi(next); err == nil {
				s.EngineMode = n
				i++
			}
		}
	}
	return s
}
