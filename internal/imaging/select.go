package imaging

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// Preprocessor names.
const (
	Builtin = "builtin"
	OpenCV  = "opencv"
)

// ErrOpenCVUnavailable is returned when OpenCV preprocessing was not compiled in.
var ErrOpenCVUnavailable = errors.New("opencv preprocessing unavailable")

// NewPreprocessor returns the page preprocessing function called name. An empty name
// is Builtin. The OpenCV function falls back to Preprocess for a page it fails on.
func NewPreprocessor(name string, logger *zap.Logger) (func(image.Image) image.Image, error) {
	switch name {
	case "", Builtin:
		return func(img image.Image) image.Image { return Preprocess(img) }, nil
	case OpenCV:
		if !OpenCVAvailable {
			return nil, ErrOpenCVUnavailable
		}
		if logger == nil {
			logger = zap.NewNop()
		}
		return func(img image.Image) image.Image {
			out, err := PreprocessOpenCV(img)
			if err != nil {
				logger.Warn("opencv preprocessing failed, using builtin", zap.Error(err))
				return Preprocess(img)
			}
			return out
		}, nil
	default:
		return nil, fmt.Errorf("unknown preprocessor %q", name)
	}
}
