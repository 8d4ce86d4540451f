//go:build !(gocv && cgo)

package imaging

import "image"

// OpenCVAvailable reports whether this build links OpenCV; rebuild with -tags gocv
// and cgo enabled to get it.
const OpenCVAvailable = false

// PreprocessOpenCV returns ErrOpenCVUnavailable.
func PreprocessOpenCV(image.Image) (image.Image, error) {
	return nil, ErrOpenCVUnavailable
}
