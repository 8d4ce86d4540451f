//go:build gocv && cgo

package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVAvailable reports whether this build links OpenCV.
const OpenCVAvailable = true

// PreprocessOpenCV runs the page pipeline on OpenCV: grayscale, non-local means
// denoising, CLAHE, Gaussian adaptive threshold and ink closing.
func PreprocessOpenCV(img image.Image) (image.Image, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoising(gray, &denoised)

	clahe := gocv.NewCLAHEWithParams(ClipLimit, image.Pt(TileGrid, TileGrid))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(denoised, &enhanced)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.AdaptiveThreshold(enhanced, &binary, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinary, ThresholdBlock, ThresholdBias)

	// ink is dark, so closing the ink is an opening of the white background
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(CloseKernel, CloseKernel))
	defer kernel.Close()
	cleaned := gocv.NewMat()
	defer cleaned.Close()
	gocv.MorphologyEx(binary, &cleaned, gocv.MorphOpen, kernel)

	out, err := cleaned.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}
	return out, nil
}
