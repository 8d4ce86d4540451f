package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// page draws dark strokes on a light background.
func page(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 230, G: 225, B: 220, A: 255}
			if (y%12 == 5 || y%12 == 6) && x%20 < 14 {
				c = color.RGBA{R: 20, G: 20, B: 30, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocess_Binarizes(t *testing.T) {
	out := Preprocess(page(64, 48))
	require.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())
	dark, light := 0, 0
	for _, v := range out.Pix {
		switch v {
		case 0:
			dark++
		case 255:
			light++
		default:
			t.Fatalf("unexpected level %d", v)
		}
	}
	assert.Positive(t, dark)
	assert.Greater(t, light, dark)
}

func TestGrayscale_RebasesBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 20, 15))
	g := Grayscale(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), g.Bounds())
}

func TestMedian3_RemovesSpeckle(t *testing.T) {
	g := uniform(5, 5, 0)
	g.SetGray(2, 2, color.Gray{Y: 255})
	out := Median3(g)
	assert.Equal(t, uint8(0), out.GrayAt(2, 2).Y)
}

func TestCLAHE_UniformStaysUniform(t *testing.T) {
	out := CLAHE(uniform(32, 32, 120), ClipLimit, TileGrid)
	first := out.Pix[0]
	for _, v := range out.Pix {
		if v != first {
			t.Fatalf("expected uniform output, got %d and %d", first, v)
		}
	}
}

func TestCLAHE_TinyImage(t *testing.T) {
	out := CLAHE(uniform(3, 2, 50), ClipLimit, TileGrid)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
}

func TestAdaptiveThreshold(t *testing.T) {
	t.Run("uniform is background", func(t *testing.T) {
		out := AdaptiveThreshold(uniform(20, 20, 90), ThresholdBlock, ThresholdBias)
		for _, v := range out.Pix {
			require.Equal(t, uint8(255), v)
		}
	})
	t.Run("dark line is ink", func(t *testing.T) {
		g := uniform(30, 30, 240)
		for x := 0; x < 30; x++ {
			g.SetGray(x, 15, color.Gray{Y: 10})
		}
		out := AdaptiveThreshold(g, ThresholdBlock, ThresholdBias)
		assert.Equal(t, uint8(0), out.GrayAt(10, 15).Y)
		assert.Equal(t, uint8(255), out.GrayAt(10, 5).Y)
	})
}

func TestCloseInk_FillsGap(t *testing.T) {
	g := uniform(14, 10, 255)
	for x := 2; x <= 10; x++ {
		if x != 6 {
			g.SetGray(x, 5, color.Gray{Y: 0})
		}
	}
	out := CloseInk(g, 2)
	assert.Equal(t, uint8(0), out.GrayAt(6, 5).Y, "gap should be filled")
	assert.Equal(t, uint8(0), out.GrayAt(2, 5).Y)
	assert.Equal(t, uint8(255), out.GrayAt(11, 5).Y, "line must not grow")
	assert.Equal(t, uint8(255), out.GrayAt(5, 4).Y, "line must not thicken")
}

func TestCloseInk_KernelOneIsIdentity(t *testing.T) {
	g := uniform(4, 4, 255)
	assert.Same(t, g, CloseInk(g, 1))
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(uniform(4, 3, 7))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestScaleToWidth(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 20))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	out := ScaleToWidth(src, 30)
	assert.Equal(t, image.Rect(0, 0, 30, 60), out.Bounds())
	r, _, _, _ := out.At(15, 30).RGBA()
	assert.InDelta(t, 200, r>>8, 1)

	assert.Same(t, src, ScaleToWidth(src, 10))
	assert.Same(t, src, ScaleToWidth(src, 5))
	assert.Equal(t, 10*MaxUpscale, ScaleToWidth(src, 1000).Bounds().Dx())
}
