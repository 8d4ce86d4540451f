package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/hyperjump/banglarag/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	pages []string
	err   error
	calls int
}

func (f *fakeText) PageTexts(content []byte) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

type fakeRaster struct {
	pages int
	err   error
	calls int
}

func (f *fakeRaster) Name() string { return "fake" }

func (f *fakeRaster) Rasterize(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]image.Image, f.pages)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, 5, 5))
	}
	return out, nil
}

// fakeEngine answers by whether it was handed the preprocessed (3x3) or raw (5x5) page.
type fakeEngine struct {
	processed func(config string, call int) (string, error)
	raw       func(config string) (string, error)
	calls     []string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, png []byte, config string) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return "", err
	}
	if cfg.Width == 3 {
		f.calls = append(f.calls, "processed:"+config)
		return f.processed(config, len(f.calls))
	}
	f.calls = append(f.calls, "raw:"+config)
	return f.raw(config)
}

func shrink(image.Image) image.Image {
	return image.NewGray(image.Rect(0, 0, 3, 3))
}

func newTestAdapter(text *fakeText, r *fakeRaster, e *fakeEngine, opts Options) *Adapter {
	return NewAdapter(r, e, opts, WithTextReader(text), WithPreprocessor(shrink))
}

func okEngine(text string) *fakeEngine {
	return &fakeEngine{
		processed: func(string, int) (string, error) { return text, nil },
		raw:       func(string) (string, error) { return text, nil },
	}
}

var ocrPage = strings.Repeat("বাংলা লেখা ", 10)

func TestExtract_DirectAcceptedAbove200(t *testing.T) {
	// the page marker adds 15 characters
	text := &fakeText{pages: []string{strings.Repeat("ক", 186)}}
	r := &fakeRaster{pages: 1}
	a := newTestAdapter(text, r, okEngine(ocrPage), Options{})

	res := a.Extract(context.Background(), "doc.pdf", []byte("%PDF"), DirectWithOCRFallback, nil)
	assert.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, "--- Page 1 --- "+strings.Repeat("ক", 186), res.Text)
	assert.Equal(t, 0, r.calls)
}

func TestExtract_OCRBelow200(t *testing.T) {
	text := &fakeText{pages: []string{strings.Repeat("ক", 184)}}
	r := &fakeRaster{pages: 1}
	a := newTestAdapter(text, r, okEngine(ocrPage), Options{})

	res := a.Extract(context.Background(), "doc.pdf", []byte("%PDF"), DirectWithOCRFallback, nil)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, strings.TrimSpace(ocrPage), res.Text)
}

func TestExtract_OCROnlySkipsDirect(t *testing.T) {
	text := &fakeText{pages: []string{""}}
	r := &fakeRaster{pages: 3}
	e := okEngine(ocrPage)
	a := newTestAdapter(text, r, e, Options{})

	res := a.Extract(context.Background(), "scan.pdf", []byte("%PDF"), OCROnly, nil)
	assert.Equal(t, 0, text.calls)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, e.calls, 3)
}

func TestExtract_RasterFailureWarns(t *testing.T) {
	rec := &notify.Recorder{}
	a := newTestAdapter(&fakeText{}, &fakeRaster{err: errors.New("no renderer")}, okEngine(""), Options{})

	res := a.Extract(context.Background(), "scan.pdf", nil, OCROnly, rec)
	assert.Empty(t, res.Text)
	require.Len(t, rec.Warnings(), 1)
	assert.Contains(t, rec.Warnings()[0], "scan.pdf")
}

func TestExtract_DirectFailureFallsBackToOCR(t *testing.T) {
	rec := &notify.Recorder{}
	text := &fakeText{err: errors.New("malformed")}
	r := &fakeRaster{pages: 1}
	a := newTestAdapter(text, r, okEngine(ocrPage), Options{})

	res := a.Extract(context.Background(), "doc.pdf", nil, DirectWithOCRFallback, rec)
	assert.Equal(t, MethodOCR, res.Method)
	assert.NotEmpty(t, res.Text)
	assert.Len(t, rec.Warnings(), 1)
}

func TestDirect_SkipsSparsePages(t *testing.T) {
	long := strings.Repeat("পাতা ", 20)
	text := &fakeText{pages: []string{"শিরোনাম", long, "   ", long}}
	a := newTestAdapter(text, &fakeRaster{}, okEngine(""), Options{})

	out, kept := a.Direct("doc.pdf", nil, nil)
	assert.Equal(t, 2, kept)
	assert.NotContains(t, out, "Page 1 ")
	assert.Contains(t, out, "--- Page 2 ---")
	assert.Contains(t, out, "--- Page 4 ---")
	assert.NotContains(t, out, "\n")
}

func TestDirect_NormalizesPages(t *testing.T) {
	page := "সে তর ্ক করে " + strings.Repeat("অনেক কথা ", 10)
	a := newTestAdapter(&fakeText{pages: []string{page}}, &fakeRaster{}, okEngine(""), Options{})
	out, _ := a.Direct("doc.pdf", nil, nil)
	assert.Contains(t, out, "তর্ক")
}

func TestOCR_KeepsBestConfig(t *testing.T) {
	e := &fakeEngine{
		processed: func(config string, _ int) (string, error) {
			if config == "b" {
				return ocrPage + "আরও", nil
			}
			if config == "c" {
				return "", errors.New("bad config")
			}
			return ocrPage, nil
		},
		raw: func(string) (string, error) { return "", nil },
	}
	a := newTestAdapter(&fakeText{}, &fakeRaster{pages: 1}, e, Options{OCRConfigs: []string{"a", "b", "c"}})
	out, pages, err := a.OCR(context.Background(), "scan.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.True(t, strings.HasSuffix(out, "আরও"))
	assert.Equal(t, []string{"processed:a", "processed:b", "processed:c"}, e.calls)
}

func TestOCR_RetriesRawImageWhenShort(t *testing.T) {
	e := &fakeEngine{
		processed: func(string, int) (string, error) { return "ক খ", nil },
		raw:       func(string) (string, error) { return ocrPage, nil },
	}
	a := newTestAdapter(&fakeText{}, &fakeRaster{pages: 1}, e, Options{OCRConfigs: []string{"--psm 6 -l ben"}})
	out, _, err := a.OCR(context.Background(), "scan.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(ocrPage), out)
	assert.Equal(t, []string{"processed:--psm 6 -l ben", "raw:--psm 6 -l ben"}, e.calls)
}

func TestOCR_NormalizesEachPage(t *testing.T) {
	e := okEngine("আমাদের বিত র ্ক " + ocrPage)
	a := newTestAdapter(&fakeText{}, &fakeRaster{pages: 2}, e, Options{})
	out, _, err := a.OCR(context.Background(), "scan.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "র্ক"))
	assert.NotContains(t, out, "র ্ক")
}

func TestOCR_FailedPageContributesNothing(t *testing.T) {
	e := &fakeEngine{
		processed: func(_ string, call int) (string, error) {
			if call == 1 {
				return "", errors.New("crash")
			}
			return ocrPage, nil
		},
		raw: func(string) (string, error) { return "", errors.New("crash") },
	}
	a := newTestAdapter(&fakeText{}, &fakeRaster{pages: 2}, e, Options{})
	out, pages, err := a.OCR(context.Background(), "scan.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, strings.TrimSpace(ocrPage), out)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
		err  bool
	}{
		{"ocr", OCROnly, false},
		{"OCR_ONLY", OCROnly, false},
		{"direct", DirectWithOCRFallback, false},
		{"", DirectWithOCRFallback, false},
		{"direct_with_ocr_fallback", DirectWithOCRFallback, false},
		{"magic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPDFTextReader_Garbage(t *testing.T) {
	_, err := PDFTextReader{}.PageTexts([]byte("definitely not a pdf"))
	assert.Error(t, err)
}
