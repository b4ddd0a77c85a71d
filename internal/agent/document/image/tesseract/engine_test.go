package tesseract

import (
	"context"
	"image"
	"image/color"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// testPage draws a black bar on a white page. Tesseract may or may not read
// anything from it; the tests only check the call succeeds.
func testPage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for y := 10; y < 30; y++ {
		for x := 10; x < 50; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func requireTesseract(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
}

func TestSplitLanguages(t *testing.T) {
	tests := []struct {
		name string
		lang string
		want []string
	}{
		{"empty defaults to english", "", []string{"eng"}},
		{"single", "deu", []string{"deu"}},
		{"combined", "deu+eng", []string{"deu", "eng"}},
		{"stray separators", "+fra + eng+", []string{"fra", "eng"}},
		{"only separators", "++", []string{"eng"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLanguages(tt.lang))
		})
	}
}

func TestEngine_Name(t *testing.T) {
	e := NewEngine(nil, logger.NewTestLogger())
	assert.Equal(t, models.EngineTesseract, e.Name())
	assert.NoError(t, e.Close())
}

func TestEngine_RecognizeCancelled(t *testing.T) {
	e := NewEngine(nil, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Recognize(ctx, testPage(100, 50), "eng")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Recognize(t *testing.T) {
	requireTesseract(t)

	e := NewEngine(nil, logger.NewTestLogger())
	defer e.Close()

	_, err := e.Recognize(context.Background(), testPage(100, 50), "")
	require.NoError(t, err)
}

func TestEngine_RecognizeUnknownLanguage(t *testing.T) {
	requireTesseract(t)

	e := NewEngine(nil, logger.NewTestLogger())
	defer e.Close()

	_, err := e.Recognize(context.Background(), testPage(100, 50), "notalanguage")
	assert.Error(t, err)
}
