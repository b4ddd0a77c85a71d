package agent

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

type plainLoader struct {
	pages []models.Page
	calls int
}

func (p *plainLoader) Load(ctx context.Context, path string, opts document.Options) ([]models.Page, error) {
	p.calls++
	return p.pages, nil
}

// widthRasterizer writes one PNG per page; page i is 10+i pixels wide so
// recognised text can be traced back to its page.
type widthRasterizer struct {
	pages   int
	gotDPI  int
	lastDir string
	err     error
}

func (r *widthRasterizer) Rasterize(ctx context.Context, path string, dpi int) (*document.RenderedPages, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.gotDPI = dpi

	dir, err := os.MkdirTemp("", "loader-test-*")
	if err != nil {
		return nil, err
	}
	r.lastDir = dir

	out := &document.RenderedPages{Dir: dir}
	for i := 1; i <= r.pages; i++ {
		file := filepath.Join(dir, fmt.Sprintf("page-%d.png", i))
		if err := imaging.Save(imaging.New(10+i, 4, color.White), file); err != nil {
			return nil, err
		}
		out.Files = append(out.Files, file)
	}
	return out, nil
}

type widthEngine struct {
	name    models.Engine
	gotLang atomic.Value
	fail    bool
	closed  bool
}

func (e *widthEngine) Name() models.Engine { return e.name }

func (e *widthEngine) Recognize(ctx context.Context, page image.Image, lang string) (string, error) {
	e.gotLang.Store(lang)
	if e.fail {
		return "", errors.New("engine crashed")
	}
	return fmt.Sprintf("w%d", page.Bounds().Dx()), nil
}

func (e *widthEngine) Close() error {
	e.closed = true
	return nil
}

func newTestLoader(r document.Rasterizer, plain document.Loader) *Loader {
	return NewLoader(plain, r, &LoaderConfig{Workers: 3}, logger.NewTestLogger())
}

func TestLoader_AcceptedOptions(t *testing.T) {
	l := newTestLoader(&widthRasterizer{}, &plainLoader{})

	opts, err := l.AcceptedOptions()
	require.NoError(t, err)
	assert.Equal(t, []string{"ocr", "ocr_engine", "lang", "dpi"}, opts)
}

func TestLoader_PlainExtraction(t *testing.T) {
	plain := &plainLoader{pages: []models.Page{{Number: 1, Content: "hello"}}}
	l := newTestLoader(&widthRasterizer{}, plain)

	pages, err := l.Load(context.Background(), "doc.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, plain.pages, pages)
	assert.Equal(t, 1, plain.calls)

	pages, err = l.Load(context.Background(), "doc.pdf", document.Options{})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, 2, plain.calls)
}

func TestLoader_OCRKeepsPageOrder(t *testing.T) {
	r := &widthRasterizer{pages: 7}
	engine := &widthEngine{name: models.EngineTesseract}
	l := newTestLoader(r, &plainLoader{})
	l.Register(engine)

	pages, err := l.Load(context.Background(), "doc.pdf", document.Options{
		OptionOCR:      true,
		OptionEngine:   "tesseract",
		OptionLanguage: "deu",
		OptionDPI:      200,
	})
	require.NoError(t, err)
	require.Len(t, pages, 7)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, fmt.Sprintf("w%d", 11+i), p.Content)
	}
	assert.Equal(t, 200, r.gotDPI)
	assert.Equal(t, "deu", engine.gotLang.Load())

	_, err = os.Stat(r.lastDir)
	assert.True(t, os.IsNotExist(err), "rendered pages are removed")
}

func TestLoader_OCRDefaults(t *testing.T) {
	r := &widthRasterizer{pages: 1}
	engine := &widthEngine{name: models.EngineOllama}
	l := NewLoader(&plainLoader{}, r, &LoaderConfig{DefaultLanguage: "fra", DefaultDPI: 150}, logger.NewTestLogger())
	l.Register(engine)

	_, err := l.Load(context.Background(), "doc.pdf", document.Options{OptionOCR: true, OptionEngine: "OLLAMA"})
	require.NoError(t, err)
	assert.Equal(t, 150, r.gotDPI)
	assert.Equal(t, "fra", engine.gotLang.Load())

	_, err = l.Load(context.Background(), "doc.pdf", document.Options{OptionEngine: "ollama", OptionDPI: "96"})
	require.NoError(t, err)
	assert.Equal(t, 96, r.gotDPI)
}

func TestLoader_UnknownEngine(t *testing.T) {
	l := newTestLoader(&widthRasterizer{pages: 1}, &plainLoader{})

	_, err := l.Load(context.Background(), "doc.pdf", document.Options{OptionOCR: true, OptionEngine: "easyocr"})
	assert.ErrorIs(t, err, ErrUnknownEngine)

	_, err = l.Load(context.Background(), "doc.pdf", document.Options{OptionOCR: true})
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestLoader_EngineFailure(t *testing.T) {
	r := &widthRasterizer{pages: 3}
	l := newTestLoader(r, &plainLoader{})
	l.Register(&widthEngine{name: models.EngineTextract, fail: true})

	_, err := l.Load(context.Background(), "doc.pdf", document.Options{OptionOCR: true, OptionEngine: "textract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine crashed")

	_, statErr := os.Stat(r.lastDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoader_RasterizeFailure(t *testing.T) {
	l := newTestLoader(&widthRasterizer{err: errors.New("pdftoppm missing")}, &plainLoader{})
	l.Register(&widthEngine{name: models.EngineTesseract})

	_, err := l.Load(context.Background(), "doc.pdf", document.Options{OptionOCR: true, OptionEngine: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftoppm missing")
}

func TestLoader_EnginesAndClose(t *testing.T) {
	l := newTestLoader(&widthRasterizer{}, &plainLoader{})
	a := &widthEngine{name: models.EngineTextract}
	b := &widthEngine{name: models.EngineOllama}
	l.Register(a)
	l.Register(b)

	assert.Equal(t, []models.Engine{models.EngineOllama, models.EngineTextract}, l.Engines())
	require.NoError(t, l.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
