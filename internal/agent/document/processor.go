package document

import (
	"context"
	"image"

	"github.com/feichai0017/pdf2md/internal/models"
)

// Options is the open-ended configuration handed to a Loader. Keys are the
// option names the loader reports through OptionDescriber.
type Options map[string]interface{}

// Loader turns a document on disk into page-level text.
type Loader interface {
	Load(ctx context.Context, path string, opts Options) ([]models.Page, error)
}

// OptionDescriber is implemented by loaders that can report which option
// names they understand.
type OptionDescriber interface {
	AcceptedOptions() ([]string, error)
}

// OCREngine recognises the text of a single rendered page.
type OCREngine interface {
	Name() models.Engine
	Recognize(ctx context.Context, page image.Image, lang string) (string, error)
	Close() error
}

// RenderedPages is a set of page images written to a scratch directory.
// Files are ordered by page number.
type RenderedPages struct {
	Dir   string
	Files []string
}

// Rasterizer renders every page of a document to an image file.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi int) (*RenderedPages, error)
}

// ForceOCR rewrites a document so that every page carries an OCR text layer
// and returns the path of the rewritten file.
type ForceOCR interface {
	ForceOCR(ctx context.Context, source, lang string) (string, error)
}
