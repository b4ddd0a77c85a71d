package pdf

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// Processor extracts the embedded text layer of a PDF without OCR.
type Processor struct {
	logger logger.Logger
}

func NewProcessor(log logger.Logger) *Processor {
	return &Processor{
		logger: log,
	}
}

// Load implements document.Loader. Plain extraction has no options, so opts
// is ignored.
func (p *Processor) Load(ctx context.Context, path string, _ document.Options) ([]models.Page, error) {
	return p.Extract(ctx, path)
}

// Extract returns one page record per PDF page, in page order. Pages without
// a text layer yield an empty Content.
func (p *Processor) Extract(ctx context.Context, path string) (pages []models.Page, err error) {
	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to read pdf %s: %v", path, r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	numPages := reader.NumPage()
	pages = make([]models.Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get text from page %d: %w", i, err)
		}

		pages = append(pages, models.Page{Number: i, Content: text})
	}

	p.logger.Debug("Extracted text layer",
		logger.String("path", path),
		logger.Int("pages", numPages),
	)

	return pages, nil
}
