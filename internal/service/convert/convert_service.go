package convert

import (
	"context"
	"errors"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
)

const (
	DefaultLanguage = "eng"
	DefaultDPI      = 300
)

// ErrChainExhausted means every engine in the priority list produced no text.
var ErrChainExhausted = errors.New("all extraction engines returned empty text")

// Converter turns one PDF into one Markdown file.
type Converter interface {
	ConfigureExtractor(source string, engine models.Engine, language string) document.Options
	AttemptExtractionChain(ctx context.Context, source string) (*ChainResult, error)
	ForceOCRFallback(ctx context.Context, source, language string) (*FallbackResult, error)
	Run(ctx context.Context, source, destination string) (*models.ConversionRun, error)
}

// ChainResult is the outcome of AttemptExtractionChain. Engine and Pages are
// only meaningful when the chain succeeded; Attempts is always filled.
type ChainResult struct {
	Engine   models.Engine
	Pages    []models.Page
	Attempts []models.Attempt
}

// FallbackResult is the outcome of ForceOCRFallback.
type FallbackResult struct {
	OCRSource string
	Pages     []models.Page
	Attempt   models.Attempt
}
