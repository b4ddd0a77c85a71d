package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/converters"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// SourceValidator checks a source before any extraction.
type SourceValidator interface {
	ValidateSource(path string) (*models.DocumentMetadata, error)
}

// ArtifactStore receives the Markdown and report after a successful run.
type ArtifactStore interface {
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
}

type ServiceConfig struct {
	// Engines is the priority list. It is normalised so that it always ends
	// with the plain extraction sentinel.
	Engines  []models.Engine
	Language string
	DPI      int
	// ReportPath, when set, receives a JSON report of every run.
	ReportPath string
}

type Option func(*ConvertService)

func WithValidator(v SourceValidator) Option {
	return func(s *ConvertService) { s.validator = v }
}

func WithStorage(store ArtifactStore) Option {
	return func(s *ConvertService) { s.storage = store }
}

type ConvertService struct {
	loader    document.Loader
	forceOCR  document.ForceOCR
	validator SourceValidator
	storage   ArtifactStore
	markdown  *converters.MarkdownConverter
	report    *converters.JSONConverter
	logger    logger.Logger
	config    ServiceConfig

	optionsOnce sync.Once
	accepted    map[string]bool
}

func NewService(
	loader document.Loader,
	forceOCR document.ForceOCR,
	log logger.Logger,
	cfg *ServiceConfig,
	opts ...Option,
) Converter {
	c := ServiceConfig{}
	if cfg != nil {
		c = *cfg
	}
	if len(c.Engines) == 0 {
		c.Engines = models.DefaultEngines
	}
	c.Engines = models.NormalizeEngines(c.Engines)
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}

	s := &ConvertService{
		loader:   loader,
		forceOCR: forceOCR,
		markdown: converters.NewMarkdownConverter(),
		report:   converters.NewJSONConverter(),
		logger:   log,
		config:   c,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptExtractionChain tries every engine in priority order and stops at
// the first one whose joined, trimmed text is non-empty. Engine errors are
// logged and skipped. ErrChainExhausted is returned together with the
// attempts when nothing produced text.
func (s *ConvertService) AttemptExtractionChain(ctx context.Context, source string) (*ChainResult, error) {
	result := &ChainResult{Attempts: make([]models.Attempt, 0, len(s.config.Engines))}

	for _, engine := range s.config.Engines {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		attempt, pages := s.attempt(ctx, source, engine, s.config.Language)
		result.Attempts = append(result.Attempts, attempt)

		switch attempt.Status {
		case models.AttemptSucceeded:
			s.logger.Info("OCR engine used",
				logger.String("engine", engine.String()),
				logger.Int("pages", len(pages)),
			)
			result.Engine = engine
			result.Pages = pages
			return result, nil
		case models.AttemptFailed:
			s.logger.Warn("Engine failed; trying next",
				logger.String("engine", engine.String()),
				logger.String("error", attempt.Error),
			)
		default:
			s.logger.Info("Engine returned empty; trying next",
				logger.String("engine", engine.String()),
			)
		}
	}

	return result, ErrChainExhausted
}

func (s *ConvertService) attempt(ctx context.Context, source string, engine models.Engine, language string) (models.Attempt, []models.Page) {
	start := time.Now()
	attempt := models.Attempt{Engine: engine, Source: source}

	pages, err := s.loader.Load(ctx, source, s.ConfigureExtractor(source, engine, language))
	attempt.Duration = time.Since(start)
	attempt.Pages = len(pages)

	switch {
	case err != nil:
		attempt.Status = models.AttemptFailed
		attempt.Error = err.Error()
	case models.JoinedText(pages) == "":
		attempt.Status = models.AttemptEmpty
	default:
		attempt.Status = models.AttemptSucceeded
	}
	return attempt, pages
}

// ForceOCRFallback rewrites source with embedded OCR text and extracts the
// rewritten file without OCR. Every failure here is fatal for the run.
func (s *ConvertService) ForceOCRFallback(ctx context.Context, source, language string) (*FallbackResult, error) {
	if language == "" {
		language = s.config.Language
	}

	ocrSource, err := s.forceOCR.ForceOCR(ctx, source, language)
	if err != nil {
		return nil, fmt.Errorf("forced OCR failed: %w", err)
	}

	start := time.Now()
	pages, err := s.loader.Load(ctx, ocrSource, s.ConfigureExtractor(ocrSource, models.EngineNone, language))
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", ocrSource, err)
	}

	attempt := models.Attempt{
		Engine:   models.EngineNone,
		Source:   ocrSource,
		Status:   models.AttemptSucceeded,
		Pages:    len(pages),
		Duration: time.Since(start),
	}
	if models.JoinedText(pages) == "" {
		attempt.Status = models.AttemptEmpty
		s.logger.Warn("Forced OCR produced no text", logger.String("ocrSource", ocrSource))
	}

	return &FallbackResult{OCRSource: ocrSource, Pages: pages, Attempt: attempt}, nil
}

// Run converts source into destination. The destination is written once,
// after all content is assembled; a failed run leaves it untouched.
func (s *ConvertService) Run(ctx context.Context, source, destination string) (*models.ConversionRun, error) {
	run := &models.ConversionRun{
		ID:          uuid.New().String(),
		Source:      source,
		Destination: destination,
		Language:    s.config.Language,
		Document:    models.DocumentMetadata{Path: source},
		Status:      models.StatusRunning,
		StartedAt:   time.Now(),
	}

	log := s.logger.With(logger.String("runId", run.ID))
	log.Info("Starting conversion",
		logger.String("source", source),
		logger.String("destination", destination),
	)

	markdown, err := s.convert(ctx, run, log)
	if err == nil && s.storage != nil {
		err = s.upload(ctx, log, destination, []byte(markdown))
	}

	run.FinishedAt = time.Now()
	if err != nil {
		run.Status = models.StatusFailed
		run.Error = err.Error()
		log.Error("Conversion failed", logger.Error(err))
	} else {
		run.Status = models.StatusCompleted
		log.Info("Conversion completed",
			logger.String("engine", run.Engine.String()),
			logger.Bool("forcedOcr", run.ForcedOCR),
			logger.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
		)
	}

	if s.config.ReportPath != "" {
		if rerr := s.writeReport(ctx, log, run, markdown); rerr != nil && err == nil {
			err = rerr
		}
	}

	return run, err
}

func (s *ConvertService) convert(ctx context.Context, run *models.ConversionRun, log logger.Logger) (string, error) {
	if s.validator != nil {
		meta, err := s.validator.ValidateSource(run.Source)
		if err != nil {
			return "", fmt.Errorf("invalid source: %w", err)
		}
		run.Document = *meta
	}

	if err := os.MkdirAll(filepath.Dir(run.Destination), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	chain, err := s.AttemptExtractionChain(ctx, run.Source)
	run.Attempts = chain.Attempts

	switch {
	case err == nil:
		run.Engine = chain.Engine
		run.Pages = chain.Pages
	case errors.Is(err, ErrChainExhausted):
		log.Warn("All engines empty; running forced OCR", logger.Int("attempts", len(chain.Attempts)))

		fallback, ferr := s.ForceOCRFallback(ctx, run.Source, s.config.Language)
		if ferr != nil {
			return "", ferr
		}
		run.ForcedOCR = true
		run.OCRSource = fallback.OCRSource
		run.Engine = models.EngineNone
		run.Pages = fallback.Pages
		run.Attempts = append(run.Attempts, fallback.Attempt)
	default:
		return "", err
	}

	markdown := s.markdown.Convert(run.Pages)
	if err := os.WriteFile(run.Destination, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", run.Destination, err)
	}

	log.Info("Markdown written",
		logger.String("destination", run.Destination),
		logger.Int("pages", len(run.Pages)),
		logger.Int("bytes", len(markdown)),
	)
	return markdown, nil
}

func (s *ConvertService) writeReport(ctx context.Context, log logger.Logger, run *models.ConversionRun, markdown string) error {
	doc, err := s.report.Convert(run, markdown)
	if err != nil {
		return err
	}

	data, err := s.report.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.config.ReportPath), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(s.config.ReportPath, data, 0o644); err != nil {
		log.Error("Failed to write report", logger.String("path", s.config.ReportPath), logger.Error(err))
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Debug("Report written", logger.String("path", s.config.ReportPath))

	if s.storage != nil && run.Status == models.StatusCompleted {
		return s.upload(ctx, log, s.config.ReportPath, data)
	}
	return nil
}

func (s *ConvertService) upload(ctx context.Context, log logger.Logger, path string, data []byte) error {
	key := filepath.Base(path)

	location, err := s.storage.Store(ctx, bytes.NewReader(data), key)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Info("Artifact uploaded", logger.String("key", key), logger.String("location", location))
	return nil
}
