package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	docimage "github.com/feichai0017/pdf2md/internal/agent/document/image"
	"github.com/feichai0017/pdf2md/internal/agent/document/render"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// Option names understood by Loader.
const (
	OptionOCR      = "ocr"
	OptionEngine   = "ocr_engine"
	OptionLanguage = "lang"
	OptionDPI      = "dpi"
)

var ErrUnknownEngine = errors.New("unknown OCR engine")

type LoaderConfig struct {
	Workers         int
	DefaultLanguage string
	DefaultDPI      int
}

// Loader is the document extraction capability: plain text-layer extraction
// by default, or rasterise-and-recognise with a registered OCR engine when
// the options ask for one.
type Loader struct {
	plain      document.Loader
	rasterizer document.Rasterizer
	engines    map[models.Engine]document.OCREngine
	config     LoaderConfig
	logger     logger.Logger
}

func NewLoader(plain document.Loader, rasterizer document.Rasterizer, cfg *LoaderConfig, log logger.Logger) *Loader {
	c := LoaderConfig{Workers: 4, DefaultLanguage: "eng", DefaultDPI: 300}
	if cfg != nil {
		if cfg.Workers > 0 {
			c.Workers = cfg.Workers
		}
		if cfg.DefaultLanguage != "" {
			c.DefaultLanguage = cfg.DefaultLanguage
		}
		if cfg.DefaultDPI > 0 {
			c.DefaultDPI = cfg.DefaultDPI
		}
	}

	return &Loader{
		plain:      plain,
		rasterizer: rasterizer,
		engines:    make(map[models.Engine]document.OCREngine),
		config:     c,
		logger:     log,
	}
}

// Register makes an engine selectable by its name. A later registration
// under the same name replaces the earlier one.
func (l *Loader) Register(engine document.OCREngine) {
	l.engines[engine.Name()] = engine
	l.logger.Debug("Registered OCR engine", logger.String("engine", engine.Name().String()))
}

// Engines lists registered engine names in sorted order.
func (l *Loader) Engines() []models.Engine {
	names := make([]models.Engine, 0, len(l.engines))
	for name := range l.engines {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// AcceptedOptions implements document.OptionDescriber.
func (l *Loader) AcceptedOptions() ([]string, error) {
	return []string{OptionOCR, OptionEngine, OptionLanguage, OptionDPI}, nil
}

// Load implements document.Loader.
func (l *Loader) Load(ctx context.Context, path string, opts document.Options) ([]models.Page, error) {
	name, _ := opts[OptionEngine].(string)
	useOCR, _ := opts[OptionOCR].(bool)

	if name == "" {
		if useOCR {
			return nil, fmt.Errorf("%w: OCR requested without an engine", ErrUnknownEngine)
		}
		return l.plain.Load(ctx, path, nil)
	}

	engine, ok := l.engines[models.ParseEngine(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}

	lang, _ := opts[OptionLanguage].(string)
	if lang == "" {
		lang = l.config.DefaultLanguage
	}
	dpi, ok := intOption(opts[OptionDPI])
	if !ok || dpi <= 0 {
		dpi = l.config.DefaultDPI
	}

	return l.recognize(ctx, engine, path, lang, dpi)
}

func (l *Loader) recognize(ctx context.Context, engine document.OCREngine, path, lang string, dpi int) ([]models.Page, error) {
	start := time.Now()

	rendered, err := l.rasterizer.Rasterize(ctx, path, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render pages: %w", err)
	}
	defer func() {
		if err := render.Cleanup(rendered); err != nil {
			l.logger.Warn("Failed to remove rendered pages", logger.String("dir", rendered.Dir), logger.Error(err))
		}
	}()

	pages := make([]models.Page, len(rendered.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Workers)

	for i, file := range rendered.Files {
		i, file := i, file
		g.Go(func() error {
			img, err := docimage.Open(file)
			if err != nil {
				return err
			}

			text, err := engine.Recognize(gctx, img, lang)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}

			pages[i] = models.Page{Number: i + 1, Content: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s failed: %w", engine.Name(), err)
	}

	l.logger.Debug("Recognised pages",
		logger.String("engine", engine.Name().String()),
		logger.Int("pages", len(pages)),
		logger.Duration("elapsed", time.Since(start)),
	)

	return pages, nil
}

// Close releases every registered engine.
func (l *Loader) Close() error {
	var errs []error
	for _, engine := range l.engines {
		if err := engine.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func intOption(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
