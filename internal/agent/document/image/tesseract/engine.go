// Package tesseract recognises page images with the Tesseract engine through
// gosseract. Building it requires the tesseract and leptonica headers.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"

	docimage "github.com/feichai0017/pdf2md/internal/agent/document/image"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

type Config struct {
	PageSegMode gosseract.PageSegMode
	// Variables are passed to SetVariable on every client.
	Variables  map[string]string
	Preprocess *docimage.PreprocessConfig
}

// Engine implements document.OCREngine. Tesseract clients are not safe for
// concurrent use, so every page gets its own client.
type Engine struct {
	config   *Config
	pipeline docimage.Pipeline
	logger   logger.Logger
}

func NewEngine(cfg *Config, log logger.Logger) *Engine {
	if cfg == nil {
		cfg = &Config{
			PageSegMode: gosseract.PSM_AUTO,
			Variables: map[string]string{
				"load_system_dawg":                     "1",
				"language_model_penalty_non_dict_word": "0.8",
			},
		}
	}

	return &Engine{
		config:   cfg,
		pipeline: docimage.NewPipeline(cfg.Preprocess),
		logger:   log,
	}
}

func (e *Engine) Name() models.Engine {
	return models.EngineTesseract
}

func (e *Engine) Recognize(ctx context.Context, page image.Image, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	processed, err := e.pipeline.Apply(page)
	if err != nil {
		return "", err
	}

	data, err := docimage.EncodePNG(processed)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(splitLanguages(lang)...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetPageSegMode(e.config.PageSegMode); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	for k, v := range e.config.Variables {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("failed to set variable %s: %w", k, err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}

	return text, nil
}

// splitLanguages turns a Tesseract language code such as "deu+eng" into the
// list gosseract expects, falling back to English.
func splitLanguages(lang string) []string {
	var langs []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return []string{"eng"}
	}
	return langs
}

func (e *Engine) Close() error {
	return nil
}
