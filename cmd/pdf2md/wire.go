package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/otiai10/gosseract/v2"

	"github.com/feichai0017/pdf2md/config"
	"github.com/feichai0017/pdf2md/internal/agent"
	docimage "github.com/feichai0017/pdf2md/internal/agent/document/image"
	"github.com/feichai0017/pdf2md/internal/agent/document/image/tesseract"
	"github.com/feichai0017/pdf2md/internal/agent/document/ocrmypdf"
	"github.com/feichai0017/pdf2md/internal/agent/document/pdf"
	"github.com/feichai0017/pdf2md/internal/agent/document/render"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/internal/service/convert"
	"github.com/feichai0017/pdf2md/internal/utils/validator"
	"github.com/feichai0017/pdf2md/pkg/logger"
	"github.com/feichai0017/pdf2md/pkg/storage"
)

type app struct {
	loader    *agent.Loader
	converter convert.Converter
}

func (a *app) Close() error {
	return a.loader.Close()
}

func newApp(ctx context.Context, cfg *config.ConvertConfig, opts *cliOptions, log logger.Logger) (*app, error) {
	engines := models.ParseEngines(cfg.Engines)

	loader := agent.NewLoader(
		pdf.NewProcessor(log.Named("pdf")),
		render.NewPdfToPPM(&render.Config{BinPath: cfg.PdftoppmBin}, log.Named("render")),
		&agent.LoaderConfig{
			Workers:         cfg.Workers,
			DefaultLanguage: cfg.Language,
			DefaultDPI:      cfg.DPI,
		},
		log.Named("loader"),
	)

	for _, name := range engines {
		if name == models.EngineNone {
			continue
		}
		if err := registerEngine(ctx, loader, name, cfg, log); err != nil {
			// an unregistered engine fails its attempt and the chain moves on
			log.Warn("OCR engine unavailable",
				logger.String("engine", name.String()),
				logger.Error(err),
			)
		}
	}

	forceOCR := ocrmypdf.NewRunner(&ocrmypdf.Config{
		BinPath:   cfg.OCRmyPDFBin,
		Timeout:   cfg.OCRmyPDFTimeout,
		ExtraArgs: cfg.OCRmyPDFArgs,
	}, log.Named("ocrmypdf"))

	serviceOpts := []convert.Option{
		convert.WithValidator(validator.NewDocumentValidator(log.Named("validator"), &validator.ValidatorConfig{
			MaxFileSize:  cfg.MaxFileSize,
			AllowedTypes: validator.DefaultValidatorConfig().AllowedTypes,
			MaxPageCount: validator.DefaultValidatorConfig().MaxPageCount,
		})),
	}

	if opts.upload {
		storageType, err := storage.ParseStorageType(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if storageType == "" {
			return nil, fmt.Errorf("-upload requires PDF2MD_STORAGE to be s3 or minio")
		}

		store, err := storage.NewStorage(ctx, storageType, log.Named("storage"))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		serviceOpts = append(serviceOpts, convert.WithStorage(store))
	}

	converter := convert.NewService(loader, forceOCR, log.Named("convert"), &convert.ServiceConfig{
		Engines:    engines,
		Language:   cfg.Language,
		DPI:        cfg.DPI,
		ReportPath: opts.reportPath,
	}, serviceOpts...)

	return &app{loader: loader, converter: converter}, nil
}

func registerEngine(ctx context.Context, loader *agent.Loader, name models.Engine, cfg *config.ConvertConfig, log logger.Logger) error {
	switch name {
	case models.EngineTesseract:
		loader.Register(tesseract.NewEngine(&tesseract.Config{
			PageSegMode: gosseract.PSM_AUTO,
			Variables: map[string]string{
				"load_system_dawg":                     "1",
				"language_model_penalty_non_dict_word": "0.8",
			},
			Preprocess: cfg.Preprocess,
		}, log.Named("tesseract")))

	case models.EngineTextract:
		tc := config.GetTextractConfig()
		if !tc.Enabled() {
			return fmt.Errorf("AWS_REGION is not set")
		}

		features := make([]types.FeatureType, 0, len(tc.FeatureTypes))
		for _, f := range tc.FeatureTypes {
			features = append(features, types.FeatureType(f))
		}

		engine, err := docimage.NewTextractEngine(ctx, &docimage.TextractConfig{
			Region:        tc.Region,
			Endpoint:      tc.Endpoint,
			AccessKey:     tc.AccessKey,
			SecretKey:     tc.SecretKey,
			MinConfidence: float32(tc.MinConfidence),
			FeatureTypes:  features,
		}, log.Named("textract"))
		if err != nil {
			return err
		}
		loader.Register(engine)

	case models.EngineOllama:
		oc := config.GetOllamaConfig()
		if !oc.Enabled() {
			return fmt.Errorf("OLLAMA_ENDPOINT is not set")
		}

		engine, err := docimage.NewOllamaEngine(&docimage.OllamaConfig{
			Endpoint:    oc.Endpoint,
			Model:       oc.Model,
			Temperature: oc.Temperature,
			Timeout:     oc.Timeout,
			MaxPoolSize: oc.MaxPoolSize,
			PoolTimeout: oc.Timeout,
		}, log.Named("ollama"))
		if err != nil {
			return err
		}
		loader.Register(engine)

	default:
		return fmt.Errorf("%w: %q", agent.ErrUnknownEngine, name)
	}
	return nil
}
