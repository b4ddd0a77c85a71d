package image

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// synchronous Textract calls reject documents above 10MB
const textractMaxBytes = 10 * 1024 * 1024

// TextractAPI is the subset of the Textract client the engine calls.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
	// FeatureTypes switches from DetectDocumentText to AnalyzeDocument.
	FeatureTypes []types.FeatureType
	JPEGQuality  int
}

// TextractEngine recognises page images with AWS Textract.
type TextractEngine struct {
	client TextractAPI
	config *TextractConfig
	logger logger.Logger
}

func NewTextractEngine(ctx context.Context, cfg *TextractConfig, log logger.Logger) (*TextractEngine, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("textract region is not configured")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewTextractEngineWithClient(client, cfg, log), nil
}

func NewTextractEngineWithClient(client TextractAPI, cfg *TextractConfig, log logger.Logger) *TextractEngine {
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 90
	}
	return &TextractEngine{
		client: client,
		config: cfg,
		logger: log,
	}
}

func (e *TextractEngine) Name() models.Engine {
	return models.EngineTextract
}

// Recognize sends one page to Textract. Textract detects the language on its
// own, so lang is only logged.
func (e *TextractEngine) Recognize(ctx context.Context, page image.Image, lang string) (string, error) {
	data, err := EncodeJPEG(page, e.config.JPEGQuality)
	if err != nil {
		return "", err
	}
	if len(data) > textractMaxBytes {
		return "", fmt.Errorf("page image is %d bytes, textract accepts at most %d", len(data), textractMaxBytes)
	}

	doc := &types.Document{Bytes: data}

	var blocks []types.Block
	if len(e.config.FeatureTypes) > 0 {
		out, err := e.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
			Document:     doc,
			FeatureTypes: e.config.FeatureTypes,
		})
		if err != nil {
			return "", fmt.Errorf("failed to analyze document: %w", err)
		}
		blocks = out.Blocks
	} else {
		out, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{Document: doc})
		if err != nil {
			return "", fmt.Errorf("failed to detect document text: %w", err)
		}
		blocks = out.Blocks
	}

	lines := e.lines(blocks)
	e.logger.Debug("Textract page recognised",
		logger.Int("lines", len(lines)),
		logger.String("language", lang),
	)

	return strings.Join(lines, "\n"), nil
}

func (e *TextractEngine) Close() error {
	return nil
}

// lines keeps LINE blocks at or above the confidence floor, in reading order.
func (e *TextractEngine) lines(blocks []types.Block) []string {
	var texts []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if block.Confidence != nil && *block.Confidence < e.config.MinConfidence {
			continue
		}
		texts = append(texts, *block.Text)
	}
	return texts
}
