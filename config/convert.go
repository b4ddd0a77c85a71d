package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	docimage "github.com/feichai0017/pdf2md/internal/agent/document/image"
)

var (
	convertOnce   sync.Once
	convertConfig *ConvertConfig
)

// ConvertConfig holds the settings of a conversion run. Every field can be
// overridden by a YAML file, see LoadConvertFile.
type ConvertConfig struct {
	Engines         []string                   `yaml:"engines"`
	Language        string                     `yaml:"language"`
	DPI             int                        `yaml:"dpi"`
	Workers         int                        `yaml:"workers"`
	OCRmyPDFBin     string                     `yaml:"ocrmypdfBin"`
	OCRmyPDFTimeout time.Duration              `yaml:"ocrmypdfTimeout"`
	OCRmyPDFArgs    []string                   `yaml:"ocrmypdfArgs"`
	PdftoppmBin     string                     `yaml:"pdftoppmBin"`
	OutputDir       string                     `yaml:"outputDir"`
	LogLevel        string                     `yaml:"logLevel"`
	LogFormat       string                     `yaml:"logFormat"`
	Storage         string                     `yaml:"storage"`
	MaxFileSize     int64                      `yaml:"maxFileSize"`
	Preprocess      *docimage.PreprocessConfig `yaml:"preprocess"`
}

func GetConvertConfig() *ConvertConfig {
	convertOnce.Do(func() {
		convertConfig = NewConvertConfigFromEnv()
	})
	return convertConfig
}

// NewConvertConfigFromEnv reads PDF2MD_* variables without caching.
func NewConvertConfigFromEnv() *ConvertConfig {
	loadDotEnv()

	return &ConvertConfig{
		Engines:         getEnvList("PDF2MD_ENGINES", []string{"tesseract", "textract", "ollama", "none"}),
		Language:        getEnv("PDF2MD_LANGUAGE", "eng"),
		DPI:             getEnvInt("PDF2MD_DPI", 300),
		Workers:         getEnvInt("PDF2MD_WORKERS", 4),
		OCRmyPDFBin:     getEnv("PDF2MD_OCRMYPDF_BIN", "ocrmypdf"),
		OCRmyPDFTimeout: getEnvDuration("PDF2MD_OCRMYPDF_TIMEOUT", 30*time.Minute),
		OCRmyPDFArgs:    getEnvList("PDF2MD_OCRMYPDF_ARGS", nil),
		PdftoppmBin:     getEnv("PDF2MD_PDFTOPPM_BIN", "pdftoppm"),
		OutputDir:       getEnv("PDF2MD_OUTPUT_DIR", "output"),
		LogLevel:        getEnv("PDF2MD_LOG_LEVEL", "info"),
		LogFormat:       getEnv("PDF2MD_LOG_FORMAT", "console"),
		Storage:         getEnv("PDF2MD_STORAGE", ""),
		MaxFileSize:     getEnvInt64("PDF2MD_MAX_FILE_SIZE", 50*1024*1024),
		Preprocess:      docimage.DefaultPreprocessConfig(),
	}
}

// LoadConvertFile returns a copy of base with the keys present in the YAML
// file at path applied on top.
func LoadConvertFile(path string, base *ConvertConfig) (*ConvertConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	merged := *base
	if base.Preprocess != nil {
		pp := *base.Preprocess
		merged.Preprocess = &pp
	}

	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &merged, nil
}
