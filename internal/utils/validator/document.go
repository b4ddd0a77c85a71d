package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

var (
	ErrNotRegularFile  = errors.New("source is not a regular file")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotPDF          = errors.New("file content is not a PDF")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrTooManyPages    = errors.New("document exceeds page limit")
)

// DocumentValidator checks a source document before conversion.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize int64
	// AllowedTypes maps a lower-case extension to the MIME types accepted
	// for it.
	AllowedTypes map[string][]string
	// MaxPageCount of 0 disables the page limit.
	MaxPageCount int
}

func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize: 50 * 1024 * 1024, // 50MB
		AllowedTypes: map[string][]string{
			".pdf": {"application/pdf"},
		},
		MaxPageCount: 1000,
	}
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = DefaultValidatorConfig()
	}

	return &DocumentValidator{
		logger: log,
		config: config,
	}
}

// ValidateSource checks that path names a readable PDF within the configured
// limits and returns its metadata.
func (v *DocumentValidator) ValidateSource(path string) (*models.DocumentMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	allowedMimes, ok := v.config.AllowedTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	if v.config.MaxFileSize > 0 && info.Size() > v.config.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), v.config.MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	mimeType, err := detectMimeType(f)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	if !contains(allowedMimes, mimeType) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, mimeType)
	}

	hash, err := calculateHash(f)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	meta := &models.DocumentMetadata{
		Path:     path,
		FileSize: info.Size(),
		MimeType: mimeType,
		Hash:     hash,
	}

	if ext == ".pdf" {
		pages, err := countPages(f, info.Size())
		switch {
		case err != nil:
			// damaged page trees are left to the extraction chain and forced OCR
			v.logger.Warn("Could not count pages",
				logger.String("path", path),
				logger.Error(err),
			)
		case v.config.MaxPageCount > 0 && pages > v.config.MaxPageCount:
			return nil, fmt.Errorf("%w: %d pages, limit %d", ErrTooManyPages, pages, v.config.MaxPageCount)
		default:
			meta.PageCount = pages
		}
	}

	v.logger.Debug("Source validated",
		logger.String("path", path),
		logger.Int64("size", meta.FileSize),
		logger.Int("pages", meta.PageCount),
		logger.String("sha256", hash),
	)

	return meta, nil
}

func countPages(f *os.File, size int64) (n int, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = fmt.Errorf("failed to read page tree: %v", r)
		}
	}()

	r, err := pdf.NewReader(f, size)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return r.NumPage(), nil
}

func detectMimeType(f *os.File) (string, error) {
	buffer := make([]byte, 512)
	n, err := f.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(buffer[:n]), nil
}

func calculateHash(f *os.File) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
