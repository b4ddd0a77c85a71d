// Package ocrmypdf wraps the ocrmypdf command line tool, which rewrites a
// PDF with a Tesseract text layer on every page.
package ocrmypdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/feichai0017/pdf2md/pkg/logger"
)

const (
	DefaultBinary  = "ocrmypdf"
	DefaultTimeout = 30 * time.Minute
	ocrSuffix      = "_ocr"
)

type Config struct {
	BinPath string
	// Timeout bounds one ocrmypdf invocation; zero means no limit.
	Timeout   time.Duration
	ExtraArgs []string
}

// Runner implements document.ForceOCR.
type Runner struct {
	binPath   string
	timeout   time.Duration
	extraArgs []string
	logger    logger.Logger
}

func NewRunner(cfg *Config, log logger.Logger) *Runner {
	r := &Runner{
		binPath: DefaultBinary,
		timeout: DefaultTimeout,
		logger:  log,
	}
	if cfg != nil {
		if cfg.BinPath != "" {
			r.binPath = cfg.BinPath
		}
		r.timeout = cfg.Timeout
		r.extraArgs = cfg.ExtraArgs
	}
	return r
}

// DerivedPath is where the OCR'd copy of src is written: same directory,
// "_ocr" appended to the stem, same extension.
func DerivedPath(src string) string {
	ext := filepath.Ext(src)
	stem := strings.TrimSuffix(filepath.Base(src), ext)
	return filepath.Join(filepath.Dir(src), stem+ocrSuffix+ext)
}

// ForceOCR runs ocrmypdf --force-ocr on source and returns the derived path.
// A non-zero exit, a timeout or a missing output file is an error.
func (r *Runner) ForceOCR(ctx context.Context, source, lang string) (string, error) {
	dst := DerivedPath(source)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := r.buildArgs(source, dst, lang)
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Info("Running forced OCR",
		logger.String("source", source),
		logger.String("output", dst),
		logger.String("language", lang),
	)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ocrmypdf did not finish for %s: %w", source, ctxErr)
		}
		return "", fmt.Errorf("ocrmypdf failed for %s: %w: %s", source, err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("ocrmypdf produced no output at %s: %w", dst, err)
	}

	r.logger.Info("Forced OCR finished",
		logger.String("output", dst),
		logger.Duration("elapsed", time.Since(start)),
	)

	return dst, nil
}

func (r *Runner) buildArgs(src, dst, lang string) []string {
	args := []string{"--force-ocr", "--language", lang}
	args = append(args, r.extraArgs...)
	return append(args, src, dst)
}
