// Package render rasterises PDF pages with poppler's pdftoppm so that OCR
// engines can work on page images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

const (
	DefaultBinary = "pdftoppm"
	DefaultDPI    = 300
	pagePrefix    = "page"
)

type Config struct {
	BinPath string
	TempDir string
}

// PdfToPPM renders pages to PNG files in a fresh scratch directory.
type PdfToPPM struct {
	binPath string
	tempDir string
	logger  logger.Logger
}

func NewPdfToPPM(cfg *Config, log logger.Logger) *PdfToPPM {
	r := &PdfToPPM{binPath: DefaultBinary, logger: log}
	if cfg != nil {
		if cfg.BinPath != "" {
			r.binPath = cfg.BinPath
		}
		r.tempDir = cfg.TempDir
	}
	return r
}

// Rasterize implements document.Rasterizer. The caller owns the returned
// directory and removes it with Cleanup.
func (r *PdfToPPM) Rasterize(ctx context.Context, path string, dpi int) (*document.RenderedPages, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	dir, err := os.MkdirTemp(r.tempDir, "pdf2md-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create page directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.binPath, buildArgs(path, filepath.Join(dir, pagePrefix), dpi)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("Rendering pages",
		logger.String("path", path),
		logger.Int("dpi", dpi),
	)

	if err := cmd.Run(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("pdftoppm failed for %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	files, err := pageFiles(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &document.RenderedPages{Dir: dir, Files: files}, nil
}

// Cleanup removes a scratch directory created by Rasterize.
func Cleanup(pages *document.RenderedPages) error {
	if pages == nil || pages.Dir == "" {
		return nil
	}
	return os.RemoveAll(pages.Dir)
}

func buildArgs(src, prefix string, dpi int) []string {
	return []string{"-r", strconv.Itoa(dpi), "-png", src, prefix}
}

// pageFiles lists page images sorted by page number. pdftoppm zero-pads the
// number to the width of the page count, so plain string order is not
// reliable across tools.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	type numbered struct {
		n    int
		path string
	}
	var pages []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, ok := pageNumber(e.Name())
		if !ok {
			continue
		}
		pages = append(pages, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	files := make([]string, len(pages))
	for i, p := range pages {
		files[i] = p.path
	}
	return files, nil
}

// pageNumber parses names like "page-07.png".
func pageNumber(name string) (int, bool) {
	if filepath.Ext(name) != ".png" {
		return 0, false
	}
	base := strings.TrimSuffix(name, ".png")
	idx := strings.LastIndex(base, "-")
	if idx < 0 || base[:idx] != pagePrefix {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
