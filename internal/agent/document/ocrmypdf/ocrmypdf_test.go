package ocrmypdf

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf2md/pkg/logger"
)

func TestDerivedPath(t *testing.T) {
	assert.Equal(t, filepath.Join("pdfs", "The Great Gatsby_ocr.pdf"), DerivedPath(filepath.Join("pdfs", "The Great Gatsby.pdf")))
	assert.Equal(t, "scan_ocr.PDF", DerivedPath("scan.PDF"))
	assert.Equal(t, "noext_ocr", DerivedPath("noext"))
}

func TestBuildArgs(t *testing.T) {
	r := NewRunner(&Config{ExtraArgs: []string{"--jobs", "2"}}, logger.NewTestLogger())
	assert.Equal(t,
		[]string{"--force-ocr", "--language", "deu", "--jobs", "2", "in.pdf", "in_ocr.pdf"},
		r.buildArgs("in.pdf", "in_ocr.pdf", "deu"),
	)
}

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-ins need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ocrmypdf")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestForceOCR_Success(t *testing.T) {
	// copy the source (second to last arg) to the output (last arg)
	bin := fakeBinary(t, `eval src=\${$(($#-1))}
eval dst=\${$#}
cp "$src" "$dst"
`)
	src := filepath.Join(t.TempDir(), "book.pdf")
	require.NoError(t, os.WriteFile(src, []byte("%PDF-1.4"), 0644))

	r := NewRunner(&Config{BinPath: bin, Timeout: time.Minute}, logger.NewTestLogger())
	out, err := r.ForceOCR(context.Background(), src, "eng")
	require.NoError(t, err)
	assert.Equal(t, DerivedPath(src), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestForceOCR_NonZeroExit(t *testing.T) {
	bin := fakeBinary(t, "echo 'tesseract not installed' >&2\nexit 2\n")
	src := filepath.Join(t.TempDir(), "book.pdf")

	r := NewRunner(&Config{BinPath: bin}, logger.NewTestLogger())
	_, err := r.ForceOCR(context.Background(), src, "eng")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract not installed")

	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestForceOCR_MissingOutput(t *testing.T) {
	bin := fakeBinary(t, "exit 0\n")
	src := filepath.Join(t.TempDir(), "book.pdf")

	r := NewRunner(&Config{BinPath: bin}, logger.NewTestLogger())
	_, err := r.ForceOCR(context.Background(), src, "eng")
	assert.Error(t, err)
}

func TestForceOCR_Timeout(t *testing.T) {
	bin := fakeBinary(t, "exec sleep 5\n")
	src := filepath.Join(t.TempDir(), "book.pdf")

	r := NewRunner(&Config{BinPath: bin, Timeout: 100 * time.Millisecond}, logger.NewTestLogger())
	_, err := r.ForceOCR(context.Background(), src, "eng")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
