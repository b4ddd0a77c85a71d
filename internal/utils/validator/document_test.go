package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/internal/testutil"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

func TestValidateSource(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "report.pdf", "one", "two")

	v := NewDocumentValidator(logger.NewTestLogger(), nil)
	meta, err := v.ValidateSource(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256(data)

	assert.Equal(t, path, meta.Path)
	assert.Equal(t, int64(len(data)), meta.FileSize)
	assert.Equal(t, "application/pdf", meta.MimeType)
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.Hash)
	assert.Equal(t, 2, meta.PageCount)
}

func TestValidateSource_UppercaseExtension(t *testing.T) {
	path := testutil.WritePDF(t, t.TempDir(), "SCAN.PDF", "x")

	_, err := NewDocumentValidator(logger.NewTestLogger(), nil).ValidateSource(path)
	assert.NoError(t, err)
}

func TestValidateSource_Rejections(t *testing.T) {
	dir := t.TempDir()
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	_, err := v.ValidateSource(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = v.ValidateSource(dir)
	assert.ErrorIs(t, err, ErrNotRegularFile)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = v.ValidateSource(txt)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("just some text"), 0o644))
	_, err = v.ValidateSource(fake)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestValidateSource_Limits(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "big.pdf", "a", "b", "c")

	small := DefaultValidatorConfig()
	small.MaxFileSize = 16
	_, err := NewDocumentValidator(logger.NewTestLogger(), small).ValidateSource(path)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	few := DefaultValidatorConfig()
	few.MaxPageCount = 2
	_, err = NewDocumentValidator(logger.NewTestLogger(), few).ValidateSource(path)
	assert.ErrorIs(t, err, ErrTooManyPages)
}

// brokenXrefPDF is a PDF whose only xref entry points at "42 true" instead of
// an object definition.
func brokenXrefPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	obj := buf.Len()
	buf.WriteString("42 true\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 2\n0000000000 65535 f \n%010d 00000 n \n", obj)
	fmt.Fprintf(&buf, "trailer\n<< /Size 2 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestValidateSource_UnreadablePageTree(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "xref points at a non-object", data: brokenXrefPDF()},
		{name: "no xref at all", data: []byte("%PDF-1.4\nscanner wrote garbage here\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "damaged.pdf")
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			log := logger.NewTestLogger()
			var meta *models.DocumentMetadata
			var err error
			require.NotPanics(t, func() {
				meta, err = NewDocumentValidator(log, nil).ValidateSource(path)
			})

			require.NoError(t, err)
			assert.Equal(t, "application/pdf", meta.MimeType)
			assert.Zero(t, meta.PageCount)
			assert.NotEmpty(t, meta.Hash)
			assert.Equal(t, []string{"Could not count pages"}, log.Messages("WARN"))
		})
	}
}
