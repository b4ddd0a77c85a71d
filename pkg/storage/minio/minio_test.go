package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/feichai0017/pdf2md/config"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

func TestMinioStorage_Store(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotType   string
		gotBody   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	store, err := NewMinioStorageWithConfig(&cfg.MinioConfig{
		Endpoint:   u.Host,
		Region:     "us-east-1",
		BucketName: "artifacts",
		Prefix:     "runs",
	}, logger.NewTestLogger())
	require.NoError(t, err)

	loc, err := store.Store(context.Background(), bytes.NewReader([]byte("# Title")), "report.md")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/artifacts/runs/report.md", gotPath)
	assert.Equal(t, "text/markdown; charset=utf-8", gotType)
	assert.Contains(t, string(gotBody), "# Title")
	assert.Equal(t, server.URL+"/artifacts/runs/report.md", loc)
}
