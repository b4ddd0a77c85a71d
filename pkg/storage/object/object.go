// Package object holds helpers shared by the storage backends.
package object

import (
	"mime"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".md":   "text/markdown; charset=utf-8",
	".json": "application/json",
	".pdf":  "application/pdf",
}

// ContentType guesses the MIME type of an object from its key.
func ContentType(key string) string {
	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
