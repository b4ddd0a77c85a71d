package converters

import (
	"strings"

	"github.com/feichai0017/pdf2md/internal/models"
)

const pageSeparator = "\n\n"

// MarkdownConverter renders extracted pages as a Markdown body.
type MarkdownConverter struct{}

func NewMarkdownConverter() *MarkdownConverter {
	return &MarkdownConverter{}
}

// Convert joins every page that has content with a blank line, trimming each
// page and then the whole result.
func (c *MarkdownConverter) Convert(pages []models.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Content == "" {
			continue
		}
		parts = append(parts, strings.TrimSpace(p.Content))
	}
	return strings.TrimSpace(strings.Join(parts, pageSeparator))
}
