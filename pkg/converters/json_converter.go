package converters

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/feichai0017/pdf2md/internal/models"
)

// ProcessedDocument is the JSON report of one conversion run.
type ProcessedDocument struct {
	RunID       string           `json:"runId"`
	Status      models.RunStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Engine      string           `json:"engine"`
	ForcedOCR   bool             `json:"forcedOcr"`
	OCRSource   string           `json:"ocrSource,omitempty"`
	Attempts    []AttemptReport  `json:"attempts"`
	Content     []PageContent    `json:"content"`
	Metadata    DocumentMetadata `json:"metadata"`
	ProcessedAt time.Time        `json:"processedAt"`
}

type AttemptReport struct {
	Engine     string `json:"engine"`
	Source     string `json:"source"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Pages      int    `json:"pages"`
	DurationMs int64  `json:"durationMs"`
}

type PageContent struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
	Empty    bool   `json:"empty,omitempty"`
}

type DocumentMetadata struct {
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Hash         string `json:"hash,omitempty"`
	PageCount    int    `json:"pageCount"`
	Language     string `json:"language,omitempty"`
	Characters   int    `json:"characters"`
	ProcessingMs int64  `json:"processingMs"`
}

// JSONConverter builds run reports.
type JSONConverter struct{}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{}
}

// Convert builds the report of run. markdown is the rendered body and may be
// empty for a failed run.
func (c *JSONConverter) Convert(run *models.ConversionRun, markdown string) (*ProcessedDocument, error) {
	if run == nil {
		return nil, fmt.Errorf("no run to convert")
	}

	doc := &ProcessedDocument{
		RunID:       run.ID,
		Status:      run.Status,
		Error:       run.Error,
		Source:      run.Source,
		Destination: run.Destination,
		ForcedOCR:   run.ForcedOCR,
		OCRSource:   run.OCRSource,
		Attempts:    make([]AttemptReport, 0, len(run.Attempts)),
		Content:     make([]PageContent, 0, len(run.Pages)),
		ProcessedAt: run.FinishedAt,
		Metadata: DocumentMetadata{
			FileName:   filepath.Base(run.Source),
			FileSize:   run.Document.FileSize,
			MimeType:   run.Document.MimeType,
			Hash:       run.Document.Hash,
			PageCount:  len(run.Pages),
			Language:   run.Language,
			Characters: len([]rune(markdown)),
		},
	}

	if run.Status == models.StatusCompleted {
		doc.Engine = run.Engine.String()
	}
	if !run.FinishedAt.IsZero() {
		doc.Metadata.ProcessingMs = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	}

	for _, a := range run.Attempts {
		doc.Attempts = append(doc.Attempts, AttemptReport{
			Engine:     a.Engine.String(),
			Source:     a.Source,
			Status:     string(a.Status),
			Error:      a.Error,
			Pages:      a.Pages,
			DurationMs: a.Duration.Milliseconds(),
		})
	}

	for i, p := range run.Pages {
		doc.Content = append(doc.Content, PageContent{
			Text:     p.Content,
			Position: i + 1,
			Empty:    p.Content == "",
		})
	}

	return doc, nil
}

// Marshal renders doc as indented JSON with a trailing newline.
func (c *JSONConverter) Marshal(doc *ProcessedDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
