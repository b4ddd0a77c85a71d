package models

import (
	"strings"
	"time"
)

// Engine identifies an extraction strategy.
type Engine string

const (
	// EngineNone requests plain text extraction without OCR. It terminates
	// every priority list.
	EngineNone      Engine = ""
	EngineTesseract Engine = "tesseract"
	EngineTextract  Engine = "textract"
	EngineOllama    Engine = "ollama"
)

// DefaultEngines is the priority order used when none is configured.
var DefaultEngines = []Engine{EngineTesseract, EngineTextract, EngineOllama, EngineNone}

// String returns "none" for the plain extraction sentinel.
func (e Engine) String() string {
	if e == EngineNone {
		return "none"
	}
	return string(e)
}

// ParseEngine maps a configured name onto an Engine. "none", "no-ocr" and
// the empty string all mean plain extraction.
func ParseEngine(name string) Engine {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "", "none", "no-ocr", "plain":
		return EngineNone
	default:
		return Engine(n)
	}
}

// ParseEngines turns configured names into a normalised priority list.
// Blank entries are skipped rather than read as an explicit none.
func ParseEngines(names []string) []Engine {
	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		engines = append(engines, ParseEngine(name))
	}
	return NormalizeEngines(engines)
}

// NormalizeEngines returns a priority list without duplicates that ends with
// EngineNone. Entries after an explicit none are dropped.
func NormalizeEngines(engines []Engine) []Engine {
	seen := make(map[Engine]bool, len(engines))
	out := make([]Engine, 0, len(engines)+1)
	for _, e := range engines {
		if e == EngineNone {
			break
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return append(out, EngineNone)
}

// Page is the text extracted from one page or segment of a document.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// JoinedText concatenates every page's content and trims the result. An
// empty string means the extraction produced nothing usable.
func JoinedText(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Content)
	}
	return strings.TrimSpace(b.String())
}

// DocumentMetadata describes the source file of a run.
type DocumentMetadata struct {
	Path      string `json:"path"`
	FileSize  int64  `json:"fileSize"`
	MimeType  string `json:"mimeType"`
	Hash      string `json:"hash,omitempty"`
	PageCount int    `json:"pageCount,omitempty"`
}

type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptEmpty     AttemptStatus = "empty"
	AttemptFailed    AttemptStatus = "failed"
)

// Attempt records the outcome of one engine in the fallback chain.
type Attempt struct {
	Engine   Engine        `json:"engine"`
	Source   string        `json:"source"`
	Status   AttemptStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Pages    int           `json:"pages"`
	Duration time.Duration `json:"duration"`
}

type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// ConversionRun is the record of one source-to-markdown conversion.
type ConversionRun struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Language    string           `json:"language"`
	Engine      Engine           `json:"engine"`
	ForcedOCR   bool             `json:"forcedOcr"`
	OCRSource   string           `json:"ocrSource,omitempty"`
	Document    DocumentMetadata `json:"document"`
	Attempts    []Attempt        `json:"attempts"`
	Pages       []Page           `json:"-"`
	Status      RunStatus        `json:"status"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  time.Time        `json:"finishedAt,omitempty"`
}
