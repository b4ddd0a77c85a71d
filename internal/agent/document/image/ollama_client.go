package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

const defaultOllamaPrompt = `Transcribe all text visible on this scanned page exactly as written.
The text is in language %q (Tesseract language code).
Keep the reading order and paragraph breaks. Do not describe the image, add commentary, or translate.
Output only the transcribed text.`

type OllamaConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	Prompt      string
	Timeout     time.Duration
	MaxPoolSize int
	PoolTimeout time.Duration
	JPEGQuality int
}

// OllamaResponse is the non-streaming reply of /api/generate.
type OllamaResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration,omitempty"`
	EvalCount     int    `json:"eval_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

type ollamaRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Images  []string               `json:"images"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type OllamaClient struct {
	endpoint    string
	model       string
	temperature float64
	quality     int
	httpClient  *http.Client
}

func NewOllamaClient(config *OllamaConfig) *OllamaClient {
	return &OllamaClient{
		endpoint:    strings.TrimRight(config.Endpoint, "/"),
		model:       config.Model,
		temperature: config.Temperature,
		quality:     config.JPEGQuality,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// AnalyzeImage sends one image and a prompt to a vision model and returns
// the generated text.
func (c *OllamaClient) AnalyzeImage(ctx context.Context, img image.Image, prompt string) (string, error) {
	data, err := EncodeJPEG(img, c.quality)
	if err != nil {
		return "", err
	}

	reqData, err := json.Marshal(ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(data)},
		Stream:  false,
		Options: map[string]interface{}{"temperature": c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var result OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}

	return result.Response, nil
}

func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// OllamaClientPool bounds the number of requests in flight against one
// Ollama server.
type OllamaClientPool struct {
	clients chan *OllamaClient
	config  *OllamaConfig

	mu     sync.Mutex
	closed bool
}

var errPoolClosed = errors.New("ollama client pool is closed")

func NewOllamaClientPool(config *OllamaConfig) *OllamaClientPool {
	pool := &OllamaClientPool{
		clients: make(chan *OllamaClient, config.MaxPoolSize),
		config:  config,
	}

	for i := 0; i < config.MaxPoolSize; i++ {
		pool.clients <- NewOllamaClient(config)
	}

	return pool
}

func (p *OllamaClientPool) Get(ctx context.Context) (*OllamaClient, error) {
	timer := time.NewTimer(p.config.PoolTimeout)
	defer timer.Stop()

	select {
	case client, ok := <-p.clients:
		if !ok {
			return nil, errPoolClosed
		}
		return client, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for available client")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a client to the pool. Clients handed back after Close are
// closed instead of queued.
func (p *OllamaClientPool) Put(client *OllamaClient) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		client.Close()
		return
	}

	select {
	case p.clients <- client:
	default:
	}
}

func (p *OllamaClientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.clients)
	for client := range p.clients {
		client.Close()
	}
	return nil
}

// OllamaEngine transcribes pages with a local vision model.
type OllamaEngine struct {
	pool   *OllamaClientPool
	config *OllamaConfig
	logger logger.Logger
}

func NewOllamaEngine(cfg *OllamaConfig, log logger.Logger) (*OllamaEngine, error) {
	if cfg.Endpoint == "" || cfg.Model == "" {
		return nil, fmt.Errorf("ollama endpoint and model are required")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultOllamaPrompt
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 1
	}
	if cfg.PoolTimeout <= 0 {
		cfg.PoolTimeout = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}

	return &OllamaEngine{
		pool:   NewOllamaClientPool(cfg),
		config: cfg,
		logger: log,
	}, nil
}

func (e *OllamaEngine) Name() models.Engine {
	return models.EngineOllama
}

func (e *OllamaEngine) Recognize(ctx context.Context, page image.Image, lang string) (string, error) {
	client, err := e.pool.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get ollama client: %w", err)
	}
	defer e.pool.Put(client)

	prompt := e.config.Prompt
	if strings.Contains(prompt, "%") {
		prompt = fmt.Sprintf(prompt, lang)
	}

	text, err := client.AnalyzeImage(ctx, page, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to analyze image with ollama: %w", err)
	}

	e.logger.Debug("Ollama page transcribed",
		logger.String("model", e.config.Model),
		logger.Int("chars", len(text)),
	)
	return text, nil
}

func (e *OllamaEngine) Close() error {
	return e.pool.Close()
}
