package config

import (
	"sync"
	"time"
)

var (
	ollamaOnce   sync.Once
	ollamaConfig *OllamaConfig
)

type OllamaConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxPoolSize int
}

func (c *OllamaConfig) Enabled() bool {
	return c.Endpoint != "" && c.Model != ""
}

func GetOllamaConfig() *OllamaConfig {
	ollamaOnce.Do(func() {
		loadDotEnv()

		ollamaConfig = &OllamaConfig{
			Endpoint:    getEnv("OLLAMA_ENDPOINT", ""),
			Model:       getEnv("OLLAMA_MODEL", "llama3.2-vision"),
			Temperature: getEnvFloat("OLLAMA_TEMPERATURE", 0),
			Timeout:     getEnvDuration("OLLAMA_TIMEOUT", 5*time.Minute),
			MaxPoolSize: getEnvInt("OLLAMA_MAX_POOL_SIZE", 2),
		}
	})
	return ollamaConfig
}
