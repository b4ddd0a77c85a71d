package config

import (
	"sync"
)

var (
	textractOnce   sync.Once
	textractConfig *TextractConfig
)

type TextractConfig struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float64
	FeatureTypes  []string
}

// Enabled reports whether enough is configured to build a Textract client.
func (c *TextractConfig) Enabled() bool {
	return c.Region != ""
}

func GetTextractConfig() *TextractConfig {
	textractOnce.Do(func() {
		loadDotEnv()

		textractConfig = &TextractConfig{
			Region:        getEnv("AWS_REGION", ""),
			Endpoint:      getEnv("AWS_ENDPOINT", ""),
			AccessKey:     getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:     getEnv("AWS_SECRET_KEY", ""),
			MinConfidence: getEnvFloat("TEXTRACT_MIN_CONFIDENCE", 0),
			FeatureTypes:  getEnvList("TEXTRACT_FEATURE_TYPES", nil),
		}
	})
	return textractConfig
}
