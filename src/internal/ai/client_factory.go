package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VectorBits/SmartScan/src/internal/ai/client"
)

type AIClient interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	GetName() string
	Close() error
}

type AIClientConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Proxy    string
}

// NewAIClient AI 客户端工厂
func NewAIClient(cfg AIClientConfig) (AIClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return client.NewGeminiClient(client.GeminiConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		})

	case "openai", "chatgpt", "gpt4":
		return client.NewOpenAIClient(client.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		})

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s (supported: gemini, openai)", cfg.Provider)
	}
}

func ValidateProvider(provider string) error {
	switch strings.ToLower(provider) {
	case "gemini", "openai", "chatgpt", "gpt4":
		return nil
	}
	return fmt.Errorf("invalid provider '%s', must be one of: gemini, openai", provider)
}
