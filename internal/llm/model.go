// Package llm constructs the chat model shared by the extraction and
// generation capabilities.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Config holds the connection settings for the language capability.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// NewChatModel builds an OpenAI-compatible chat model. Construction does
// no network I/O; failures here are configuration errors.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	maxTokens := 2048
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return cm, nil
}
