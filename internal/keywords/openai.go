// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// OpenAICompleter calls any OpenAI-compatible chat completions endpoint.
type OpenAICompleter struct {
	client    llms.Model
	maxTokens int
}

// NewOpenAICompleter creates a completer for cfg.BaseURL (the OpenAI API
// when empty) and cfg.Model.
func NewOpenAICompleter(cfg types.KeywordConfig) (*OpenAICompleter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, openai.WithBaseURL(base))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return &OpenAICompleter{client: client, maxTokens: maxTokens(cfg)}, nil
}

// Complete sends the system and user messages and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	resp, err := c.client.GenerateContent(ctx, content, llms.WithMaxTokens(c.maxTokens))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}
