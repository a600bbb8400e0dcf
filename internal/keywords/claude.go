// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// ClaudeCompleter calls the Claude Messages API.
type ClaudeCompleter struct {
	// Endpoint overrides claudeAPIURL when set.
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewClaudeCompleter builds a completer from cfg. cfg.BaseURL, when set,
// replaces the Messages endpoint.
func NewClaudeCompleter(cfg types.KeywordConfig) *ClaudeCompleter {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	return &ClaudeCompleter{
		Endpoint:  cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     model,
		MaxTokens: maxTokens(cfg),
		Client:    &http.Client{Timeout: cfg.Timeout},
	}
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one user message with the given system prompt and returns
// the first text block of the reply.
func (c *ClaudeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	bodyBytes, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: c.MaxTokens,
		System:    system,
		Messages:  []claudeMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = claudeAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}
