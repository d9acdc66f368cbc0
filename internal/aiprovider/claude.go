package aiprovider

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultClaudeModel      = "claude-sonnet-4-20250514"
	anthropicVersion        = "2023-06-01"
)

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ClaudeProvider Anthropic messages API.
type ClaudeProvider struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

func NewClaudeProvider(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *ClaudeProvider {
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	if model == "" {
		model = DefaultClaudeModel
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ClaudeProvider{httpClient: client, model: model, logger: logger}
}

func (p *ClaudeProvider) Name() string { return ProviderClaude }

func (p *ClaudeProvider) Call(ctx context.Context, systemPrompt, userMessage string) (*Completion, error) {
	request := claudeRequest{
		Model:     p.model,
		MaxTokens: maxOutputTokens,
		System:    systemPrompt,
		Messages:  []claudeMessage{{Role: "user", Content: userMessage}},
	}

	var response claudeResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/messages")
	if err != nil {
		p.logger.Error("Claude API call failed", zap.Error(err))
		return nil, &ProviderError{Provider: ProviderClaude, Message: err.Error()}
	}
	if resp.IsError() {
		pe := readProviderError(ProviderClaude, resp)
		p.logger.Error("Claude API returned error",
			zap.Int("status_code", pe.StatusCode),
			zap.String("type", pe.Type),
			zap.String("message", pe.Message),
		)
		return nil, pe
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Completion{
		Text:       text.String(),
		TokensUsed: response.Usage.InputTokens + response.Usage.OutputTokens,
	}, nil
}
