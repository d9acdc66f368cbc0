package aiprovider

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// OpenAIProvider chat completions API.
type OpenAIProvider struct {
	httpClient *resty.Client
	model      string
	logger     *zap.Logger
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &OpenAIProvider{httpClient: client, model: model, logger: logger}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) Call(ctx context.Context, systemPrompt, userMessage string) (*Completion, error) {
	request := openAIRequest{
		Model:     p.model,
		MaxTokens: maxOutputTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	}

	var response openAIResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/chat/completions")
	if err != nil {
		p.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: err.Error()}
	}
	if resp.IsError() {
		pe := readProviderError(ProviderOpenAI, resp)
		p.logger.Error("OpenAI API returned error",
			zap.Int("status_code", pe.StatusCode),
			zap.String("type", pe.Type),
			zap.String("message", pe.Message),
		)
		return nil, pe
	}
	if len(response.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode(), Message: "response has no choices"}
	}

	return &Completion{
		Text:       response.Choices[0].Message.Content,
		TokensUsed: response.Usage.PromptTokens + response.Usage.CompletionTokens,
	}, nil
}
