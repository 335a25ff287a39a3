package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicGenerator calls the Anthropic messages API.
type AnthropicGenerator struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewAnthropicGenerator(cfg OracleConfig) (*AnthropicGenerator, error) {
	if cfg.Key() == "" {
		return nil, fmt.Errorf("ORACLE_API_KEY is required for the anthropic provider")
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{
		client:      anthropic.NewClient(cfg.Key(), opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (a *AnthropicGenerator) Model() string {
	return a.model
}

func (a *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	system := scoringSystemMessage
	temperature := a.temperature
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(a.model),
		System:      system,
		MaxTokens:   a.maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		var reqErr *anthropic.RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
			return "", statusError(reqErr.StatusCode, err)
		}
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(anthropicStatusCode(apiErr), err)
		}
		return "", transportError(ctx, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", emptyError(a.model)
	}
	return text, nil
}

// anthropicStatusCode maps an API error type back to its documented HTTP status,
// since the client only surfaces the decoded error body.
func anthropicStatusCode(err *anthropic.APIError) int {
	switch {
	case err.IsRateLimitErr():
		return http.StatusTooManyRequests
	case err.IsOverloadedErr():
		return 529
	case err.IsApiErr():
		return http.StatusInternalServerError
	case err.IsAuthenticationErr():
		return http.StatusUnauthorized
	case err.IsPermissionErr():
		return http.StatusForbidden
	case err.IsNotFoundErr():
		return http.StatusNotFound
	case err.IsTooLargeErr():
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
