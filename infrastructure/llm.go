package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"referral-intake/domain"
)

const (
	ProviderGemini    = "gemini"
	ProviderVertex    = "vertex"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderVertex:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// TextGenerator sends one prompt to a generative-text service and returns its raw reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NewTextGenerator builds the generator for the configured provider.
func NewTextGenerator(ctx context.Context, cfg OracleConfig, logger *zap.Logger) (TextGenerator, error) {
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}

	var (
		gen TextGenerator
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		gen, err = NewGeminiGenerator(cfg)
	case ProviderVertex:
		gen, err = NewVertexGenerator(ctx, cfg)
	case ProviderOpenAI:
		gen, err = NewOpenAIGenerator(cfg)
	case ProviderAnthropic:
		gen, err = NewAnthropicGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Scoring oracle configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", gen.Model()),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("max_attempts", cfg.MaxAttempts))
	return gen, nil
}

// transportError classifies a failed round trip to the oracle.
func transportError(ctx context.Context, err error) *domain.OracleError {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return &domain.OracleError{Kind: domain.OracleTimeout, Retryable: true, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &domain.OracleError{Kind: domain.OracleTransport, Err: err}
	}
	return &domain.OracleError{Kind: domain.OracleTransport, Retryable: IsRetryable(err), Err: err}
}

// statusError classifies a non-2xx reply; rate limits and server errors are retryable.
func statusError(code int, err error) *domain.OracleError {
	return &domain.OracleError{
		Kind:       domain.OracleStatus,
		StatusCode: code,
		Retryable:  code == http.StatusTooManyRequests || code >= http.StatusInternalServerError,
		Err:        err,
	}
}

func emptyError(model string) *domain.OracleError {
	return &domain.OracleError{Kind: domain.OracleEmpty, Err: fmt.Errorf("model %s returned no text", model)}
}
