package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexGenerator calls Gemini models through Vertex AI using application default credentials.
type VertexGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewVertexGenerator(ctx context.Context, cfg OracleConfig) (*VertexGenerator, error) {
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"

	return &VertexGenerator{client: client, model: model, name: cfg.Model}, nil
}

func (v *VertexGenerator) Model() string {
	return v.name
}

func (v *VertexGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", transportError(ctx, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", emptyError(v.name)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", emptyError(v.name)
	}
	return text, nil
}

func (v *VertexGenerator) Close() error {
	return v.client.Close()
}
