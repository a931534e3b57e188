package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"match-engine/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultEmbedModel = "text-embedding-004"

// GeminiEmbedder calls the Gemini embeddings endpoint.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbedModel
	}
	return &GeminiEmbedder{client: client, model: model}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.Text(t)...)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if resp == nil {
		return nil, ErrEmptyEmbedding
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// NewGemini builds a Provider backed by Gemini embeddings.
func NewGemini(ctx context.Context, cfg config.SemanticConfig, cache VectorCache, logger *zap.Logger) (*Provider, error) {
	embedder, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, err
	}
	return NewProvider(embedder, cache, cfg.Timeout, logger), nil
}
