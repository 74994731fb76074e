// Package embedding provides the optional embedding backend for semantic similarity.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/baditaflorin/go_robustness/internal/ports"
)

// Config selects the embedding endpoint and model.
type Config struct {
	Enabled bool   `koanf:"enabled"`
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

// DefaultModel is used when Config.Model is empty.
const DefaultModel = string(openai.SmallEmbedding3)

// embeddingsAPI is the slice of the OpenAI client the embedder needs.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Any server
// speaking the same API (for example a local inference server) works via BaseURL.
type OpenAIEmbedder struct {
	client embeddingsAPI
	model  openai.EmbeddingModel
	logger ports.Logger
}

// NewOpenAIEmbedder builds an embedder from configuration.
func NewOpenAIEmbedder(cfg Config, logger ports.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("embedding: api_key or base_url is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger.Info("Initializing embedding client", "model", model, "base_url", clientCfg.BaseURL)
	return newOpenAIEmbedder(openai.NewClientWithConfig(clientCfg), model, logger), nil
}

func newOpenAIEmbedder(client embeddingsAPI, model string, logger ports.Logger) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModel(model), logger: logger}
}

// Embed returns one vector per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		e.logger.Warn("Embedding request failed", "error", err)
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
