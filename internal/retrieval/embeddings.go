package retrieval

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Embedder produces fixed-dimension embedding vectors via the Gemini
// embedding API.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
}

func NewEmbedder(client *genai.Client, model string, dim int) *Embedder {
	return &Embedder{client: client, model: model, dim: dim}
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed returns the embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	dim := int32(e.dim)
	resp, err := e.client.Models.EmbedContent(ctx, e.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("embed content: empty response")
	}

	values := resp.Embeddings[0].Values
	if len(values) != e.dim {
		return nil, fmt.Errorf("expected embedding dim %d, got %d", e.dim, len(values))
	}
	return values, nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		out[i] = emb
	}
	return out, nil
}
