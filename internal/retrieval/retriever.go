// Package retrieval provides the embedding index the QA workflow queries:
// Gemini embeddings over a pgvector-backed passage store.
package retrieval

import (
	"context"
	"fmt"

	"github.com/docuchat/server/internal/agent/model"
	errx "github.com/docuchat/server/internal/core/error"
)

// Retriever embeds a query and runs a vector-similarity search against the
// passage store. It implements model.Retriever.
type Retriever struct {
	embedder *Embedder
	store    *Store
}

func NewRetriever(embedder *Embedder, store *Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

func (r *Retriever) Query(ctx context.Context, text string, k int) ([]model.Passage, error) {
	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", errx.WrapBackend(err))
	}
	return r.store.Search(ctx, emb, k)
}
