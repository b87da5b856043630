// Package ingestion turns uploaded PDF documents into indexed passages:
// extract text, chunk it, embed the chunks, and insert them into the
// vector store.
package ingestion

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/retrieval"
	logx "github.com/docuchat/server/pkg/logger"
)

type Indexer struct {
	embedder     *retrieval.Embedder
	store        *retrieval.Store
	chunkSize    int
	chunkOverlap int
}

func NewIndexer(embedder *retrieval.Embedder, store *retrieval.Store, chunkSize, chunkOverlap int) *Indexer {
	return &Indexer{
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IndexPDF ingests one PDF file and returns the number of passages added.
func (ix *Indexer) IndexPDF(ctx context.Context, path string) (int, error) {
	text, err := ExtractText(path)
	if err != nil {
		return 0, err
	}

	chunks := ChunkText(text, ix.chunkSize, ix.chunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced for %s", path)
	}

	embeddings, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	fileName := filepath.Base(path)
	for i, chunk := range chunks {
		p := model.Passage{
			Content:    chunk,
			SourceFile: path,
			FileName:   fileName,
		}
		if err := ix.store.Insert(ctx, p, embeddings[i]); err != nil {
			return i, fmt.Errorf("insert chunk %d of %s: %w", i, fileName, err)
		}
	}

	logx.Info().
		Str("file", fileName).
		Int("chunks", len(chunks)).
		Msg("document indexed")
	return len(chunks), nil
}
