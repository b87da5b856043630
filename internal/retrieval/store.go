package retrieval

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/docuchat/server/internal/agent/model"
	errx "github.com/docuchat/server/internal/core/error"
)

// Store keeps passages and their embeddings in Postgres with pgvector.
// A rebuild replaces the index wholesale via Reset; reads and writes go
// through the same table.
type Store struct {
	db  *sql.DB
	dim int
}

func NewStore(db *sql.DB, dim int) *Store {
	return &Store{db: db, dim: dim}
}

// Init creates the extension and passage table if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return errx.WrapPostgres(err)
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS passages (
		id BIGSERIAL PRIMARY KEY,
		source_file TEXT NOT NULL,
		file_name TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, s.dim)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}

// Insert adds one passage with its embedding.
func (s *Store) Insert(ctx context.Context, p model.Passage, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO passages (source_file, file_name, content, embedding) VALUES ($1, $2, $3, $4)`,
		p.SourceFile, p.FileName, p.Content, pgvector.NewVector(embedding))
	if err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}

// Search returns the k nearest passages to the query embedding.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]model.Passage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_file, file_name, content FROM passages ORDER BY embedding <-> $1 LIMIT $2`,
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.Passage
	for rows.Next() {
		var p model.Passage
		if err := rows.Scan(&p.SourceFile, &p.FileName, &p.Content); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return out, nil
}

// Count returns how many passages are indexed.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, errx.WrapPostgres(err)
	}
	return n, nil
}

// Reset drops all indexed passages.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE passages`); err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}
