package phrasestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/openlaudos/dictate/internal/registry"
	"github.com/openlaudos/dictate/pkg/provider/embeddings"
)

// Compile-time interface checks.
var (
	_ Store            = (*PostgresStore)(nil)
	_ SemanticSearcher = (*PostgresStore)(nil)
)

const ddlPhraseEntries = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS phrase_entries (
    id          TEXT         PRIMARY KEY,
    kind        TEXT         NOT NULL,
    patterns    TEXT[]       NOT NULL,
    variables   JSONB        NOT NULL DEFAULT '[]',
    action      TEXT         NOT NULL,
    embedding   vector(%d),
    position    BIGSERIAL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_phrase_entries_kind ON phrase_entries (kind);
`

// PostgresStore reads the shared phrase library from PostgreSQL and supports
// semantic phrase search via pgvector. All operations are safe for
// concurrent use.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// NewPostgresStore connects to the database at dsn, registers pgvector types
// on every connection, and ensures the phrase schema exists. embedder may be
// nil, which disables UpsertEntry embedding and SearchSimilar.
func NewPostgresStore(ctx context.Context, dsn string, embedder embeddings.Provider) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("phrasestore: ping: %w", err)
	}

	dims := 1536
	if embedder != nil {
		dims = embedder.Dimensions()
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(ddlPhraseEntries, dims)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("phrasestore: migrate: %w", err)
	}

	return &PostgresStore{pool: pool, embedder: embedder}, nil
}

// ListEntries implements Store. Entries come back in insertion order so
// registry snapshots stay stable across reloads.
func (s *PostgresStore) ListEntries(ctx context.Context) ([]registry.CommandEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, patterns, variables, action
		FROM phrase_entries
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: list entries: %w", err)
	}
	defer rows.Close()

	var entries []registry.CommandEntry
	for rows.Next() {
		var (
			e       registry.CommandEntry
			kind    string
			varsRaw []byte
		)
		if err := rows.Scan(&e.ID, &kind, &e.Patterns, &varsRaw, &e.Action); err != nil {
			return nil, fmt.Errorf("phrasestore: scan entry: %w", err)
		}
		e.Kind = registry.Kind(kind)
		if len(varsRaw) > 0 {
			if err := json.Unmarshal(varsRaw, &e.Variables); err != nil {
				return nil, fmt.Errorf("phrasestore: entry %q variables: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("phrasestore: iterate entries: %w", err)
	}
	return entries, nil
}

// UpsertEntry inserts or replaces one entry. When an embedder is configured
// the entry's action text is embedded so SearchSimilar can find it.
func (s *PostgresStore) UpsertEntry(ctx context.Context, e registry.CommandEntry) error {
	varsRaw, err := json.Marshal(e.Variables)
	if err != nil {
		return fmt.Errorf("phrasestore: marshal variables for %q: %w", e.ID, err)
	}

	var embedding any
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, e.Action)
		if err != nil {
			return fmt.Errorf("phrasestore: embed %q: %w", e.ID, err)
		}
		embedding = pgvector.NewVector(vec)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO phrase_entries (id, kind, patterns, variables, action, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			patterns = EXCLUDED.patterns,
			variables = EXCLUDED.variables,
			action = EXCLUDED.action,
			embedding = EXCLUDED.embedding,
			updated_at = now()`,
		e.ID, string(e.Kind), e.Patterns, varsRaw, e.Action, embedding)
	if err != nil {
		return fmt.Errorf("phrasestore: upsert %q: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes one entry. Deleting a missing ID is a no-op.
func (s *PostgresStore) DeleteEntry(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM phrase_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("phrasestore: delete %q: %w", id, err)
	}
	return nil
}

// SearchSimilar implements SemanticSearcher using cosine distance over the
// stored action-text embeddings.
func (s *PostgresStore) SearchSimilar(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("phrasestore: semantic search requires an embeddings provider")
	}
	if limit <= 0 {
		limit = 5
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: embed query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, action, embedding <=> $1 AS distance
		FROM phrase_entries
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`,
		pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: similarity query: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var sg Suggestion
		if err := rows.Scan(&sg.EntryID, &sg.Text, &sg.Distance); err != nil {
			return nil, fmt.Errorf("phrasestore: scan suggestion: %w", err)
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("phrasestore: iterate suggestions: %w", err)
	}
	return out, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
