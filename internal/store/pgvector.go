package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS tecton_mcp_corpora (
	corpus       TEXT PRIMARY KEY,
	model_stamp  TEXT        NOT NULL,
	dimensions   INTEGER     NOT NULL,
	chunk_count  INTEGER     NOT NULL,
	sdk_version  TEXT        NOT NULL DEFAULT '',
	content_hash TEXT        NOT NULL,
	built_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tecton_mcp_chunks (
	id        TEXT    NOT NULL,
	corpus    TEXT    NOT NULL REFERENCES tecton_mcp_corpora(corpus) ON DELETE CASCADE,
	source    TEXT    NOT NULL,
	ordinal   INTEGER NOT NULL,
	title     TEXT    NOT NULL DEFAULT '',
	text      TEXT    NOT NULL,
	payload   TEXT    NOT NULL DEFAULT '',
	metadata  JSONB   NOT NULL DEFAULT '{}',
	embedding vector  NOT NULL,
	PRIMARY KEY (corpus, id)
);

-- Tables created before chunk ids were scoped to their corpus carry a
-- single-column key.
DO $$
BEGIN
	IF (SELECT COUNT(*) FROM information_schema.key_column_usage
	    WHERE table_name = 'tecton_mcp_chunks' AND constraint_name = 'tecton_mcp_chunks_pkey') = 1 THEN
		ALTER TABLE tecton_mcp_chunks DROP CONSTRAINT tecton_mcp_chunks_pkey;
		ALTER TABLE tecton_mcp_chunks ADD PRIMARY KEY (corpus, id);
	END IF;
END $$;

CREATE INDEX IF NOT EXISTS idx_tecton_mcp_chunks_corpus ON tecton_mcp_chunks(corpus);
`

// PGVectorIndex keeps corpora in Postgres using the pgvector extension.
type PGVectorIndex struct {
	db *sql.DB
}

// NewPGVector opens a connection and ensures the tables exist.
func NewPGVector(ctx context.Context, dsn string) (*PGVectorIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create pgvector schema: %w", err)
	}
	return &PGVectorIndex{db: db}, nil
}

func (p *PGVectorIndex) Replace(ctx context.Context, meta CorpusMeta, entries []Entry) error {
	if err := validateEntries(meta, entries); err != nil {
		return err
	}
	meta.ChunkCount = len(entries)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tecton_mcp_chunks WHERE corpus = $1`, meta.Corpus); err != nil {
		return fmt.Errorf("clear corpus: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tecton_mcp_corpora (corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (corpus) DO UPDATE SET
			model_stamp = EXCLUDED.model_stamp,
			dimensions = EXCLUDED.dimensions,
			chunk_count = EXCLUDED.chunk_count,
			sdk_version = EXCLUDED.sdk_version,
			content_hash = EXCLUDED.content_hash,
			built_at = EXCLUDED.built_at`,
		meta.Corpus, meta.ModelStamp, meta.Dimensions, meta.ChunkCount, meta.SDKVersion, meta.ContentHash, meta.BuiltAt.UTC(),
	); err != nil {
		return fmt.Errorf("write corpus meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tecton_mcp_chunks (id, corpus, source, ordinal, title, text, payload, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::vector)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		md, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, meta.Corpus, e.Source, e.Ordinal, e.Title, e.Text, e.Payload, string(md), vectorToString(e.Vector),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func (p *PGVectorIndex) Search(ctx context.Context, corpus string, vector []float32, k int) ([]ScoredEntry, error) {
	meta, err := p.Meta(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if meta.Dimensions != len(vector) {
		return nil, fmt.Errorf("query has %d dimensions, corpus %s has %d", len(vector), corpus, meta.Dimensions)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, source, ordinal, title, text, payload, metadata, embedding::text,
		       1 - (embedding <=> $1::vector) AS similarity
		FROM tecton_mcp_chunks
		WHERE corpus = $2
		ORDER BY embedding <=> $1::vector, id
		LIMIT $3`, vectorToString(vector), corpus, k)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var results []ScoredEntry
	for rows.Next() {
		se, err := scanScoredEntry(rows, corpus)
		if err != nil {
			return nil, err
		}
		results = append(results, se)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankResults(results, k), nil
}

// scanScoredEntry decodes one similarity row: id, source, ordinal, title,
// text, payload, metadata (jsonb), embedding (vector text), similarity.
func scanScoredEntry(row rowScanner, corpus string) (ScoredEntry, error) {
	var (
		se    ScoredEntry
		md    []byte
		vec   string
		score float64
	)
	if err := row.Scan(&se.ID, &se.Source, &se.Ordinal, &se.Title, &se.Text, &se.Payload, &md, &vec, &score); err != nil {
		return ScoredEntry{}, fmt.Errorf("scan similar: %w", err)
	}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &se.Metadata); err != nil {
			return ScoredEntry{}, fmt.Errorf("decode metadata for %s: %w", se.ID, err)
		}
	}
	var err error
	if se.Vector, err = parseVectorString(vec); err != nil {
		return ScoredEntry{}, fmt.Errorf("decode vector for %s: %w", se.ID, err)
	}
	se.Corpus = corpus
	se.Score = float32(score)
	se.Distance = 1 - se.Score
	return se, nil
}

func (p *PGVectorIndex) Meta(ctx context.Context, corpus string) (*CorpusMeta, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at
		FROM tecton_mcp_corpora WHERE corpus = $1`, corpus)
	meta, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, corpus)
	}
	if err != nil {
		return nil, fmt.Errorf("get corpus meta: %w", err)
	}
	return meta, nil
}

func (p *PGVectorIndex) Stats(ctx context.Context) ([]CorpusMeta, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at
		FROM tecton_mcp_corpora ORDER BY corpus`)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	defer rows.Close()

	var out []CorpusMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan corpus: %w", err)
		}
		out = append(out, *meta)
	}
	return out, rows.Err()
}

func (p *PGVectorIndex) Close() error {
	return p.db.Close()
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVectorString is the inverse of vectorToString.
func parseVectorString(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

var _ Index = (*PGVectorIndex)(nil)
