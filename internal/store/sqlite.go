package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteIndex is the embedded Index backend. Vectors live in the chunks table
// and search is a brute-force cosine scan over one corpus.
type SQLiteIndex struct {
	db *DB
}

// NewSQLiteIndex wraps an open database.
func NewSQLiteIndex(db *DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

// OpenSQLiteIndex opens (or creates) the index database at path.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteIndex(db), nil
}

// DB exposes the underlying database.
func (s *SQLiteIndex) DB() *DB {
	return s.db
}

func (s *SQLiteIndex) Replace(ctx context.Context, meta CorpusMeta, entries []Entry) error {
	if err := validateEntries(meta, entries); err != nil {
		return err
	}
	meta.ChunkCount = len(entries)

	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE corpus = ?", meta.Corpus); err != nil {
		return fmt.Errorf("failed to clear corpus %s: %w", meta.Corpus, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO corpora (corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, meta.Corpus, meta.ModelStamp, meta.Dimensions, meta.ChunkCount, meta.SDKVersion, meta.ContentHash,
		meta.BuiltAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to write corpus meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, corpus, source, ordinal, title, text, payload, metadata, vector, dimension)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		md, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, meta.Corpus, e.Source, e.Ordinal, e.Title, e.Text, e.Payload, string(md),
			vectorToBlob(e.Vector), len(e.Vector),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Search(ctx context.Context, corpus string, vector []float32, k int) ([]ScoredEntry, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	meta, err := s.Meta(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if meta.Dimensions != len(vector) {
		return nil, fmt.Errorf("query has %d dimensions, corpus %s has %d", len(vector), corpus, meta.Dimensions)
	}

	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT id, source, ordinal, title, text, payload, metadata, vector
		FROM chunks WHERE corpus = ?
	`, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredEntry, 0, meta.ChunkCount)
	for rows.Next() {
		var (
			e    Entry
			md   string
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Ordinal, &e.Title, &e.Text, &e.Payload, &md, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		e.Corpus = corpus
		if e.Vector, err = blobToVector(blob); err != nil {
			continue // Skip malformed vectors
		}
		if len(e.Vector) != len(vector) {
			continue
		}
		if md != "" {
			if err := json.Unmarshal([]byte(md), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", e.ID, err)
			}
		}
		results = append(results, scoreEntry(vector, e))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return rankResults(results, k), nil
}

func (s *SQLiteIndex) Meta(ctx context.Context, corpus string) (*CorpusMeta, error) {
	row := s.db.sqlDB.QueryRowContext(ctx, `
		SELECT corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at
		FROM corpora WHERE corpus = ?
	`, corpus)
	meta, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, corpus)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (s *SQLiteIndex) Stats(ctx context.Context) ([]CorpusMeta, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx, `
		SELECT corpus, model_stamp, dimensions, chunk_count, sdk_version, content_hash, built_at
		FROM corpora ORDER BY corpus
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query corpora: %w", err)
	}
	defer rows.Close()

	var out []CorpusMeta
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func scanMeta(row rowScanner) (*CorpusMeta, error) {
	var (
		meta    CorpusMeta
		builtAt any
	)
	if err := row.Scan(&meta.Corpus, &meta.ModelStamp, &meta.Dimensions, &meta.ChunkCount,
		&meta.SDKVersion, &meta.ContentHash, &builtAt); err != nil {
		return nil, err
	}
	ts, err := parseTimeValue(builtAt)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", meta.Corpus, err)
	}
	meta.BuiltAt = ts
	return &meta, nil
}

var _ Index = (*SQLiteIndex)(nil)
