// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/banglarag/internal/models"
)

// ErrChunkNotFound is returned by GetChunk for an unknown key.
var ErrChunkNotFound = errors.New("chunk not found")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// OpenSQLiteStorage opens an existing database. A missing file is an error.
func OpenSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewSQLiteStorage(dbPath)
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		key TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		source TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		length INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_position ON chunks(position);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// BatchCreateChunks inserts records in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, records []*ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (key, position, chunk_id, source, chunk_index, content, length)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		c := r.Chunk
		if _, err := stmt.ExecContext(ctx, r.Key, r.Position, c.ChunkID, c.Source, c.ChunkIndex, c.Content, c.Length); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

// GetChunk returns the chunk stored under key.
func (s *SQLiteStorage) GetChunk(ctx context.Context, key string) (*models.Chunk, error) {
	var c models.Chunk
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, source, chunk_index, content, length FROM chunks WHERE key = ?`, key,
	).Scan(&c.ChunkID, &c.Source, &c.ChunkIndex, &c.Content, &c.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChunks returns all records in insertion order.
func (s *SQLiteStorage) ListChunks(ctx context.Context) ([]*ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, position, chunk_id, source, chunk_index, content, length
		 FROM chunks ORDER BY position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ChunkRecord
	for rows.Next() {
		var r ChunkRecord
		var c models.Chunk
		if err := rows.Scan(&r.Key, &r.Position, &c.ChunkID, &c.Source, &c.ChunkIndex, &c.Content, &c.Length); err != nil {
			return nil, err
		}
		r.Chunk = &c
		records = append(records, &r)
	}
	return records, rows.Err()
}

// SetMeta upserts metadata entries.
func (s *SQLiteStorage) SetMeta(ctx context.Context, meta map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetMeta returns all metadata entries.
func (s *SQLiteStorage) GetMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// CountSources returns the number of distinct source documents.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
