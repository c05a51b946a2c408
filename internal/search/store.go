package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// vecAutoOnce ensures the sqlite-vec extension is registered exactly once
// before any database connection is opened.
var vecAutoOnce sync.Once

// VectorStore persists chunks and their embeddings in sqlite with the
// sqlite-vec extension for KNN lookup. Safe for concurrent use.
type VectorStore struct {
	db   *sql.DB
	path string

	mu         sync.RWMutex
	dimensions int
}

// OpenVectorStore opens (creating if needed) the index database at path.
func OpenVectorStore(path string) (*VectorStore, error) {
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	// WAL mode for concurrent reads, busy_timeout to wait for locks.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	if _, err := db.Exec("SELECT vec_version()"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}

	s := &VectorStore{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	return s, nil
}

func (s *VectorStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			content TEXT NOT NULL,
			start INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path)`)
	return err
}

func (s *VectorStore) createVectorTable(dimensions int) error {
	if s.dimensions == dimensions {
		return nil
	}
	s.dimensions = dimensions

	// Dimension change requires a fresh vector table.
	_, _ = s.db.Exec("DROP TABLE IF EXISTS chunk_embeddings")

	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dimensions))
	if err != nil {
		return fmt.Errorf("creating vector table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *VectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Reset removes all indexed chunks and embeddings.
func (s *VectorStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM chunks"); err != nil {
		return err
	}
	_, _ = s.db.Exec("DROP TABLE IF EXISTS chunk_embeddings")
	s.dimensions = 0
	return nil
}

// StoreChunks writes chunks and their embeddings in one transaction.
// chunks and vectors must have equal length.
func (s *VectorStore) StoreChunks(chunks []Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createVectorTable(len(vectors[0])); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	chunkStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO chunks (id, file_path, content, start)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	embStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO chunk_embeddings (chunk_id, embedding)
		VALUES (?, ?)
	`)
	if err != nil {
		return err
	}
	defer embStmt.Close()

	for i, chunk := range chunks {
		if _, err := chunkStmt.Exec(chunk.ID, chunk.FilePath, chunk.Content, chunk.Start); err != nil {
			return fmt.Errorf("storing chunk %s: %w", chunk.ID, err)
		}
		if _, err := embStmt.Exec(chunk.ID, floatsToBytes(vectors[i])); err != nil {
			return fmt.Errorf("storing embedding for %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of indexed chunks.
func (s *VectorStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// Query returns the chunks closest to the query vector.
func (s *VectorStore) Query(ctx context.Context, vector []float32, limit int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimensions == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.file_path, c.content, c.start,
		       vec_distance_cosine(ce.embedding, ?) AS distance
		FROM chunk_embeddings ce
		JOIN chunks c ON ce.chunk_id = c.id
		ORDER BY distance ASC
		LIMIT ?
	`, floatsToBytes(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var distance float64
		if err := rows.Scan(&r.File, &r.Snippet, &r.Offset, &distance); err != nil {
			return nil, err
		}
		r.Score = 1.0 - distance
		r.Kind = "semantic"
		results = append(results, r)
	}
	return results, rows.Err()
}

// floatsToBytes packs a float32 slice little-endian for sqlite-vec.
func floatsToBytes(floats []float32) []byte {
	out := make([]byte, len(floats)*4)
	for i, f := range floats {
		bits := math.Float32bits(f)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
