// Package history persists chat exchanges in sqlite so past Q&A survives
// restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Message is one recorded exchange.
type Message struct {
	ID        int64     `json:"id"`
	Repo      string    `json:"repo"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_repo ON messages(repo)`); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one exchange and returns its id.
func (s *Store) Record(ctx context.Context, msg Message) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (repo, question, answer, category, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.Repo, msg.Question, msg.Answer, msg.Category, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("recording message: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest messages, most recent first. An empty repo
// returns messages across all repositories.
func (s *Store) Recent(ctx context.Context, repo string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, repo, question, answer, category, created_at FROM messages`
	args := []any{}
	if repo != "" {
		query += " WHERE repo = ?"
		args = append(args, repo)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Repo, &msg.Question, &msg.Answer, &msg.Category, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Clear removes all messages for a repo, or every message when repo is empty.
func (s *Store) Clear(ctx context.Context, repo string) error {
	if repo == "" {
		_, err := s.db.ExecContext(ctx, "DELETE FROM messages")
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE repo = ?", repo)
	return err
}
