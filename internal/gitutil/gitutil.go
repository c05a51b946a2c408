// Package gitutil provides git CLI operations for fetching repositories.
package gitutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent git CLI operations using a weighted semaphore.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool that allows at most limit concurrent git operations.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. A nil pool runs fn
// directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Cloner clones repositories into temporary directories.
type Cloner struct {
	pool *Pool
}

// NewCloner creates a cloner backed by the given pool.
func NewCloner(pool *Pool) *Cloner {
	return &Cloner{pool: pool}
}

// Clone performs a shallow clone of url into a fresh temporary directory
// and returns its path. The caller owns the directory.
func (c *Cloner) Clone(ctx context.Context, url string) (string, error) {
	if !IsRepoURL(url) {
		return "", fmt.Errorf("not a clonable URL: %s", url)
	}

	dir, err := os.MkdirTemp("", "askrepo-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	err = c.pool.Run(ctx, func() error {
		cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, dir)
		out, runErr := cmd.CombinedOutput()
		if runErr != nil {
			return fmt.Errorf("git clone failed: %s", firstLine(string(out)))
		}
		return nil
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// IsRepoURL reports whether s looks like a remote repository URL rather
// than a local path.
func IsRepoURL(s string) bool {
	return strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "git@")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
