// Package search provides code search over a repository checkout:
// keyword scanning always works, semantic search kicks in when an
// embedding index has been built.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Chunk is a slice of a source file prepared for indexing.
type Chunk struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Start    int    `json:"start"` // byte offset in file
}

// Chunker splits repository files into overlapping text chunks.
type Chunker struct {
	chunkSize int
	overlap   int
	maxFiles  int
	textExts  map[string]bool
}

// NewChunker builds a chunker; size and overlap come from the search config.
func NewChunker(chunkSize, overlap, maxFiles int, textExts []string) *Chunker {
	exts := make(map[string]bool, len(textExts))
	for _, ext := range textExts {
		exts[ext] = true
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		maxFiles:  maxFiles,
		textExts:  exts,
	}
}

// ChunkRepo walks the tree and chunks text files up to the file cap.
func (c *Chunker) ChunkRepo(root string) ([]Chunk, error) {
	var chunks []Chunk
	filesSeen := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !c.textExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if filesSeen >= c.maxFiles {
			return fs.SkipAll
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		filesSeen++

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		chunks = append(chunks, c.ChunkText(rel, string(data))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// ChunkText splits a single file's content into overlapping chunks.
func (c *Chunker) ChunkText(relPath, content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var chunks []Chunk
	for start := 0; start < len(content); start += step {
		end := start + c.chunkSize
		if end > len(content) {
			end = len(content)
		}
		text := content[start:end]
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				ID:       chunkID(relPath, start, text),
				FilePath: relPath,
				Content:  text,
				Start:    start,
			})
		}
		if end == len(content) {
			break
		}
	}
	return chunks
}

func chunkID(relPath string, start int, content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s:%d:%s", relPath, start, hex.EncodeToString(sum[:8]))
}
