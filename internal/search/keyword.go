package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// snippetContext is how many bytes of context surround a keyword hit.
const snippetContext = 200

// Result is a single search hit.
type Result struct {
	File    string  `json:"file"`
	Snippet string  `json:"snippet"`
	Offset  int     `json:"offset"`
	Score   float64 `json:"score"`
	Kind    string  `json:"kind"` // keyword or semantic
}

// KeywordSearch scans text files under root for a case-insensitive
// substring match and returns snippets around the first hit per file.
func (c *Chunker) KeywordSearch(root, query string, limit int) ([]Result, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	var results []Result
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
		if len(results) >= limit {
			return fs.SkipAll
		}
		if strings.HasPrefix(name, ".") || !c.textExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		haystack := strings.ToLower(string(data))
		idx := strings.Index(haystack, needle)
		if idx == -1 {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		start := max(idx-snippetContext, 0)
		end := min(idx+len(needle)+snippetContext, len(data))
		results = append(results, Result{
			File:    rel,
			Snippet: string(data[start:end]),
			Offset:  idx,
			Score:   1.0,
			Kind:    "keyword",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
