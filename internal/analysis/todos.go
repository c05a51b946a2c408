package analysis

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TodoItem is a single TODO-style marker found in the tree.
type TodoItem struct {
	File string `json:"file"` // relative path
	Line int    `json:"line"`
	Text string `json:"text"`
}

// defaultTodoMarkers are the markers scanned for when none are given.
var defaultTodoMarkers = []string{"TODO", "FIXME", "HACK"}

const maxTodosPerFile = 20

// ScanTodos walks the tree and collects TODO/FIXME/HACK markers from text
// files, capped per file. Unreadable files are skipped.
func (a *Analyzer) ScanTodos(root string, markers []string) ([]TodoItem, error) {
	if len(markers) == 0 {
		markers = defaultTodoMarkers
	}

	var items []TodoItem
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || a.ignoredDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !a.textExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		items = append(items, scanFileTodos(path, rel, markers)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func scanFileTodos(path, rel string, markers []string) []TodoItem {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var items []TodoItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		for _, marker := range markers {
			if strings.Contains(line, marker) {
				text := strings.TrimSpace(line)
				if len(text) > 200 {
					text = text[:200] + "..."
				}
				items = append(items, TodoItem{File: rel, Line: lineNum, Text: text})
				break
			}
		}
		if len(items) >= maxTodosPerFile {
			break
		}
	}
	return items
}
