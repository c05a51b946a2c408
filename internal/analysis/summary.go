package analysis

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/askrepo/askrepo/internal/config"
)

// FileStat describes a single file in the largest/longest listings.
type FileStat struct {
	Path  string `json:"path"` // relative to the repository root
	Size  int64  `json:"size_bytes"`
	Lines int    `json:"lines,omitempty"`
}

// RepoSummary is a read-only snapshot of a repository, computed in one pass.
// It is never mutated after Analyze returns; a reload produces a new value.
type RepoSummary struct {
	Root         string         `json:"root"`
	AnalyzedAt   time.Time      `json:"analyzed_at"`
	TotalFiles   int            `json:"total_files"`
	SizeBytes    int64          `json:"size_bytes"`
	FilesByExt   map[string]int `json:"files_by_ext"`
	Languages    map[string]int `json:"languages"` // display name -> file count
	Directories  []string       `json:"directories"`
	KeyFiles     []string       `json:"key_files"`
	LargestFiles []FileStat     `json:"largest_files"`
	LongestFiles []FileStat     `json:"longest_files"`

	// Aggregate line counts over the inspected subset of text files.
	InspectedFiles int `json:"inspected_files"`
	TotalLines     int `json:"total_lines"`
	CodeLines      int `json:"code_lines"`
	CommentLines   int `json:"comment_lines"`
	BlankLines     int `json:"blank_lines"`
}

// SizeMB returns the repository size in megabytes.
func (s *RepoSummary) SizeMB() float64 {
	return float64(s.SizeBytes) / (1024 * 1024)
}

// LanguageList returns language names sorted by file count, descending.
func (s *RepoSummary) LanguageList() []string {
	names := make([]string, 0, len(s.Languages))
	for name := range s.Languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Languages[names[i]] != s.Languages[names[j]] {
			return s.Languages[names[i]] > s.Languages[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// CommentRatio returns comment lines as a fraction of non-blank lines.
func (s *RepoSummary) CommentRatio() float64 {
	nonBlank := s.CodeLines + s.CommentLines
	if nonBlank == 0 {
		return 0
	}
	return float64(s.CommentLines) / float64(nonBlank)
}

// Analyzer walks repository trees and produces summaries.
type Analyzer struct {
	cfg      config.AnalysisConfig
	keyFiles map[string]bool
	textExts map[string]bool
}

// New creates an analyzer with the given limits and patterns.
func New(cfg config.AnalysisConfig) *Analyzer {
	keyFiles := make(map[string]bool, len(cfg.KeyFiles))
	for _, name := range cfg.KeyFiles {
		keyFiles[strings.ToLower(name)] = true
	}
	textExts := make(map[string]bool, len(cfg.TextExts))
	for _, ext := range cfg.TextExts {
		textExts[strings.ToLower(ext)] = true
	}
	return &Analyzer{cfg: cfg, keyFiles: keyFiles, textExts: textExts}
}

// Analyze walks the tree rooted at root once and returns its summary.
// Individual unreadable files are skipped; a missing or non-directory root
// is an error.
func (a *Analyzer) Analyze(root string) (*RepoSummary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	summary := &RepoSummary{
		Root:       root,
		AnalyzedAt: time.Now(),
		FilesByExt: make(map[string]int),
		Languages:  make(map[string]int),
	}

	var allFiles []FileStat

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil // unreadable file, skip and continue
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || a.ignoredDir(name) {
				return filepath.SkipDir
			}
			if len(summary.Directories) < a.cfg.MaxDirectories {
				if rel, relErr := filepath.Rel(root, path); relErr == nil {
					summary.Directories = append(summary.Directories, rel)
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		summary.TotalFiles++

		fi, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		summary.SizeBytes += fi.Size()

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		allFiles = append(allFiles, FileStat{Path: rel, Size: fi.Size()})

		if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
			summary.FilesByExt[ext]++
		}
		if lang := LanguageName(name); lang != "" {
			summary.Languages[lang]++
		}
		if a.keyFiles[strings.ToLower(name)] {
			summary.KeyFiles = append(summary.KeyFiles, rel)
		}

		// Content stats for the first K text files within the size cap.
		if summary.InspectedFiles < a.cfg.MaxStatFiles &&
			a.textExts[strings.ToLower(filepath.Ext(name))] &&
			fi.Size() <= a.cfg.MaxFileSize {
			if lines := a.countLines(path, summary); lines > 0 {
				summary.InspectedFiles++
				allFiles[len(allFiles)-1].Lines = lines
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	summary.LargestFiles = topBySize(allFiles, a.cfg.TopFiles)
	summary.LongestFiles = topByLines(allFiles, a.cfg.TopFiles)
	a.fillLineCounts(root, summary.LargestFiles)

	sort.Strings(summary.KeyFiles)
	return summary, nil
}

func (a *Analyzer) ignoredDir(name string) bool {
	for _, d := range a.cfg.IgnoreDirs {
		if name == d {
			return true
		}
	}
	return false
}

// countLines adds the file's line classification to the aggregate counts and
// returns the total lines read, or 0 when the file could not be read.
func (a *Analyzer) countLines(path string, summary *RepoSummary) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	language := detectLanguage(path)
	inMultiLine := false
	lines := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			summary.BlankLines++
			continue
		}
		isComment, next := isCommentLine(trimmed, language, inMultiLine)
		inMultiLine = next
		if isComment {
			summary.CommentLines++
		} else {
			summary.CodeLines++
		}
	}
	summary.TotalLines += lines
	return lines
}

// fillLineCounts counts lines for the largest files that were not inspected
// during the walk.
func (a *Analyzer) fillLineCounts(root string, files []FileStat) {
	for i := range files {
		if files[i].Lines > 0 {
			continue
		}
		f, err := os.Open(filepath.Join(root, files[i].Path))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		n := 0
		for scanner.Scan() {
			n++
		}
		f.Close()
		files[i].Lines = n
	}
}

func topBySize(files []FileStat, limit int) []FileStat {
	sorted := make([]FileStat, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size > sorted[j].Size
		}
		return sorted[i].Path < sorted[j].Path
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func topByLines(files []FileStat, limit int) []FileStat {
	var withLines []FileStat
	for _, f := range files {
		if f.Lines > 0 {
			withLines = append(withLines, f)
		}
	}
	sort.Slice(withLines, func(i, j int) bool {
		if withLines[i].Lines != withLines[j].Lines {
			return withLines[i].Lines > withLines[j].Lines
		}
		return withLines[i].Path < withLines[j].Path
	})
	if len(withLines) > limit {
		withLines = withLines[:limit]
	}
	return withLines
}
