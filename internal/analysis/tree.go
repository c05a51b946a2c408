package analysis

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TreeOptions bound the size of a rendered tree.
type TreeOptions struct {
	MaxDepth   int // directory levels below the root
	MaxEntries int // total rendered entries
}

// DefaultTreeOptions mirror the UI defaults.
var DefaultTreeOptions = TreeOptions{MaxDepth: 3, MaxEntries: 800}

// Tree renders an ASCII tree of the repository, directories before files,
// hidden and ignored entries excluded.
func (a *Analyzer) Tree(root string, opts TreeOptions) (string, error) {
	if _, err := os.Stat(root); err != nil {
		return "", err
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultTreeOptions.MaxDepth
	}
	if opts.MaxEntries == 0 {
		opts.MaxEntries = DefaultTreeOptions.MaxEntries
	}

	var b strings.Builder
	b.WriteString(filepath.Base(root))
	b.WriteString("\n")

	count := 0
	a.renderDir(&b, root, "", 1, opts, &count)
	if count >= opts.MaxEntries {
		b.WriteString("... (truncated)\n")
	}
	return b.String(), nil
}

func (a *Analyzer) renderDir(b *strings.Builder, path, prefix string, depth int, opts TreeOptions, count *int) {
	if depth > opts.MaxDepth || *count >= opts.MaxEntries {
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}

	var dirs, files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			if !a.ignoredDir(name) {
				dirs = append(dirs, name)
			}
		} else {
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	ordered := append(dirs, files...)

	for i, name := range ordered {
		if *count >= opts.MaxEntries {
			return
		}
		last := i == len(ordered)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix + connector + name + "\n")
		*count++

		if i < len(dirs) {
			a.renderDir(b, filepath.Join(path, name), childPrefix, depth+1, opts, count)
		}
	}
}
