package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/github"
)

func sampleSummary() *analysis.RepoSummary {
	return &analysis.RepoSummary{
		TotalFiles: 1247,
		SizeBytes:  5 * 1024 * 1024,
		Languages:  map[string]int{"Python": 800, "JavaScript": 300, "Markdown": 147},
		FilesByExt: map[string]int{".py": 800, ".js": 300, ".md": 147},
		KeyFiles:   []string{"README.md", "requirements.txt"},
		LargestFiles: []analysis.FileStat{
			{Path: "src/app.py", Size: 40000, Lines: 1200},
		},
		LongestFiles: []analysis.FileStat{
			{Path: "src/app.py", Size: 40000, Lines: 1200},
		},
		InspectedFiles: 100,
		TotalLines:     50000,
		CodeLines:      35000,
		CommentLines:   5000,
		BlankLines:     10000,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"What's the structure of this project?", CategoryStructure},
		{"show the folder layout", CategoryStructure},
		{"How many functions are there?", CategoryCodeAnalysis},
		{"are there open bugs?", CategoryIssues},
		{"can you suggest improvements", CategorySuggestions},
		{"show me the files", CategoryFiles},
		{"what packages does it use", CategoryDependencies},
		{"help", CategoryHelp},
		{"what can you do", CategoryHelp},
		{"banana", CategoryFallback},
		{"", CategoryFallback},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text), tt.text)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, Classify("structure"), Classify("STRUCTURE"))
	assert.Equal(t, CategoryStructure, Classify("STRUCTURE"))
}

// Priority pins: when keywords from two categories appear, the category
// listed earlier in the rule table wins.
func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		// "review" (issues) beats "dependencies"
		{"review the dependencies", CategoryIssues},
		// "structure" beats "code"
		{"structure of the code", CategoryStructure},
		// "functions" (code-analysis) beats "files"
		{"functions across files", CategoryCodeAnalysis},
		// "suggest" beats "packages"
		{"suggest better packages", CategorySuggestions},
		// "files" beats "imports"
		{"files with imports", CategoryFiles},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.text), tt.text)
	}
}

func TestRespondTotality(t *testing.T) {
	r := NewResponder()
	inputs := []string{
		"", "banana", "STRUCTURE", "what about the code?", "issues?",
		"suggest something", "show me files", "dependencies", "help",
		"ünïcode ∆ input", "a b c d e f g",
	}
	for _, in := range inputs {
		assert.NotEmpty(t, r.Respond(in, sampleSummary(), nil), in)
		assert.NotEmpty(t, r.Respond(in, nil, nil), in)
	}
}

func TestRespondWithoutSummary(t *testing.T) {
	r := NewResponder()
	for _, in := range []string{"structure", "banana", "help", ""} {
		assert.Equal(t, NoRepoMessage, r.Respond(in, nil, nil), in)
	}
}

func TestRespondStructure(t *testing.T) {
	r := NewResponder()
	out := r.Respond("What's the structure of this project?", sampleSummary(), nil)

	assert.Contains(t, out, "1247")
	assert.Contains(t, out, "languages: 3")
	assert.Contains(t, out, "README.md")
}

func TestRespondFallbackNotException(t *testing.T) {
	r := NewResponder()
	out := r.Respond("banana", sampleSummary(), nil)

	require.NotEmpty(t, out)
	assert.Contains(t, out, "Repository Assistant")
	assert.Contains(t, out, "1247")
}

func TestRespondIssuesWithoutData(t *testing.T) {
	r := NewResponder()
	out := r.Respond("any open issues?", sampleSummary(), nil)

	assert.Contains(t, out, "No issue data")
}

func TestRespondIssuesWithData(t *testing.T) {
	gh := &github.Data{
		Issues: []github.Issue{
			{Number: 12, Title: "Crash on startup", State: "open", Author: "alice", Labels: []string{"bug"}},
			{Number: 9, Title: "Docs are stale", State: "closed", Author: "bob", Labels: []string{"bug", "docs"}},
		},
		PullRequests: []github.PullRequest{
			{Number: 15, Title: "Fix crash", State: "open", Author: "carol"},
		},
	}

	out := NewResponder().Respond("what issues are open", sampleSummary(), gh)

	assert.Contains(t, out, "Open issues: 1")
	assert.Contains(t, out, "#12")
	assert.Contains(t, out, "bug: 2 issues")
	assert.Contains(t, out, "Open pull requests: 1")
}

func TestRespondSuggestions(t *testing.T) {
	sum := sampleSummary()
	sum.KeyFiles = []string{"requirements.txt"} // no readme, no license

	out := NewResponder().Respond("suggest improvements", sum, nil)

	assert.Contains(t, out, "README.md")
	assert.Contains(t, out, "LICENSE")
}

func TestRespondDependencies(t *testing.T) {
	out := NewResponder().Respond("what are the dependencies", sampleSummary(), nil)

	assert.Contains(t, out, "requirements.txt")
	assert.Contains(t, out, "Python project")
}

func TestRespondFiles(t *testing.T) {
	out := NewResponder().Respond("show me the files", sampleSummary(), nil)

	assert.Contains(t, out, "src/app.py")
	assert.Contains(t, out, ".py: 800 files")
}

func TestShortenRuneBoundary(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 5, "abcde..."},
		{strings.Repeat("é", 8), 5, strings.Repeat("é", 5) + "..."},
		{"修复崩溃的错误报告", 4, "修复崩溃..."},
	}
	for _, tt := range tests {
		got := shorten(tt.in, tt.limit)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got))
	}
}
