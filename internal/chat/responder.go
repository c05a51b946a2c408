// Package chat classifies free-text questions about a repository and
// renders template answers from its summary.
package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/askrepo/askrepo/internal/analysis"
	"github.com/askrepo/askrepo/internal/github"
)

// Category is one bucket of the fixed classification scheme.
type Category string

const (
	CategoryStructure    Category = "structure"
	CategoryCodeAnalysis Category = "code-analysis"
	CategoryIssues       Category = "issues"
	CategorySuggestions  Category = "suggestions"
	CategoryFiles        Category = "files"
	CategoryDependencies Category = "dependencies"
	CategoryHelp         Category = "help"
	CategoryFallback     Category = "fallback"
)

// NoRepoMessage is returned whenever no repository summary is available.
const NoRepoMessage = "Please load a repository first. Paste a GitHub URL or a local path to get started."

// rule pairs a category with its trigger keywords. Rules are evaluated in
// order; the first category with any keyword contained in the normalized
// input wins.
type rule struct {
	category Category
	keywords []string
}

var rules = []rule{
	{CategoryStructure, []string{"structure", "organization", "folders", "directories", "layout", "architecture"}},
	{CategoryCodeAnalysis, []string{"functions", "classes", "methods", "code", "implementation", "logic"}},
	{CategoryIssues, []string{"issues", "bugs", "problems", "tickets", "review", "pull request"}},
	{CategorySuggestions, []string{"suggest", "recommend", "improve", "optimize", "best practices"}},
	{CategoryFiles, []string{"files", "show me", "content", "read", "view"}},
	{CategoryDependencies, []string{"dependencies", "imports", "packages", "libraries", "requirements"}},
	{CategoryHelp, []string{"help", "what can you do", "how do i"}},
}

// Classify maps input text to exactly one category. It is total: text
// matching no rule maps to CategoryFallback.
func Classify(text string) Category {
	normalized := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r.category
			}
		}
	}
	return CategoryFallback
}

// Responder renders answers. It holds no per-conversation state; every call
// is independent.
type Responder struct{}

// NewResponder creates a responder.
func NewResponder() *Responder {
	return &Responder{}
}

// Respond classifies text and renders the matching template from the
// summary. A nil summary always yields NoRepoMessage. The returned string
// is never empty.
func (r *Responder) Respond(text string, summary *analysis.RepoSummary, gh *github.Data) string {
	if summary == nil {
		return NoRepoMessage
	}

	switch Classify(text) {
	case CategoryStructure:
		return r.renderStructure(summary)
	case CategoryCodeAnalysis:
		return r.renderCodeAnalysis(summary)
	case CategoryIssues:
		return r.renderIssues(gh)
	case CategorySuggestions:
		return r.renderSuggestions(summary, gh)
	case CategoryFiles:
		return r.renderFiles(summary)
	case CategoryDependencies:
		return r.renderDependencies(summary)
	default:
		return r.renderHelp(summary)
	}
}

func (r *Responder) renderStructure(s *analysis.RepoSummary) string {
	var b strings.Builder
	b.WriteString("**Repository Structure**\n\n")
	fmt.Fprintf(&b, "- Total files: %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "- Repository size: %.2f MB\n", s.SizeMB())

	langs := s.LanguageList()
	fmt.Fprintf(&b, "- Programming languages: %d", len(langs))
	if len(langs) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(langs, ", "))
	}
	b.WriteString("\n")

	if len(s.KeyFiles) > 0 {
		b.WriteString("\n**Key files**\n")
		for _, f := range capList(s.KeyFiles, 5) {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(s.Directories) > 0 {
		b.WriteString("\n**Directories**\n")
		for _, d := range capList(s.Directories, 10) {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}

func (r *Responder) renderCodeAnalysis(s *analysis.RepoSummary) string {
	var b strings.Builder
	b.WriteString("**Code Analysis**\n\n")

	if len(s.Languages) > 0 {
		b.WriteString("Language distribution:\n")
		for _, lang := range s.LanguageList() {
			fmt.Fprintf(&b, "- %s: %d files\n", lang, s.Languages[lang])
		}
		b.WriteString("\n")
	}

	if s.InspectedFiles > 0 {
		fmt.Fprintf(&b, "Line counts over %d inspected files:\n", s.InspectedFiles)
		fmt.Fprintf(&b, "- Total: %d\n", s.TotalLines)
		fmt.Fprintf(&b, "- Code: %d\n", s.CodeLines)
		fmt.Fprintf(&b, "- Comments: %d (%.0f%% of non-blank lines)\n", s.CommentLines, s.CommentRatio()*100)
		fmt.Fprintf(&b, "- Blank: %d\n", s.BlankLines)
	}

	if len(s.LongestFiles) > 0 {
		b.WriteString("\nLongest files:\n")
		for _, f := range capFiles(s.LongestFiles, 5) {
			fmt.Fprintf(&b, "- %s: %d lines\n", f.Path, f.Lines)
		}
	}
	return b.String()
}

func (r *Responder) renderIssues(gh *github.Data) string {
	if gh == nil || (len(gh.Issues) == 0 && len(gh.PullRequests) == 0) {
		return "**GitHub Issues**\n\nNo issue data is loaded. Set a GitHub token and reload the repository to include issues and pull requests."
	}

	var b strings.Builder
	b.WriteString("**GitHub Issues**\n\n")
	fmt.Fprintf(&b, "- Open issues: %d\n", gh.OpenIssues())
	fmt.Fprintf(&b, "- Total issues fetched: %d\n", len(gh.Issues))
	fmt.Fprintf(&b, "- Open pull requests: %d\n", len(gh.PullRequests))

	if len(gh.Issues) > 0 {
		b.WriteString("\nRecent issues:\n")
		for _, is := range gh.Issues[:min(3, len(gh.Issues))] {
			fmt.Fprintf(&b, "- #%d: %s (by %s)\n", is.Number, shorten(is.Title, 60), is.Author)
		}
	}

	if labels := topLabels(gh.Issues, 5); len(labels) > 0 {
		b.WriteString("\nCommon labels:\n")
		for _, lc := range labels {
			fmt.Fprintf(&b, "- %s: %d issues\n", lc.name, lc.count)
		}
	}
	return b.String()
}

func (r *Responder) renderSuggestions(s *analysis.RepoSummary, gh *github.Data) string {
	var suggestions []string

	if !containsKeyFile(s.KeyFiles, "readme") {
		suggestions = append(suggestions, "Add a README.md to document the project")
	}
	if !containsKeyFile(s.KeyFiles, "license") {
		suggestions = append(suggestions, "Add a LICENSE file")
	}
	if s.Languages["Python"] > 0 && !containsKeyFile(s.KeyFiles, "requirements.txt") && !containsKeyFile(s.KeyFiles, "pyproject.toml") {
		suggestions = append(suggestions, "Add requirements.txt or pyproject.toml for Python dependencies")
	}
	if s.Languages["JavaScript"] > 0 && !containsKeyFile(s.KeyFiles, "package.json") {
		suggestions = append(suggestions, "Add package.json for JavaScript dependencies")
	}
	if s.SizeMB() > 100 {
		suggestions = append(suggestions, "Large repository: consider splitting into smaller modules")
	}
	if s.TotalFiles > 1000 {
		suggestions = append(suggestions, "Many files: verify the directory layout stays navigable")
	}
	if ratio := s.CommentRatio(); s.InspectedFiles > 0 && ratio < 0.05 {
		suggestions = append(suggestions, fmt.Sprintf("Comment ratio is %.0f%%: consider documenting the larger files", ratio*100))
	}
	if gh != nil && gh.OpenIssues() > 50 {
		suggestions = append(suggestions, fmt.Sprintf("%d open issues: consider triaging with labels and milestones", gh.OpenIssues()))
	}

	var b strings.Builder
	b.WriteString("**Suggestions**\n\n")
	if len(suggestions) == 0 {
		b.WriteString("The repository looks well organized.\n")
	} else {
		for _, sg := range suggestions {
			fmt.Fprintf(&b, "- %s\n", sg)
		}
	}
	return b.String()
}

func (r *Responder) renderFiles(s *analysis.RepoSummary) string {
	var b strings.Builder
	b.WriteString("**Files**\n\n")

	if len(s.KeyFiles) > 0 {
		b.WriteString("Important files:\n")
		for _, f := range s.KeyFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(s.LargestFiles) > 0 {
		b.WriteString("Largest files:\n")
		for _, f := range capFiles(s.LargestFiles, 8) {
			fmt.Fprintf(&b, "- %s: %d bytes, %d lines\n", f.Path, f.Size, f.Lines)
		}
		b.WriteString("\n")
	}

	if len(s.FilesByExt) > 0 {
		b.WriteString("File types:\n")
		for _, ec := range topExtensions(s.FilesByExt, 8) {
			fmt.Fprintf(&b, "- %s: %d files\n", ec.name, ec.count)
		}
	}
	return b.String()
}

func (r *Responder) renderDependencies(s *analysis.RepoSummary) string {
	manifests := []string{}
	for _, f := range s.KeyFiles {
		lower := strings.ToLower(f)
		for _, m := range []string{"requirements", "package.json", "pom.xml", "cargo.toml", "go.mod", "pyproject.toml"} {
			if strings.Contains(lower, m) {
				manifests = append(manifests, f)
				break
			}
		}
	}

	var b strings.Builder
	b.WriteString("**Dependencies**\n\n")
	if len(manifests) > 0 {
		b.WriteString("Dependency manifests found:\n")
		for _, m := range manifests {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	} else {
		b.WriteString("No standard dependency manifests found.\n")
	}

	if s.Languages["Python"] > 0 {
		b.WriteString("\nPython project: check requirements.txt, setup.py or pyproject.toml.\n")
	}
	if s.Languages["JavaScript"] > 0 || s.Languages["TypeScript"] > 0 {
		b.WriteString("\nJavaScript project: check package.json and its lockfile.\n")
	}
	if s.Languages["Go"] > 0 {
		b.WriteString("\nGo project: check go.mod and go.sum.\n")
	}
	b.WriteString("\nUse the vulnerability scan to check known advisories for these manifests.\n")
	return b.String()
}

func (r *Responder) renderHelp(s *analysis.RepoSummary) string {
	var b strings.Builder
	b.WriteString("**Repository Assistant**\n\n")
	fmt.Fprintf(&b, "Currently loaded: %d files in %d languages.\n\n", s.TotalFiles, len(s.Languages))
	b.WriteString("Ask about:\n")
	b.WriteString("- Repository structure and organization\n")
	b.WriteString("- Code analysis and the largest files\n")
	b.WriteString("- GitHub issues and pull requests\n")
	b.WriteString("- Improvement suggestions\n")
	b.WriteString("- Dependencies and packages\n\n")
	b.WriteString("Try: \"Show me the repository structure\" or \"What dependencies does this use?\"\n")
	return b.String()
}

type nameCount struct {
	name  string
	count int
}

func topLabels(issues []github.Issue, limit int) []nameCount {
	counts := map[string]int{}
	for _, is := range issues {
		for _, l := range is.Labels {
			counts[l]++
		}
	}
	return topCounts(counts, limit)
}

func topExtensions(exts map[string]int, limit int) []nameCount {
	return topCounts(exts, limit)
}

func topCounts(counts map[string]int, limit int) []nameCount {
	out := make([]nameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, nameCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func containsKeyFile(keyFiles []string, name string) bool {
	for _, f := range keyFiles {
		if strings.Contains(strings.ToLower(f), name) {
			return true
		}
	}
	return false
}

func capList(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func capFiles(items []analysis.FileStat, limit int) []analysis.FileStat {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func shorten(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}
