// Package analysis computes repository summaries and file statistics.
package analysis

import (
	"path/filepath"
	"strings"
)

// languageNames maps file extensions to display names for the language
// histogram.
var languageNames = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "React",
	".ts":    "TypeScript",
	".tsx":   "TypeScript React",
	".java":  "Java",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".rs":    "Rust",
	".rb":    "Ruby",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".scala": "Scala",
	".dart":  "Dart",
	".html":  "HTML",
	".css":   "CSS",
	".scss":  "SCSS",
	".md":    "Markdown",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".xml":   "XML",
	".sql":   "SQL",
	".sh":    "Shell",
}

// LanguageName returns the display name for a file's language, or "" when
// the extension is not mapped.
func LanguageName(path string) string {
	return languageNames[strings.ToLower(filepath.Ext(path))]
}

// detectLanguage detects the comment dialect from a file extension.
func detectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".mjs", ".cjs", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".rb":
		return "ruby"
	case ".swift":
		return "swift"
	case ".kt", ".kts":
		return "kotlin"
	case ".html", ".htm", ".xml":
		return "html"
	default:
		return "unknown"
	}
}

// isCommentLine classifies a trimmed line for the given comment dialect.
// It returns whether the line is a comment and whether a multi-line comment
// continues past it.
func isCommentLine(line, language string, inMultiLine bool) (bool, bool) {
	switch language {
	case "go", "java", "javascript", "typescript", "c", "cpp", "csharp", "rust", "swift", "kotlin", "scala", "dart":
		if inMultiLine {
			if strings.Contains(line, "*/") {
				return true, false
			}
			return true, true
		}
		if strings.HasPrefix(line, "/*") {
			if strings.Contains(line, "*/") {
				return true, false
			}
			return true, true
		}
		return strings.HasPrefix(line, "//"), false

	case "python", "ruby":
		if inMultiLine {
			if strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, `'''`) {
				return true, false
			}
			return true, true
		}
		if strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, `'''`) {
			rest := line[3:]
			if strings.Contains(rest, `"""`) || strings.Contains(rest, `'''`) {
				return true, false
			}
			return true, true
		}
		return strings.HasPrefix(line, "#"), false

	case "html":
		if inMultiLine {
			if strings.Contains(line, "-->") {
				return true, false
			}
			return true, true
		}
		if strings.HasPrefix(line, "<!--") {
			if strings.Contains(line, "-->") {
				return true, false
			}
			return true, true
		}
		return false, false

	default:
		return strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#"), false
	}
}
