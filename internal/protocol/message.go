package protocol

import (
	"path/filepath"
	"strings"
)

// Payload carries the content of a message.
type Payload struct {
	Text     string `json:"text,omitempty"`
	Code     string `json:"code,omitempty"`
	Diff     string `json:"diff,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Language string `json:"language,omitempty"`
}

// Message types.
const (
	TypeText   = "text"
	TypeCode   = "code"
	TypeDiff   = "diff"
	TypeSystem = "system"
	// TypeWidget messages carry an interactive widget in their submessages;
	// the payload text is a plain-text fallback for clients without widget
	// support.
	TypeWidget = "widget"
)

// NewTextPayload creates a payload for a plain text message.
func NewTextPayload(text string) Payload {
	return Payload{Text: text}
}

// NewCodePayload creates a payload for a code snippet.
func NewCodePayload(code, filePath, language string) Payload {
	if language == "" && filePath != "" {
		language = DetectLanguage(filePath)
	}
	return Payload{Code: code, FilePath: filePath, Language: language}
}

// NewDiffPayload creates a payload for a diff.
func NewDiffPayload(diff, filePath string) Payload {
	return Payload{Diff: diff, FilePath: filePath}
}

// NewPollPayload creates the fallback payload of a poll message.
func NewPollPayload(question string) Payload {
	return Payload{Text: "/poll " + question}
}

var languagesByExt = map[string]string{
	".go":         "go",
	".py":         "python",
	".js":         "javascript",
	".ts":         "typescript",
	".rs":         "rust",
	".rb":         "ruby",
	".java":       "java",
	".c":          "c",
	".cpp":        "cpp",
	".cc":         "cpp",
	".cxx":        "cpp",
	".h":          "cpp",
	".hpp":        "cpp",
	".cs":         "csharp",
	".sh":         "bash",
	".bash":       "bash",
	".yaml":       "yaml",
	".yml":        "yaml",
	".json":       "json",
	".md":         "markdown",
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".sql":        "sql",
	".dockerfile": "dockerfile",
}

// DetectLanguage guesses a language from a file extension.
func DetectLanguage(path string) string {
	return languagesByExt[strings.ToLower(filepath.Ext(path))]
}
