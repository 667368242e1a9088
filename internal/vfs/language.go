package vfs

import (
	"path"
	"strings"
)

// languageByExt maps file extensions to editor language identifiers.
var languageByExt = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
	".sass":  "sass",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".go":    "go",
	".rs":    "rust",
	".php":   "php",
	".rb":    "ruby",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "bash",
	".json":  "json",
	".xml":   "xml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".md":    "markdown",
	".txt":   "plaintext",
	".sql":   "sql",
}

// LanguageForName returns the language identifier for a file name, or
// "plaintext" when the extension is unknown.
func LanguageForName(name string) string {
	if lang, ok := languageByExt[strings.ToLower(path.Ext(name))]; ok {
		return lang
	}
	return "plaintext"
}
