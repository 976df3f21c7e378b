// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and the per-language settings used to extract entities.
package lang

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// ClassTypes and FunctionTypes list the node types recorded as class-like
	// and function-like entities.
	ClassTypes    map[string]bool
	FunctionTypes map[string]bool

	// NameTypes lists child node types scanned for a declared name when the
	// grammar exposes no "name" field (Kotlin).
	NameTypes map[string]bool

	// DecoratorTypes are sibling node types that belong to the definition
	// that follows them; CommentTypes are skipped while scanning backwards.
	DecoratorTypes map[string]bool
	CommentTypes   map[string]bool

	// DocstringType is the string literal node type recognised as a
	// docstring; empty when the language has no body docstrings.
	DocstringType string

	// Unescape converts the verbatim text of a DocstringType literal into
	// its value.
	Unescape func(literal string) (string, error)
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// IsClass reports whether nodeType is a class-like definition.
func (l *Language) IsClass(nodeType string) bool {
	return l.ClassTypes[nodeType]
}

// IsFunction reports whether nodeType is a function-like definition.
func (l *Language) IsFunction(nodeType string) bool {
	return l.FunctionTypes[nodeType]
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// SupportedExtensions returns every registered extension, sorted.
func SupportedExtensions() []string {
	m := getExtensionMap()
	exts := make([]string, 0, len(m))
	for ext := range m {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Names returns the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
