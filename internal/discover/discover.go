// Package discover finds parseable source files in a codebase.
package discover

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/refscan/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to the codebase root, slash-separated
	Language string
}

// DefaultBlacklist holds the version-control and virtual-environment
// directories that are never scanned.
var DefaultBlacklist = []string{".git", ".hg", ".svn", ".venv", "venv"}

// DefaultIgnoreFile is the ignore file read from the codebase root.
const DefaultIgnoreFile = ".gitignore"

// Options controls which files Files returns.
type Options struct {
	// Blacklist holds additional root-relative path prefixes. Entries
	// containing glob metacharacters are matched with doublestar instead.
	Blacklist []string

	// Languages restricts results to the named languages when non-empty.
	Languages []string

	// AlwaysInclude lists extensions that are kept even when the ignore
	// file matches them. Nil means every supported extension.
	AlwaysInclude []string

	// IgnoreFile is the root-relative ignore file; empty means DefaultIgnoreFile.
	IgnoreFile string

	Logger *slog.Logger
}

// Files discovers parseable source files under root.
// The result is sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}

	always := opts.AlwaysInclude
	if always == nil {
		always = lang.SupportedExtensions()
	}
	alwaysSet := make(map[string]struct{}, len(always))
	for _, ext := range always {
		alwaysSet[ext] = struct{}{}
	}

	blacklist := append(append([]string{}, opts.Blacklist...), DefaultBlacklist...)

	ignoreFile := opts.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = DefaultIgnoreFile
	}
	gi := loadIgnoreFile(filepath.Join(root, ignoreFile))

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if Blacklisted(rel, blacklist) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if Blacklisted(rel, blacklist) {
			return nil
		}

		ext := filepath.Ext(d.Name())
		if gi != nil && gi.MatchesPath(rel) {
			if _, ok := alwaysSet[ext]; !ok {
				return nil
			}
		}

		langName := lang.ForExtension(ext)
		if langName == "" {
			logger.Info("unsupported file extension, skipping", "extension", ext, "path", rel)
			return nil
		}

		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}

		results = append(results, FileEntry{Path: rel, Language: langName})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// Blacklisted reports whether the slash-separated relative path rel equals
// or is nested under one of the patterns.
func Blacklisted(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(p), "/")
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[{") {
			if ok, err := doublestar.Match(p, rel); err == nil && ok {
				return true
			}
			continue
		}
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

func loadIgnoreFile(path string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
