// Package config loads refscan settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/refscan/internal/discover"
	"github.com/phobologic/refscan/internal/index"
	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/parse"
)

// FileName is the config file looked up at the codebase root.
const FileName = ".refscan.yaml"

// Output formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatTOON  = "toon"
)

// ErrUnknownFormat is returned by Validate for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Config holds every tunable of a run. Zero values mean "use the default"
// except where noted.
type Config struct {
	// Blacklist entries are root-relative path prefixes, or doublestar
	// globs when they contain glob syntax. They extend the built-in list.
	Blacklist []string `yaml:"blacklist"`

	// Languages restricts indexing to the named languages. Empty means all.
	Languages []string `yaml:"languages"`

	// AlwaysInclude lists extensions kept even when the ignore file
	// matches them. Nil means every supported extension.
	AlwaysInclude []string `yaml:"always_include"`

	IgnoreFile    string `yaml:"ignore_file"`
	Workers       int    `yaml:"workers"`
	MaxFileSize   int64  `yaml:"max_file_size"`
	TreeCacheSize int    `yaml:"tree_cache_size"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	Database      string `yaml:"database"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		IgnoreFile:    discover.DefaultIgnoreFile,
		MaxFileSize:   index.DefaultMaxFileSize,
		TreeCacheSize: parse.DefaultCacheSize,
		Format:        FormatJSON,
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Find loads the config file at root when one exists, and the defaults
// otherwise.
func Find(root string) (Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config file: %w", err)
	}
	return Load(path)
}

// Validate checks values that would otherwise fail late in a run.
func (c Config) Validate() error {
	if !slices.Contains([]string{FormatJSON, FormatJSONL, FormatTOON}, c.Format) {
		return fmt.Errorf("%w %q (want %s, %s or %s)", ErrUnknownFormat, c.Format, FormatJSON, FormatJSONL, FormatTOON)
	}
	for _, name := range c.Languages {
		if _, ok := lang.Languages[name]; !ok {
			return fmt.Errorf("unsupported language %q", name)
		}
	}
	for _, pattern := range c.Blacklist {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid blacklist pattern %q", pattern)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// DiscoverOptions converts the discovery settings.
func (c Config) DiscoverOptions() discover.Options {
	opts := discover.Options{
		Blacklist:  c.Blacklist,
		Languages:  c.Languages,
		IgnoreFile: c.IgnoreFile,
	}
	if c.AlwaysInclude != nil {
		opts.AlwaysInclude = make([]string, len(c.AlwaysInclude))
		for i, ext := range c.AlwaysInclude {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			opts.AlwaysInclude[i] = ext
		}
	}
	return opts
}

// IndexOptions converts the pipeline settings.
func (c Config) IndexOptions() index.Options {
	return index.Options{
		Discover:      c.DiscoverOptions(),
		Workers:       c.Workers,
		MaxFileSize:   c.MaxFileSize,
		TreeCacheSize: c.TreeCacheSize,
	}
}
