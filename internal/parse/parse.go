// Package parse turns source files into tree-sitter syntax trees and keeps
// recently parsed trees for reuse across passes.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrInvalidEncoding is returned for source files that are not valid UTF-8.
var ErrInvalidEncoding = errors.New("invalid UTF-8")

// DefaultCacheSize is the number of syntax trees kept by NewCache when no
// size is given.
const DefaultCacheSize = 512

// File is a source file read fully into memory together with its syntax tree.
type File struct {
	Path   string // Relative to the codebase root
	Source []byte
	Hash   uint64
	Tree   *sitter.Tree
}

// Root returns the root node of the file's syntax tree.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Source reads root/rel fully into memory. Read failures and content that is
// not valid UTF-8 are annotated with the relative path.
func Source(root, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("reading %s: %w", rel, ErrInvalidEncoding)
	}
	return data, nil
}

// Tree parses source with parser. The parser must be created for the
// correct language.
func Tree(ctx context.Context, parser *sitter.Parser, source []byte) (*sitter.Tree, error) {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// Cache keeps parsed trees keyed by path. An entry is only returned when the
// content hash still matches, so an edited file is always parsed again.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	trees *lru.Cache[string, *File]
}

// NewCache returns a cache holding at most size trees. A size <= 0 returns nil.
func NewCache(size int) *Cache {
	if size <= 0 {
		return nil
	}
	trees, err := lru.New[string, *File](size)
	if err != nil {
		return nil
	}
	return &Cache{trees: trees}
}

// Load returns the parsed file for rel, reading it from root and reusing a
// cached tree when its content is unchanged.
func (c *Cache) Load(ctx context.Context, parser *sitter.Parser, root, rel string) (*File, error) {
	source, err := Source(root, rel)
	if err != nil {
		return nil, err
	}
	hash := xxhash.Sum64(source)

	if c != nil {
		if f, ok := c.trees.Get(rel); ok && f.Hash == hash {
			return f, nil
		}
	}

	tree, err := Tree(ctx, parser, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rel, err)
	}
	f := &File{Path: rel, Source: source, Hash: hash, Tree: tree}
	if c != nil {
		c.trees.Add(rel, f)
	}
	return f, nil
}

// Len reports the number of cached trees.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.trees.Len()
}
