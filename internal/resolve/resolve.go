// Package resolve attaches references to entities by walking syntax trees
// and matching the identifiers found at reference sites against a
// qualified-name index and a per-file import context.
package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/model"
)

// Handler extracts the candidate identifiers referenced by node. It never
// fails: a node with nothing resolvable yields no names.
type Handler func(node *sitter.Node, source []byte) []string

// Rule pairs a handler with the reference kind recorded for its matches.
type Rule struct {
	Handle Handler
	Kind   model.ReferenceKind
}

// FileContext identifies the file whose imports are being read.
type FileContext struct {
	Path       string // Relative to the codebase root
	Repository string
}

// Package returns the dotted package path of the file, i.e. its module
// path without the final segment.
func (fc FileContext) Package() string {
	mod := model.ModulePath(fc.Path, fc.Repository)
	if i := strings.LastIndexByte(mod, '.'); i >= 0 {
		return mod[:i]
	}
	return ""
}

// Dialect is the language-specific half of the resolver: how imports map
// local names to qualified names, and which node types are reference sites.
type Dialect struct {
	Language string

	// Imports returns simple name -> qualified name for the import
	// statements under root. Malformed imports are skipped.
	Imports func(root *sitter.Node, source []byte, file FileContext) map[string]string

	// Rules maps syntax node types to the handler run on them.
	// Node types absent from the table are not reference sites.
	Rules map[string]Rule
}

// Dialects maps language names to their resolver dialect.
// Populated by init() functions in per-language files.
var Dialects = map[string]*Dialect{}

// Hit is a reference found in one file, addressed to an entity slot.
type Hit struct {
	Slot int
	Ref  model.Reference
}

// Scope resolves identifiers seen in one file.
type Scope struct {
	index   *Index
	imports map[string]string
}

// NewScope returns a scope resolving against index with the given import
// context.
func NewScope(index *Index, imports map[string]string) *Scope {
	return &Scope{index: index, imports: imports}
}

// Resolve maps an identifier to an entity slot. The identifier is first
// looked up as a qualified name, then translated through the import
// context and looked up again. It reports false when neither succeeds.
func (s *Scope) Resolve(identifier string) (int, bool) {
	if identifier == "" {
		return 0, false
	}
	if slot, ok := s.index.Lookup(identifier); ok {
		return slot, true
	}
	if qualified, ok := s.imports[identifier]; ok {
		return s.index.Lookup(qualified)
	}
	return 0, false
}

// ImportContext builds the import context of a file: the dialect's import
// mappings overlaid with an entry for every entity defined in the file
// itself, so same-file references resolve without an import.
func ImportContext(d *Dialect, index *Index, file FileContext, root *sitter.Node, source []byte) map[string]string {
	imports := d.Imports(root, source, file)
	if imports == nil {
		imports = make(map[string]string)
	}
	for _, slot := range index.InFile(file.Path) {
		e := index.Entity(slot)
		imports[e.Name] = e.QualifiedName()
	}
	return imports
}

// FindReferences walks the tree depth-first in source order and returns the
// references found, in traversal order. A reference is dropped when the same
// entity already received one of the same kind on the same line of this file.
func FindReferences(d *Dialect, scope *Scope, file string, root *sitter.Node, source []byte) []Hit {
	type key struct {
		slot int
		kind model.ReferenceKind
		line int
	}
	seen := make(map[key]struct{})

	var hits []Hit
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if rule, ok := d.Rules[node.Type()]; ok {
			var ref *model.Reference
			for _, name := range rule.Handle(node, source) {
				slot, ok := scope.Resolve(name)
				if !ok {
					continue
				}
				if ref == nil {
					pos := node.StartPoint()
					ref = &model.Reference{
						Kind:   rule.Kind,
						File:   file,
						Line:   int(pos.Row) + 1,
						Column: int(pos.Column) + 1,
						Text:   strings.TrimSpace(lang.NodeText(node, source)),
					}
				}
				k := key{slot: slot, kind: ref.Kind, line: ref.Line}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				hits = append(hits, Hit{Slot: slot, Ref: *ref})
			}
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}
	return hits
}
