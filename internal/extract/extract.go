// Package extract finds class and function definitions in syntax trees and
// turns them into entities.
package extract

import (
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/model"
)

// Nodes walks the tree rooted at root depth-first and returns the class-like
// nodes and the standalone function-like nodes. A function found anywhere
// under a class is part of that class and is not returned.
func Nodes(l *lang.Language, root *sitter.Node) (classes, functions []*sitter.Node) {
	type frame struct {
		node        *sitter.Node
		insideClass bool
	}

	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := f.node
		inside := f.insideClass
		switch {
		case l.IsClass(node.Type()):
			classes = append(classes, node)
			inside = true
		case l.IsFunction(node.Type()):
			if !inside {
				functions = append(functions, node)
			}
		}

		// Push in reverse so children are visited in source order.
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: node.Child(i), insideClass: inside})
		}
	}
	return classes, functions
}

// Entities extracts the class and standalone function entities of one file.
// Classes come first, then functions, each in source order. Definitions
// without a resolvable name are skipped.
func Entities(l *lang.Language, root *sitter.Node, source []byte, relPath, repo string, logger *slog.Logger) []model.Entity {
	if logger == nil {
		logger = slog.Default()
	}

	classes, functions := Nodes(l, root)
	entities := make([]model.Entity, 0, len(classes)+len(functions))

	build := func(nodes []*sitter.Node, kind model.EntityKind) {
		for _, node := range nodes {
			name := Name(l, node, source)
			if name == "" {
				logger.Info("definition without a name, skipping",
					"path", relPath,
					"line", int(node.StartPoint().Row)+1,
					"node", node.Type())
				continue
			}
			entities = append(entities, model.Entity{
				Kind:       kind,
				Repository: repo,
				Path:       relPath,
				Language:   l.Name,
				Name:       name,
				Source:     SourceWithDecorators(l, node, source),
				Docstring:  Docstring(l, node, source),
				Line:       int(node.StartPoint().Row) + 1,
			})
		}
	}
	build(classes, model.Class)
	build(functions, model.Function)

	return entities
}

// Name returns the declared name of a definition node, or "" when none can
// be found. The "name" field is preferred; languages with NameTypes fall back
// to the first immediate child of one of those types.
func Name(l *lang.Language, node *sitter.Node, source []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return lang.NodeText(n, source)
	}
	if len(l.NameTypes) == 0 {
		return ""
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if l.NameTypes[child.Type()] {
			return lang.NodeText(child, source)
		}
	}
	return ""
}

// Decorators returns the decorator or annotation texts directly preceding
// node, in source order. Comments between them are skipped; any other
// non-blank sibling ends the scan.
func Decorators(l *lang.Language, node *sitter.Node, source []byte) []string {
	var found []string
	for sib := node.PrevSibling(); sib != nil; sib = sib.PrevSibling() {
		text := strings.TrimSpace(lang.NodeText(sib, source))
		switch {
		case l.DecoratorTypes[sib.Type()]:
			found = append(found, text)
		case l.CommentTypes[sib.Type()], text == "":
			continue
		default:
			return reverse(found)
		}
	}
	return reverse(found)
}

// SourceWithDecorators returns the verbatim source of node prefixed with its
// preceding decorators, one per line.
func SourceWithDecorators(l *lang.Language, node *sitter.Node, source []byte) string {
	text := lang.NodeText(node, source)
	decorators := Decorators(l, node, source)
	if len(decorators) == 0 {
		return text
	}
	return strings.Join(decorators, "\n") + "\n" + text
}

// Docstring returns the unescaped value of a bare string literal that is
// the first statement of node's body, or "" when there is none or it cannot
// be evaluated.
func Docstring(l *lang.Language, node *sitter.Node, source []byte) string {
	if l.DocstringType == "" || l.Unescape == nil {
		return ""
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}

	var first *sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if l.CommentTypes[child.Type()] {
			continue
		}
		first = child
		break
	}
	if first == nil || first.Type() != "expression_statement" || first.NamedChildCount() != 1 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr.Type() != l.DocstringType {
		return ""
	}

	doc, err := l.Unescape(lang.NodeText(expr, source))
	if err != nil {
		return ""
	}
	return doc
}

func reverse(s []string) []string {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
