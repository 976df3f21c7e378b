package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/lang"
)

func text(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(lang.NodeText(n, source))
}

// head returns the identifier before the first ".", so "a.b.c()" -> "a".
func head(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// decoratorHead returns the head identifier of a decorator or annotation:
// "@pkg.deco(arg)" -> "pkg".
func decoratorHead(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return head(s)
}

// stripGenerics cuts a type name at its first type-argument bracket.
func stripGenerics(s string) string {
	if i := strings.IndexAny(s, "<["); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// splitParents splits a parenthesized parent list such as "(A, B)".
func splitParents(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	var names []string
	for _, part := range strings.Split(s, ",") {
		part = stripGenerics(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// valueAfter returns the first named child following an operator token.
func valueAfter(node *sitter.Node, operators map[string]bool) *sitter.Node {
	n := int(node.ChildCount())
	for i := 0; i < n; i++ {
		if !operators[node.Child(i).Type()] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if c := node.Child(j); c.IsNamed() {
				return c
			}
		}
		return nil
	}
	return nil
}

func childOfType(node *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

// collect walks the subtree of root in preorder and calls fn on every node.
// fn returns false to skip a node's children.
func collect(root *sitter.Node, fn func(*sitter.Node) bool) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(node) {
			continue
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}
}

func single(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// importTarget parses "import a.b.C", "import a.b.C as D" and
// "import static a.b.C.m;" style statements into a local name and the
// qualified name it stands for. Wildcard imports report false.
func importTarget(stmt string) (local, qualified string, ok bool) {
	s := strings.TrimSpace(stmt)
	s = strings.TrimSuffix(s, ";")
	s, found := strings.CutPrefix(s, "import")
	if !found {
		return "", "", false
	}
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "static "); ok {
		s = strings.TrimSpace(rest)
	}
	s = strings.Join(strings.Fields(s), " ")
	if q, alias, ok := strings.Cut(s, " as "); ok {
		q, alias = strings.TrimSpace(q), strings.TrimSpace(alias)
		if q == "" || alias == "" {
			return "", "", false
		}
		return alias, q, true
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || strings.HasSuffix(s, "*") {
		return "", "", false
	}
	local = s
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		local = s[i+1:]
	}
	if local == "" {
		return "", "", false
	}
	return local, s, true
}
