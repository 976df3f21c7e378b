package resolve

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/model"
)

func init() {
	Dialects["javascript"] = &Dialect{
		Language: "javascript",
		Imports:  javascriptImports,
		Rules: map[string]Rule{
			"class_declaration":               {javascriptInheritance, model.Inheritance},
			"class":                           {javascriptInheritance, model.Inheritance},
			"call_expression":                 {javascriptCall, model.Call},
			"new_expression":                  {javascriptNew, model.Call},
			"member_expression":               {javascriptMember, model.AttributeAccess},
			"decorator":                       {javascriptDecorator, model.Decorator},
			"variable_declarator":             {javascriptAssignment, model.Assignment},
			"assignment_expression":           {javascriptAssignment, model.Assignment},
			"augmented_assignment_expression": {javascriptAssignment, model.Assignment},
		},
	}
}

var javascriptAssignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "&&=": true, "||=": true, "??=": true,
}

func javascriptInheritance(node *sitter.Node, source []byte) []string {
	heritage := childOfType(node, "class_heritage")
	if heritage == nil || heritage.NamedChildCount() == 0 {
		return nil
	}
	s := text(heritage.NamedChild(0), source)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return single(strings.TrimSpace(s))
}

func javascriptCall(node *sitter.Node, source []byte) []string {
	return single(head(text(node.ChildByFieldName("function"), source)))
}

func javascriptNew(node *sitter.Node, source []byte) []string {
	return single(head(text(node.ChildByFieldName("constructor"), source)))
}

func javascriptMember(node *sitter.Node, source []byte) []string {
	return single(head(text(node, source)))
}

func javascriptDecorator(node *sitter.Node, source []byte) []string {
	return single(decoratorHead(text(node, source)))
}

func javascriptAssignment(node *sitter.Node, source []byte) []string {
	value := valueAfter(node, javascriptAssignOps)
	if value == nil {
		return nil
	}
	switch value.Type() {
	case "identifier":
		return single(text(value, source))
	case "call_expression":
		return javascriptCall(value, source)
	case "new_expression":
		return javascriptNew(value, source)
	case "member_expression":
		return javascriptMember(value, source)
	}
	return nil
}

func javascriptImports(root *sitter.Node, source []byte, file FileContext) map[string]string {
	imports := make(map[string]string)
	collect(root, func(n *sitter.Node) bool {
		if n.Type() != "import_statement" {
			return true
		}
		src := n.ChildByFieldName("source")
		clause := childOfType(n, "import_clause")
		if src == nil || clause == nil {
			return false
		}
		module := javascriptModule(strings.Trim(text(src, source), "'\"`"), file)
		if module == "" {
			return false
		}
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			c := clause.NamedChild(i)
			switch c.Type() {
			case "identifier":
				name := text(c, source)
				imports[name] = module + "." + name
			case "named_imports":
				for j := 0; j < int(c.NamedChildCount()); j++ {
					spec := c.NamedChild(j)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := text(spec.ChildByFieldName("name"), source)
					if name == "" {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = text(alias, source)
					}
					imports[local] = module + "." + name
				}
			}
		}
		return false
	})
	return imports
}

// javascriptModule converts an import specifier into a dotted module path.
// Relative specifiers resolve against the importing file's directory.
func javascriptModule(spec string, file FileContext) string {
	if spec == "" {
		return ""
	}
	if strings.HasPrefix(spec, ".") {
		spec = path.Join(path.Dir(file.Path), spec)
		if spec == ".." || strings.HasPrefix(spec, "../") {
			return ""
		}
	}
	return model.ModulePath(spec, file.Repository)
}
