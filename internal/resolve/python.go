package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/model"
)

func init() {
	Dialects["python"] = &Dialect{
		Language: "python",
		Imports:  pythonImports,
		Rules: map[string]Rule{
			"class_definition":     {pythonInheritance, model.Inheritance},
			"call":                 {pythonCall, model.Call},
			"type":                 {pythonTypeNames, model.TypeAnnotation},
			"generic_type":         {pythonTypeNames, model.TypeAnnotation},
			"attribute":            {pythonAttribute, model.AttributeAccess},
			"decorator":            {pythonDecorator, model.Decorator},
			"assignment":           {pythonAssignment, model.Assignment},
			"augmented_assignment": {pythonAssignment, model.Assignment},
			"named_expression":     {pythonAssignment, model.Assignment},
		},
	}
}

// pythonAssignOps covers plain, augmented and walrus assignment.
var pythonAssignOps = map[string]bool{
	"=": true, ":=": true, "+=": true, "-=": true, "*=": true, "/=": true,
	"//=": true, "%=": true, "**=": true, "@=": true, "&=": true, "|=": true,
	"^=": true, ">>=": true, "<<=": true,
}

func pythonInheritance(node *sitter.Node, source []byte) []string {
	supers := node.ChildByFieldName("superclasses")
	if supers == nil {
		return nil
	}
	var names []string
	for _, name := range splitParents(text(supers, source)) {
		// Keyword arguments such as metaclass=Meta are not parents.
		if strings.Contains(name, "=") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func pythonCall(node *sitter.Node, source []byte) []string {
	return single(head(text(node.ChildByFieldName("function"), source)))
}

func pythonAttribute(node *sitter.Node, source []byte) []string {
	return single(head(text(node, source)))
}

func pythonDecorator(node *sitter.Node, source []byte) []string {
	return single(decoratorHead(text(node, source)))
}

// pythonTypeNames returns every identifier mentioned in a type annotation,
// including arguments of calls nested in it ("Annotated[T, Depends(f)]")
// and each segment of dotted names ("models.MyType").
func pythonTypeNames(node *sitter.Node, source []byte) []string {
	var names []string
	collect(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier":
			names = append(names, text(n, source))
			return false
		case "attribute":
			names = append(names, head(text(n, source)))
		case "string":
			return false
		}
		return true
	})
	return names
}

func pythonAssignment(node *sitter.Node, source []byte) []string {
	value := valueAfter(node, pythonAssignOps)
	if value == nil {
		return nil
	}
	switch value.Type() {
	case "identifier":
		return single(text(value, source))
	case "call":
		return pythonCall(value, source)
	case "attribute":
		return pythonAttribute(value, source)
	}
	return nil
}

func pythonImports(root *sitter.Node, source []byte, file FileContext) map[string]string {
	imports := make(map[string]string)
	collect(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				c := n.NamedChild(i)
				switch c.Type() {
				case "dotted_name":
					q := dotted(c, source)
					if i := strings.LastIndexByte(q, '.'); i >= 0 {
						imports[q[i+1:]] = q
					}
				case "aliased_import":
					name, alias := c.ChildByFieldName("name"), c.ChildByFieldName("alias")
					if name != nil && alias != nil {
						imports[text(alias, source)] = dotted(name, source)
					}
				}
			}
			return false
		case "import_from_statement":
			pythonFromImport(n, source, file, imports)
			return false
		}
		return true
	})
	return imports
}

func pythonFromImport(n *sitter.Node, source []byte, file FileContext, imports map[string]string) {
	modNode := n.ChildByFieldName("module_name")
	if modNode == nil {
		return
	}
	var module string
	switch modNode.Type() {
	case "dotted_name":
		module = dotted(modNode, source)
	case "relative_import":
		module = pythonRelativeModule(text(modNode, source), file.Package())
	default:
		return
	}

	afterImport := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !afterImport {
			afterImport = c.Type() == "import"
			continue
		}
		var name, local string
		switch c.Type() {
		case "dotted_name":
			name = dotted(c, source)
			local = name
		case "aliased_import":
			nameNode, alias := c.ChildByFieldName("name"), c.ChildByFieldName("alias")
			if nameNode == nil || alias == nil {
				continue
			}
			name, local = dotted(nameNode, source), text(alias, source)
		default:
			continue
		}
		if name == "" || local == "" {
			continue
		}
		imports[local] = strings.TrimLeft(module+"."+name, ".")
	}
}

// pythonRelativeModule resolves a relative module such as "..pkg.mod"
// against the dotted package of the importing file.
func pythonRelativeModule(rel, pkg string) string {
	rest := strings.TrimLeft(rel, ".")
	levels := len(rel) - len(rest)

	var base []string
	if pkg != "" {
		base = strings.Split(pkg, ".")
	}
	for i := 1; i < levels && len(base) > 0; i++ {
		base = base[:len(base)-1]
	}
	if rest = strings.Join(strings.Fields(rest), ""); rest != "" {
		base = append(base, rest)
	}
	return strings.Join(base, ".")
}

func dotted(n *sitter.Node, source []byte) string {
	return strings.Join(strings.Fields(text(n, source)), "")
}
