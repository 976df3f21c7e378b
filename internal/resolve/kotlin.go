package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/model"
)

func init() {
	Dialects["kotlin"] = &Dialect{
		Language: "kotlin",
		Imports:  kotlinImports,
		Rules: map[string]Rule{
			"class_declaration":     {kotlinInheritance, model.Inheritance},
			"object_declaration":    {kotlinInheritance, model.Inheritance},
			"call_expression":       {kotlinCall, model.Call},
			"user_type":             {kotlinTypeName, model.TypeAnnotation},
			"type_identifier":       {kotlinTypeName, model.TypeAnnotation},
			"navigation_expression": {kotlinNavigation, model.AttributeAccess},
			"annotation":            {kotlinAnnotation, model.Decorator},
			"property_declaration":  {kotlinAssignment, model.Assignment},
			"assignment":            {kotlinAssignment, model.Assignment},
		},
	}
}

// Parents under which a type name is a type annotation rather than a
// declaration name or an expression.
var kotlinTypeParents = map[string]bool{
	"parameter":            true,
	"class_parameter":      true,
	"value_parameter":      true,
	"variable_declaration": true,
	"function_declaration": true,
	"type_projection":      true,
	"nullable_type":        true,
	"user_type":            true,
	"type_reference":       true,
}

var kotlinAssignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

func kotlinInheritance(node *sitter.Node, source []byte) []string {
	var names []string
	collect(node, func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_body", "enum_class_body", "primary_constructor":
			return false
		case "delegation_specifier":
			var target *sitter.Node
			if inv := childOfType(n, "constructor_invocation"); inv != nil {
				target = childOfType(inv, "user_type")
			} else {
				target = childOfType(n, "user_type")
			}
			if target != nil {
				names = append(names, stripGenerics(text(target, source)))
			}
			return false
		}
		return true
	})
	return names
}

func kotlinCall(node *sitter.Node, source []byte) []string {
	if node.ChildCount() == 0 {
		return nil
	}
	callee := node.Child(0)
	switch callee.Type() {
	case "simple_identifier", "navigation_expression":
		return single(head(text(callee, source)))
	}
	return nil
}

func kotlinTypeName(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || !kotlinTypeParents[parent.Type()] {
		return nil
	}
	if node.Type() == "user_type" {
		return single(text(childOfType(node, "type_identifier"), source))
	}
	return single(text(node, source))
}

func kotlinNavigation(node *sitter.Node, source []byte) []string {
	if node.NamedChildCount() == 0 {
		return nil
	}
	left := node.NamedChild(0)
	if left.Type() != "simple_identifier" {
		return nil
	}
	return single(text(left, source))
}

// kotlinAnnotation strips use-site targets ("@field:Json") and arguments.
func kotlinAnnotation(node *sitter.Node, source []byte) []string {
	s := strings.TrimPrefix(text(node, source), "@")
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	if _, after, ok := strings.Cut(s, ":"); ok {
		s = after
	}
	return single(head(stripGenerics(s)))
}

func kotlinAssignment(node *sitter.Node, source []byte) []string {
	value := valueAfter(node, kotlinAssignOps)
	if value == nil {
		return nil
	}
	switch value.Type() {
	case "simple_identifier":
		return single(text(value, source))
	case "call_expression":
		return kotlinCall(value, source)
	case "navigation_expression":
		return kotlinNavigation(value, source)
	}
	return nil
}

func kotlinImports(root *sitter.Node, source []byte, _ FileContext) map[string]string {
	imports := make(map[string]string)
	collect(root, func(n *sitter.Node) bool {
		if n.Type() != "import_header" {
			return true
		}
		if local, q, ok := importTarget(text(n, source)); ok {
			imports[local] = q
		}
		return false
	})
	return imports
}
