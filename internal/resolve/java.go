package resolve

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refscan/internal/model"
)

func init() {
	Dialects["java"] = &Dialect{
		Language: "java",
		Imports:  javaImports,
		Rules: map[string]Rule{
			"class_declaration":          {javaInheritance, model.Inheritance},
			"interface_declaration":      {javaInheritance, model.Inheritance},
			"enum_declaration":           {javaInheritance, model.Inheritance},
			"record_declaration":         {javaInheritance, model.Inheritance},
			"method_invocation":          {javaCall, model.Call},
			"object_creation_expression": {javaCreation, model.Call},
			"type_identifier":            {javaTypeName, model.TypeAnnotation},
			"field_access":               {javaFieldAccess, model.AttributeAccess},
			"annotation":                 {javaAnnotation, model.Decorator},
			"marker_annotation":          {javaAnnotation, model.Decorator},
			"variable_declarator":        {javaAssignment, model.Assignment},
			"assignment_expression":      {javaAssignment, model.Assignment},
		},
	}
}

var javaTypeParents = map[string]bool{
	"formal_parameter":           true,
	"spread_parameter":           true,
	"local_variable_declaration": true,
	"field_declaration":          true,
	"method_declaration":         true,
	"type_arguments":             true,
	"array_type":                 true,
	"catch_type":                 true,
	"cast_expression":            true,
	"instanceof_expression":      true,
	"type_bound":                 true,
	"throws":                     true,
}

var javaAssignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
}

func javaInheritance(node *sitter.Node, source []byte) []string {
	var clauses []*sitter.Node
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		clauses = append(clauses, sc)
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		clauses = append(clauses, ifaces)
	}
	if ext := childOfType(node, "extends_interfaces"); ext != nil {
		clauses = append(clauses, ext)
	}

	var names []string
	for _, clause := range clauses {
		collect(clause, func(n *sitter.Node) bool {
			switch n.Type() {
			case "type_identifier", "generic_type", "scoped_type_identifier":
				names = append(names, stripGenerics(text(n, source)))
				return false
			}
			return true
		})
	}
	return names
}

func javaCall(node *sitter.Node, source []byte) []string {
	if obj := node.ChildByFieldName("object"); obj != nil {
		return single(head(text(obj, source)))
	}
	return single(text(node.ChildByFieldName("name"), source))
}

func javaCreation(node *sitter.Node, source []byte) []string {
	return single(head(stripGenerics(text(node.ChildByFieldName("type"), source))))
}

// javaTypeName records a type identifier used in a declaration. Identifiers
// nested in generic or scoped types take the context of the outermost type.
func javaTypeName(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	for parent != nil && (parent.Type() == "generic_type" || parent.Type() == "scoped_type_identifier") {
		parent = parent.Parent()
	}
	if parent == nil || !javaTypeParents[parent.Type()] {
		return nil
	}
	return single(text(node, source))
}

func javaFieldAccess(node *sitter.Node, source []byte) []string {
	return single(head(text(node, source)))
}

func javaAnnotation(node *sitter.Node, source []byte) []string {
	return single(decoratorHead(text(node, source)))
}

func javaAssignment(node *sitter.Node, source []byte) []string {
	value := valueAfter(node, javaAssignOps)
	if value == nil {
		return nil
	}
	switch value.Type() {
	case "identifier":
		return single(text(value, source))
	case "method_invocation":
		return javaCall(value, source)
	case "object_creation_expression":
		return javaCreation(value, source)
	case "field_access":
		return javaFieldAccess(value, source)
	}
	return nil
}

func javaImports(root *sitter.Node, source []byte, _ FileContext) map[string]string {
	imports := make(map[string]string)
	collect(root, func(n *sitter.Node) bool {
		if n.Type() != "import_declaration" {
			return true
		}
		if local, q, ok := importTarget(text(n, source)); ok {
			imports[local] = q
		}
		return false
	})
	return imports
}
