package lang

import (
	"github.com/smacker/go-tree-sitter/java"
)

func init() {
	Languages["java"] = &Language{
		Name:           "java",
		Extensions:     []string{".java"},
		lang:           java.GetLanguage(),
		ClassTypes:     set("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
		FunctionTypes:  set("method_declaration"),
		DecoratorTypes: set("annotation", "marker_annotation"),
		CommentTypes:   set("line_comment", "block_comment"),
	}
}
