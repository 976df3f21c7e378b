package lang

import (
	"github.com/smacker/go-tree-sitter/kotlin"
)

func init() {
	Languages["kotlin"] = &Language{
		Name:           "kotlin",
		Extensions:     []string{".kt"},
		lang:           kotlin.GetLanguage(),
		ClassTypes:     set("class_declaration", "object_declaration"),
		FunctionTypes:  set("function_declaration"),
		NameTypes:      set("type_identifier", "simple_identifier"),
		DecoratorTypes: set("annotation"),
		CommentTypes:   set("comment", "line_comment", "multiline_comment"),
	}
}
