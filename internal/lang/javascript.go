package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

func init() {
	Languages["javascript"] = &Language{
		Name:           "javascript",
		Extensions:     []string{".js"},
		lang:           javascript.GetLanguage(),
		ClassTypes:     set("class_declaration"),
		FunctionTypes:  set("function_declaration", "generator_function_declaration"),
		DecoratorTypes: set("decorator"),
		CommentTypes:   set("comment"),
		DocstringType:  "string",
		Unescape:       unescapeJavaScript,
	}
}
