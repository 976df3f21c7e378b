package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:           "python",
		Extensions:     []string{".py"},
		lang:           python.GetLanguage(),
		ClassTypes:     set("class_definition"),
		FunctionTypes:  set("function_definition"),
		DecoratorTypes: set("decorator"),
		CommentTypes:   set("comment"),
		DocstringType:  "string",
		Unescape:       unescapePython,
	}
}
