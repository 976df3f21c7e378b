package resolve

import (
	"context"
	"path"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/refscan/internal/extract"
	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/model"
)

type file struct {
	path string
	code string
}

type parsed struct {
	file
	lang *lang.Language
	tree *sitter.Tree
}

// resolveFiles extracts entities from files and resolves references among
// them, the way the indexing pipeline does for a single repository.
func resolveFiles(t *testing.T, files ...file) []model.Entity {
	t.Helper()

	var (
		trees    []parsed
		entities []model.Entity
	)
	for _, f := range files {
		l := lang.Languages[lang.ForExtension(path.Ext(f.path))]
		require.NotNil(t, l, "no language for %s", f.path)
		tree, err := l.NewParser().ParseCtx(context.Background(), nil, []byte(f.code))
		require.NoError(t, err)
		trees = append(trees, parsed{file: f, lang: l, tree: tree})
		entities = append(entities, extract.Entities(l, tree.RootNode(), []byte(f.code), f.path, "repo", nil)...)
	}

	ix := NewIndex(entities)
	for _, p := range trees {
		resolveOne(ix, p)
	}
	ix.Share()
	return entities
}

func resolveOne(ix *Index, p parsed) int {
	d := Dialects[p.lang.Name]
	src := []byte(p.code)
	fc := FileContext{Path: p.path, Repository: "repo"}
	scope := NewScope(ix, ImportContext(d, ix, fc, p.tree.RootNode(), src))
	return ix.Apply(FindReferences(d, scope, p.path, p.tree.RootNode(), src))
}

func entity(t *testing.T, entities []model.Entity, name string) model.Entity {
	t.Helper()
	for _, e := range entities {
		if e.Name == name {
			return e
		}
	}
	require.Failf(t, "entity not found", "%s", name)
	return model.Entity{}
}

// brief drops the column so expectations stay readable.
type brief struct {
	Kind model.ReferenceKind
	File string
	Line int
	Text string
}

func briefs(refs []model.Reference) []brief {
	out := make([]brief, len(refs))
	for i, r := range refs {
		out[i] = brief{Kind: r.Kind, File: r.File, Line: r.Line, Text: r.Text}
	}
	return out
}

// --- Python ---

func TestPythonImportAlias(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    pass\n"},
		file{"main.py", "from models import MyClass as Alias\n\nobj = Alias()\n"},
	)

	assert.Equal(t, []brief{
		{model.Assignment, "main.py", 3, "obj = Alias()"},
		{model.Call, "main.py", 3, "Alias()"},
	}, briefs(entity(t, entities, "MyClass").References))
}

func TestPythonCallThroughAttribute(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    def run(self):\n        pass\n"},
		file{"main.py", "from models import MyClass\n\nMyClass.run()\n"},
	)

	refs := entity(t, entities, "MyClass").References
	assert.Equal(t, []brief{
		{model.Call, "main.py", 3, "MyClass.run()"},
		{model.AttributeAccess, "main.py", 3, "MyClass.run"},
	}, briefs(refs))
	assert.Equal(t, 1, refs[0].Column)
}

func TestPythonDecorator(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"lib.py", "def my_decorator():\n    return lambda f: f\n"},
		file{"main.py", "from lib import my_decorator\n\n@my_decorator()\ndef handler():\n    pass\n"},
	)

	assert.Equal(t, []brief{
		{model.Decorator, "main.py", 3, "@my_decorator()"},
		{model.Call, "main.py", 3, "my_decorator()"},
	}, briefs(entity(t, entities, "my_decorator").References))
}

func TestPythonTypeAnnotation(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyType:\n    pass\n"},
		file{"main.py", "from typing import List\nfrom models import MyType\n\ndef f(items: List[MyType]):\n    pass\n"},
	)

	assert.Equal(t, []brief{
		{model.TypeAnnotation, "main.py", 4, "List[MyType]"},
	}, briefs(entity(t, entities, "MyType").References))
}

func TestPythonDottedTypeAnnotation(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyType:\n    pass\n"},
		file{"main.py", "import models\nfrom models import MyType\n\ndef f(x: models.MyType):\n    pass\n"},
	)

	assert.Equal(t, []brief{
		{model.TypeAnnotation, "main.py", 4, "models.MyType"},
	}, briefs(entity(t, entities, "MyType").References))
}

func TestPythonAnnotatedDependency(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyType:\n    pass\n"},
		file{"deps.py", "def get_my_class():\n    return None\n"},
		file{"main.py", "from typing import Annotated\nfrom models import MyType\nfrom deps import get_my_class\n\n" +
			"def f(x: Annotated[MyType, Depends(get_my_class)]):\n    pass\n"},
	)

	want := []brief{{model.TypeAnnotation, "main.py", 5, "Annotated[MyType, Depends(get_my_class)]"}}
	assert.Equal(t, want, briefs(entity(t, entities, "MyType").References))
	assert.Equal(t, want, briefs(entity(t, entities, "get_my_class").References))
}

func TestPythonAugmentedAndNamedAssignment(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class Foo:\n    pass\n"},
		file{"main.py", "from models import Foo\n\nx = 0\nx += Foo()\nif (y := Foo()):\n    pass\n"},
	)

	assert.Equal(t, []brief{
		{model.Assignment, "main.py", 4, "x += Foo()"},
		{model.Call, "main.py", 4, "Foo()"},
		{model.Assignment, "main.py", 5, "y := Foo()"},
		{model.Call, "main.py", 5, "Foo()"},
	}, briefs(entity(t, entities, "Foo").References))
}

func TestPythonUnknownModule(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    pass\n"},
		file{"main.py", "import lib\n\nlib.MyClass()\n"},
	)

	assert.Empty(t, entity(t, entities, "MyClass").References)
}

func TestPythonInheritance(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class Parent:\n    pass\n"},
		file{"main.py", "from models import Parent\n\nclass Child(Parent):\n    pass\n"},
	)

	assert.Equal(t, []brief{
		{model.Inheritance, "main.py", 3, "class Child(Parent):\n    pass"},
	}, briefs(entity(t, entities, "Parent").References))
}

func TestPythonSameFileReference(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"main.py", "class Helper:\n    pass\n\n\ndef use():\n    return Helper()\n"},
	)

	assert.Equal(t, []brief{
		{model.Call, "main.py", 6, "Helper()"},
	}, briefs(entity(t, entities, "Helper").References))
	assert.Empty(t, entity(t, entities, "use").References)
}

func TestPythonRelativeImport(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"pkg/models.py", "class Thing:\n    pass\n"},
		file{"pkg/sub/use.py", "from ..models import Thing\n\nThing()\n"},
	)

	assert.Equal(t, []brief{
		{model.Call, "pkg/sub/use.py", 3, "Thing()"},
	}, briefs(entity(t, entities, "Thing").References))
}

func TestPythonRepositoryPrefixedImport(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    pass\n"},
		file{"main.py", "from repo.models import MyClass\n\nMyClass()\n"},
	)

	assert.Len(t, entity(t, entities, "MyClass").References, 1)
}

func TestPythonSameLineDeduplicated(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    pass\n"},
		file{"main.py", "from models import MyClass\n\nMyClass(); MyClass()\n"},
	)

	assert.Equal(t, []brief{
		{model.Call, "main.py", 3, "MyClass()"},
	}, briefs(entity(t, entities, "MyClass").References))
}

func TestPythonDuplicateQualifiedNamesShareReferences(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class Dup:\n    pass\n\nclass Dup:\n    pass\n"},
		file{"main.py", "from models import Dup\n\nDup()\n"},
	)

	var dups []model.Entity
	for _, e := range entities {
		if e.Name == "Dup" {
			dups = append(dups, e)
		}
	}
	require.Len(t, dups, 2)
	assert.Len(t, dups[0].References, 1)
	assert.Equal(t, dups[0].References, dups[1].References)
}

func TestPythonDefinitionIsNotReference(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"models.py", "class MyClass:\n    pass\n\n\ndef helper():\n    pass\n"},
	)

	for _, e := range entities {
		assert.Empty(t, e.References, e.Name)
	}
}

func TestResolutionIsIdempotent(t *testing.T) {
	t.Parallel()

	files := []file{
		{"models.py", "class MyClass:\n    pass\n"},
		{"main.py", "from models import MyClass\n\nx = MyClass()\nMyClass.run()\n"},
	}
	var (
		trees    []parsed
		entities []model.Entity
	)
	for _, f := range files {
		l := lang.Languages["python"]
		tree, err := l.NewParser().ParseCtx(context.Background(), nil, []byte(f.code))
		require.NoError(t, err)
		trees = append(trees, parsed{file: f, lang: l, tree: tree})
		entities = append(entities, extract.Entities(l, tree.RootNode(), []byte(f.code), f.path, "repo", nil)...)
	}

	ix := NewIndex(entities)
	for _, p := range trees {
		resolveOne(ix, p)
	}
	first := append([]model.Reference(nil), entity(t, entities, "MyClass").References...)
	require.NotEmpty(t, first)

	// A second pass over the same files, and a fresh index over the already
	// resolved entities, both leave the lists unchanged.
	for _, p := range trees {
		assert.Zero(t, resolveOne(ix, p))
	}
	again := NewIndex(entities)
	for _, p := range trees {
		assert.Zero(t, resolveOne(again, p))
	}
	assert.Equal(t, first, entity(t, entities, "MyClass").References)
}

// --- Kotlin ---

func hasRef(refs []model.Reference, kind model.ReferenceKind, file string, line int) bool {
	for _, r := range refs {
		if r.Kind == kind && r.File == file && r.Line == line {
			return true
		}
	}
	return false
}

func TestKotlinReferences(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"com/example/Model.kt", "package com.example\n\nclass Model\n"},
		file{"com/example/Base.kt", "package com.example\n\nopen class Base\n"},
		file{"com/example/app/App.kt", "package com.example.app\n\n" +
			"import com.example.Model\n" +
			"import com.example.Base as Root\n\n" +
			"class Child : Root()\n\n" +
			"fun build(m: Model): Model {\n" +
			"    val x = Model()\n" +
			"    return m\n" +
			"}\n"},
	)

	base := entity(t, entities, "Base").References
	assert.True(t, hasRef(base, model.Inheritance, "com/example/app/App.kt", 6), "inheritance: %v", base)
	for _, r := range base {
		if r.Kind == model.Inheritance {
			assert.Equal(t, "class Child : Root()", r.Text)
		}
	}

	m := entity(t, entities, "Model").References
	assert.True(t, hasRef(m, model.TypeAnnotation, "com/example/app/App.kt", 8), "type: %v", m)
	assert.True(t, hasRef(m, model.Call, "com/example/app/App.kt", 9), "call: %v", m)
	assert.True(t, hasRef(m, model.Assignment, "com/example/app/App.kt", 9), "assignment: %v", m)
}

func TestKotlinUnresolvedChainedCall(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"Lib.kt", "class MyClass\n"},
		file{"Main.kt", "fun main() {\n    getMyClass().run()\n}\n"},
	)

	assert.Empty(t, entity(t, entities, "MyClass").References)
}

func TestKotlinAnnotation(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"di/Inject.kt", "package di\n\nannotation class Inject\n"},
		file{"App.kt", "import di.Inject\n\nclass App {\n    @Inject\n    fun wired() {}\n}\n"},
	)

	refs := entity(t, entities, "Inject").References
	assert.True(t, hasRef(refs, model.Decorator, "App.kt", 4), "decorator: %v", refs)
}

// --- Java ---

func TestJavaReferences(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"com/acme/Base.java", "package com.acme;\n\npublic class Base {}\n"},
		file{"com/acme/Widget.java", "package com.acme;\n\n" +
			"import com.acme.Base;\n\n" +
			"public class Widget extends Base {\n" +
			"    public static Widget create() {\n" +
			"        return new Widget();\n" +
			"    }\n" +
			"}\n"},
		file{"com/acme/App.java", "package com.acme;\n\n" +
			"import com.acme.Widget;\n\n" +
			"public class App {\n" +
			"    private Widget widget = Widget.create();\n" +
			"}\n"},
	)

	base := entity(t, entities, "Base").References
	assert.True(t, hasRef(base, model.Inheritance, "com/acme/Widget.java", 5), "inheritance: %v", base)

	w := entity(t, entities, "Widget").References
	assert.True(t, hasRef(w, model.TypeAnnotation, "com/acme/Widget.java", 6), "return type: %v", w)
	assert.True(t, hasRef(w, model.Call, "com/acme/Widget.java", 7), "constructor: %v", w)
	assert.True(t, hasRef(w, model.TypeAnnotation, "com/acme/App.java", 6), "field type: %v", w)
	assert.True(t, hasRef(w, model.Assignment, "com/acme/App.java", 6), "assignment: %v", w)
	assert.True(t, hasRef(w, model.Call, "com/acme/App.java", 6), "static call: %v", w)
}

// --- JavaScript ---

func TestJavaScriptReferences(t *testing.T) {
	t.Parallel()

	entities := resolveFiles(t,
		file{"web/models.js", "export class Cart {}\nexport function makeCart() { return new Cart(); }\n"},
		file{"web/app.js", "import { Cart as C, makeCart } from './models';\n\n" +
			"class Special extends C {}\n" +
			"const cart = makeCart();\n" +
			"const c2 = new C();\n"},
	)

	cart := entity(t, entities, "Cart").References
	assert.True(t, hasRef(cart, model.Call, "web/models.js", 2), "same file: %v", cart)
	assert.True(t, hasRef(cart, model.Inheritance, "web/app.js", 3), "inheritance: %v", cart)
	assert.True(t, hasRef(cart, model.Call, "web/app.js", 5), "new: %v", cart)
	assert.True(t, hasRef(cart, model.Assignment, "web/app.js", 5), "assignment: %v", cart)

	mk := entity(t, entities, "makeCart").References
	assert.Equal(t, []brief{
		{model.Assignment, "web/app.js", 4, "cart = makeCart()"},
		{model.Call, "web/app.js", 4, "makeCart()"},
	}, briefs(mk))
}

// --- Index ---

func TestIndexLookup(t *testing.T) {
	t.Parallel()

	ix := NewIndex([]model.Entity{
		{Name: "A", Path: "pkg/mod.py", Repository: "repo"},
		{Name: "B", Path: "mod.py", Repository: "repo"},
	})

	slot, ok := ix.Lookup("pkg.mod.A")
	assert.True(t, ok)
	assert.Equal(t, 0, slot)

	slot, ok = ix.Lookup("repo.mod.B")
	assert.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = ix.Lookup("other.mod.B")
	assert.False(t, ok)
	assert.Equal(t, []int{0}, ix.InFile("pkg/mod.py"))
}

func TestIndexApplyDeduplicates(t *testing.T) {
	t.Parallel()

	entities := []model.Entity{{Name: "A", Path: "a.py", Repository: "repo"}}
	ix := NewIndex(entities)

	ref := model.Reference{Kind: model.Call, File: "b.py", Line: 2, Text: "A()"}
	n := ix.Apply([]Hit{
		{Slot: 0, Ref: ref},
		{Slot: 0, Ref: model.Reference{Kind: model.Call, File: "b.py", Line: 2, Text: "A().x"}},
		{Slot: 0, Ref: model.Reference{Kind: model.Assignment, File: "b.py", Line: 2}},
		{Slot: 0, Ref: model.Reference{Kind: model.Call, File: "c.py", Line: 2}},
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, ref, entities[0].References[0])
}

// --- Import contexts ---

func TestImportTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stmt      string
		local     string
		qualified string
		ok        bool
	}{
		{"import com.example.Model", "Model", "com.example.Model", true},
		{"import com.example.Model as M", "M", "com.example.Model", true},
		{"import java.util.List;", "List", "java.util.List", true},
		{"import static org.junit.Assert.assertEquals;", "assertEquals", "org.junit.Assert.assertEquals", true},
		{"import java.util.*;", "", "", false},
		{"import com.example.*", "", "", false},
		{"package com.example", "", "", false},
		{"import", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			t.Parallel()
			local, q, ok := importTarget(tt.stmt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.local, local)
			assert.Equal(t, tt.qualified, q)
		})
	}
}

func TestPythonRelativeModule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		pkg  string
		want string
	}{
		{".", "pkg.sub", "pkg.sub"},
		{".models", "pkg.sub", "pkg.sub.models"},
		{"..models", "pkg.sub", "pkg.models"},
		{"...", "pkg.sub", ""},
		{"....deep", "pkg", "deep"},
		{".models", "", "models"},
	}

	for _, tt := range tests {
		t.Run(tt.rel+"@"+tt.pkg, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pythonRelativeModule(tt.rel, tt.pkg))
		})
	}
}

func TestPythonImports(t *testing.T) {
	t.Parallel()

	src := []byte("import os\n" +
		"import os.path\n" +
		"import numpy as np\n" +
		"from models import A, B as Bee\n" +
		"from .sibling import C\n" +
		"from pkg import *\n" +
		"def f():\n    from inner import D\n")
	tree, err := lang.Languages["python"].NewParser().ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)

	got := pythonImports(tree.RootNode(), src, FileContext{Path: "app/main.py", Repository: "repo"})
	assert.Equal(t, map[string]string{
		"path": "os.path",
		"np":   "numpy",
		"A":    "models.A",
		"Bee":  "models.B",
		"C":    "app.sibling.C",
		"D":    "inner.D",
	}, got)
}

func TestJavaScriptModule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec string
		file string
		want string
	}{
		{"./models", "web/app.js", "web.models"},
		{"./models.js", "web/app.js", "web.models"},
		{"../lib/util", "web/pages/home.js", "web.lib.util"},
		{"./x", "app.js", "x"},
		{"lodash", "web/app.js", "lodash"},
		{"../outside", "app.js", ""},
		{"", "app.js", ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec+"@"+tt.file, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, javascriptModule(tt.spec, FileContext{Path: tt.file, Repository: "repo"}))
		})
	}
}

func TestJavaScriptImports(t *testing.T) {
	t.Parallel()

	src := []byte("import Default from './a';\n" +
		"import { x, y as z } from './b';\n" +
		"import * as ns from './c';\n" +
		"import './side-effect';\n")
	tree, err := lang.Languages["javascript"].NewParser().ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)

	got := javascriptImports(tree.RootNode(), src, FileContext{Path: "src/app.js", Repository: "repo"})
	assert.Equal(t, map[string]string{
		"Default": "src.a.Default",
		"x":       "src.b.x",
		"z":       "src.b.y",
	}, got)
}
