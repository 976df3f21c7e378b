package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModulePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		repo string
		want string
	}{
		{"pkg/mod.py", "repo", "pkg.mod"},
		{"mod.py", "repo", "mod"},
		{"repo/pkg/mod.py", "repo", "pkg.mod"},
		{"repo.py", "repo", "repo"},
		{"./a/b/C.kt", "", "a.b.C"},
		{"", "repo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ModulePath(tt.path, tt.repo))
		})
	}
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		entity Entity
		want   string
	}{
		{"module file", Entity{Path: "pkg/mod.py", Repository: "r", Name: "Foo"}, "pkg.mod.Foo"},
		{"class per file", Entity{Path: "com/acme/Widget.kt", Repository: "r", Name: "Widget"}, "com.acme.Widget"},
		{"top level file", Entity{Path: "Widget.kt", Repository: "r", Name: "Widget"}, "Widget"},
		{"root module", Entity{Path: "main.py", Repository: "r", Name: "run"}, "main.run"},
		{"name substring kept", Entity{Path: "models.py", Repository: "r", Name: "model"}, "models.model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.entity.QualifiedName())
		})
	}
}
