package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/refscan/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "refs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleIndex(repo string) *model.Index {
	return &model.Index{
		Repository: repo,
		Entities: []model.Entity{
			{
				Kind:       model.Class,
				Repository: repo,
				Path:       "pkg/mod.py",
				Name:       "Foo",
				Source:     "class Foo:\n    pass",
				Docstring:  "A foo.",
				Line:       1,
				References: []model.Reference{
					{Kind: model.Call, File: "main.py", Line: 3, Column: 1, Text: "Foo()"},
					{Kind: model.Inheritance, File: "main.py", Line: 5, Column: 1, Text: "class Bar(Foo):\n    pass"},
				},
			},
			{
				Kind:       model.Function,
				Repository: repo,
				Path:       "main.py",
				Name:       "run",
				Source:     "def run():\n    pass",
				Line:       7,
			},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	idx := sampleIndex("repo")

	require.NoError(t, s.Save(ctx, idx))

	got, err := s.Entities(ctx, "repo")
	require.NoError(t, err)
	assert.Equal(t, idx.Entities, got)
}

func TestSaveReplacesSnapshot(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleIndex("repo")))
	require.NoError(t, s.Save(ctx, sampleIndex("other")))

	smaller := sampleIndex("repo")
	smaller.Entities = smaller.Entities[1:]
	require.NoError(t, s.Save(ctx, smaller))

	got, err := s.Entities(ctx, "repo")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run", got[0].Name)

	// The old references went with their entity; the other repo is untouched.
	refs, err := s.ReferencesTo(ctx, "pkg.mod.Foo")
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	other, err := s.Entities(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 2)
}

func TestReferencesTo(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, sampleIndex("repo")))

	refs, err := s.ReferencesTo(ctx, "pkg.mod.Foo")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, model.Call, refs[0].Kind)
	assert.Equal(t, "class Bar(Foo):\n    pass", refs[1].Text)

	none, err := s.ReferencesTo(ctx, "missing.Name")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "refs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sampleIndex("repo")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Entities(ctx, "repo")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
