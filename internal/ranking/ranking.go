// Package ranking selects the part of an index worth showing.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/refscan/internal/model"
)

// SelectEntities returns a new Index with only the maxEntities most
// referenced entities, ties kept in their original order. Files are trimmed
// to those defining a selected entity and dependencies to edges between
// those files. If maxEntities is <= 0 or >= len(entities), idx is returned.
func SelectEntities(idx *model.Index, maxEntities int) *model.Index {
	if maxEntities <= 0 || maxEntities >= len(idx.Entities) {
		return idx
	}

	order := make([]int, len(idx.Entities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(idx.Entities[order[a]].References) > len(idx.Entities[order[b]].References)
	})
	order = order[:maxEntities]
	sort.Ints(order)

	entities := make([]model.Entity, 0, maxEntities)
	selectedPaths := make(map[string]struct{})
	for _, i := range order {
		entities = append(entities, idx.Entities[i])
		selectedPaths[idx.Entities[i].Path] = struct{}{}
	}

	var deps []model.Dependency
	for i := range idx.Dependencies {
		d := &idx.Dependencies[i]
		_, srcOK := selectedPaths[d.Source]
		_, tgtOK := selectedPaths[d.Target]
		if srcOK && tgtOK {
			deps = append(deps, *d)
		}
	}

	return &model.Index{
		Repository:   idx.Repository,
		Root:         idx.Root,
		Files:        filesIn(idx.Files, selectedPaths),
		Entities:     entities,
		Dependencies: deps,
	}
}

// FilterBySymbol returns a new Index containing only entities whose name or
// qualified name contains substr (case-insensitive), the files that define
// them, the files that reference them, and the edges touching those files.
func FilterBySymbol(idx *model.Index, substr string) *model.Index {
	lower := strings.ToLower(substr)

	matchedFiles := make(map[string]struct{})
	var entities []model.Entity
	for i := range idx.Entities {
		e := &idx.Entities[i]
		if !strings.Contains(strings.ToLower(e.Name), lower) &&
			!strings.Contains(strings.ToLower(e.QualifiedName()), lower) {
			continue
		}
		entities = append(entities, *e)
		matchedFiles[e.Path] = struct{}{}
		// Expand to the files that use the matched entity.
		for j := range e.References {
			matchedFiles[e.References[j].File] = struct{}{}
		}
	}

	return &model.Index{
		Repository:   idx.Repository,
		Root:         idx.Root,
		Files:        filesIn(idx.Files, matchedFiles),
		Entities:     entities,
		Dependencies: touching(idx.Dependencies, matchedFiles),
	}
}

// FilterByFile returns a new Index containing only files whose path
// contains substr (case-insensitive), the entities they define, and all
// dependency edges touching those files.
func FilterByFile(idx *model.Index, substr string) *model.Index {
	lower := strings.ToLower(substr)

	matchedFiles := make(map[string]struct{})
	var files []model.FileInfo
	for i := range idx.Files {
		if strings.Contains(strings.ToLower(idx.Files[i].Path), lower) {
			matchedFiles[idx.Files[i].Path] = struct{}{}
			files = append(files, idx.Files[i])
		}
	}

	var entities []model.Entity
	for i := range idx.Entities {
		if _, ok := matchedFiles[idx.Entities[i].Path]; ok {
			entities = append(entities, idx.Entities[i])
		}
	}

	return &model.Index{
		Repository:   idx.Repository,
		Root:         idx.Root,
		Files:        files,
		Entities:     entities,
		Dependencies: touching(idx.Dependencies, matchedFiles),
	}
}

func filesIn(files []model.FileInfo, paths map[string]struct{}) []model.FileInfo {
	var out []model.FileInfo
	for i := range files {
		if _, ok := paths[files[i].Path]; ok {
			out = append(out, files[i])
		}
	}
	return out
}

func touching(deps []model.Dependency, paths map[string]struct{}) []model.Dependency {
	var out []model.Dependency
	for i := range deps {
		d := &deps[i]
		_, srcOK := paths[d.Source]
		_, tgtOK := paths[d.Target]
		if srcOK || tgtOK {
			out = append(out, *d)
		}
	}
	return out
}
