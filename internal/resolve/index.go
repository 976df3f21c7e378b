package resolve

import (
	"strings"

	"github.com/phobologic/refscan/internal/model"
)

// Index is the qualified-name table of one resolution run. Entities live
// in the caller's slice; the index addresses them by position.
type Index struct {
	entities []model.Entity
	byName   map[string]int
	byFile   map[string][]int
	repos    []string
	seen     map[refKey]struct{}
}

type refKey struct {
	slot int
	kind model.ReferenceKind
	file string
	line int
}

// NewIndex indexes entities by qualified name. When several entities share
// a qualified name the last one wins. References already present on the
// entities count for deduplication.
func NewIndex(entities []model.Entity) *Index {
	ix := &Index{
		entities: entities,
		byName:   make(map[string]int, len(entities)),
		byFile:   make(map[string][]int),
		seen:     make(map[refKey]struct{}),
	}
	repos := make(map[string]struct{})
	for i := range entities {
		e := &entities[i]
		ix.byName[e.QualifiedName()] = i
		ix.byFile[e.Path] = append(ix.byFile[e.Path], i)
		if e.Repository != "" {
			if _, ok := repos[e.Repository]; !ok {
				repos[e.Repository] = struct{}{}
				ix.repos = append(ix.repos, e.Repository)
			}
		}
	}
	for i := range entities {
		for _, r := range entities[i].References {
			ix.seen[refKey{slot: i, kind: r.Kind, file: r.File, line: r.Line}] = struct{}{}
		}
	}
	return ix
}

// Lookup returns the slot of the entity with the given qualified name.
// A name carrying a leading repository segment is retried without it.
func (ix *Index) Lookup(qualified string) (int, bool) {
	if slot, ok := ix.byName[qualified]; ok {
		return slot, true
	}
	for _, repo := range ix.repos {
		if rest, ok := strings.CutPrefix(qualified, repo+"."); ok {
			if slot, ok := ix.byName[rest]; ok {
				return slot, true
			}
		}
	}
	return 0, false
}

// Entity returns the entity stored at slot.
func (ix *Index) Entity(slot int) *model.Entity {
	return &ix.entities[slot]
}

// InFile returns the slots of the entities defined in path.
func (ix *Index) InFile(path string) []int {
	return ix.byFile[path]
}

// Apply appends hits to their entities in order, skipping any hit whose
// entity already has a reference of the same kind at the same file and line.
// It returns the number of references appended.
func (ix *Index) Apply(hits []Hit) int {
	added := 0
	for _, h := range hits {
		k := refKey{slot: h.Slot, kind: h.Ref.Kind, file: h.Ref.File, line: h.Ref.Line}
		if _, dup := ix.seen[k]; dup {
			continue
		}
		ix.seen[k] = struct{}{}
		e := &ix.entities[h.Slot]
		e.References = append(e.References, h.Ref)
		added++
	}
	return added
}

// Share copies the reference list of each qualified name's indexed entity to
// the other entities that carry the same qualified name.
func (ix *Index) Share() {
	for i := range ix.entities {
		e := &ix.entities[i]
		slot, ok := ix.byName[e.QualifiedName()]
		if !ok || slot == i {
			continue
		}
		e.References = append([]model.Reference(nil), ix.entities[slot].References...)
	}
}
