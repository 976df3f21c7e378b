// Package model defines core data structures for refscan.
package model

import (
	"path"
	"strings"
)

// EntityKind indicates whether an entity is a class-like or function-like definition.
type EntityKind string

const (
	Class    EntityKind = "class"
	Function EntityKind = "function"
)

// ReferenceKind classifies how an entity is used at a reference site.
type ReferenceKind string

const (
	Import          ReferenceKind = "IMPORT"
	FromImport      ReferenceKind = "FROM_IMPORT"
	Inheritance     ReferenceKind = "INHERITANCE"
	TypeAnnotation  ReferenceKind = "TYPE_ANNOTATION"
	Call            ReferenceKind = "CALL"
	AttributeAccess ReferenceKind = "ATTRIBUTE_ACCESS"
	Decorator       ReferenceKind = "DECORATOR"
	Assignment      ReferenceKind = "ASSIGNMENT"
)

// Reference is one observed usage of an entity.
// Line and Column are 1-indexed; File is relative to the codebase root.
type Reference struct {
	Kind   ReferenceKind `json:"type"`
	File   string        `json:"file"`
	Line   int           `json:"line"`
	Column int           `json:"column"`
	Text   string        `json:"text"`
}

// Entity is a class or function definition discovered in a source file.
type Entity struct {
	Kind       EntityKind  `json:"type"`
	Repository string      `json:"repo"`
	Path       string      `json:"file_path"`
	Language   string      `json:"-"`
	Name       string      `json:"name"`
	Source     string      `json:"source_code"`
	Docstring  string      `json:"docstring"`
	ParentName string      `json:"parent_name"`
	Line       int         `json:"-"`
	References []Reference `json:"references"`
}

// Module returns the dotted module qualifier of the entity.
func (e *Entity) Module() string {
	return ModuleQualifier(e.Path, e.Repository, e.Name)
}

// QualifiedName returns the lookup key of the entity: Module()+"."+Name
// with any leading dot removed.
func (e *Entity) QualifiedName() string {
	return strings.TrimLeft(e.Module()+"."+e.Name, ".")
}

// ModulePath converts a root-relative file path into its dotted form,
// dropping the extension and a leading segment equal to repo.
// "pkg/sub/mod.py" becomes "pkg.sub.mod".
func ModulePath(relPath, repo string) string {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	p = strings.TrimSuffix(p, path.Ext(p))
	p = strings.TrimPrefix(p, "./")
	if p == "." || p == "" {
		return ""
	}
	segments := strings.Split(p, "/")
	if repo != "" && len(segments) > 1 && segments[0] == repo {
		segments = segments[1:]
	}
	return strings.Join(segments, ".")
}

// ModuleQualifier derives the module qualifier for an entity named name
// defined in relPath. A trailing segment equal to name is dropped so that
// one-class-per-file layouts ("com/acme/Widget.kt") qualify as "com.acme".
func ModuleQualifier(relPath, repo, name string) string {
	mod := ModulePath(relPath, repo)
	if name == "" {
		return mod
	}
	if mod == name {
		return ""
	}
	return strings.TrimSuffix(mod, "."+name)
}

// FileInfo holds per-file metadata for an indexed codebase.
type FileInfo struct {
	Path     string
	Language string
	Rank     float64
}

// Dependency represents an edge in the file dependency graph:
// Source references entities defined in Target.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
	Weight  int
}

// Index is the complete analyzed codebase, ready for serialization.
type Index struct {
	Repository   string
	Root         string
	Files        []FileInfo
	Entities     []Entity
	Dependencies []Dependency
}
