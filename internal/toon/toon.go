// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/refscan/internal/lang"
	"github.com/phobologic/refscan/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts an Index into TOON format.
func Encode(idx *model.Index) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("repo: %s", encodeValue(idx.Repository)))
	parts = append(parts, fmt.Sprintf("root: %s", encodeValue(idx.Root)))

	var fileRows [][]string
	for i := range idx.Files {
		fi := &idx.Files[i]
		fileRows = append(fileRows, []string{
			fi.Path,
			fi.Language,
			fmt.Sprintf("%.4f", fi.Rank),
		})
	}
	parts = append(parts, formatTabular("files", []string{"path", "language", "rank"}, fileRows))

	var entityRows, refRows [][]string
	for i := range idx.Entities {
		e := &idx.Entities[i]
		entityRows = append(entityRows, []string{
			e.Path,
			e.Name,
			string(e.Kind),
			strconv.Itoa(e.Line),
			e.ParentName,
			strconv.Itoa(len(e.References)),
		})
		target := e.QualifiedName()
		for j := range e.References {
			r := &e.References[j]
			refRows = append(refRows, []string{
				target,
				string(r.Kind),
				r.File,
				strconv.Itoa(r.Line),
				strconv.Itoa(r.Column),
				lang.CollapseWhitespace(r.Text),
			})
		}
	}
	parts = append(parts, formatTabular("entities", []string{"file", "name", "kind", "line", "parent", "refs"}, entityRows))
	parts = append(parts, formatTabular("references", []string{"target", "kind", "file", "line", "column", "text"}, refRows))

	var depRows [][]string
	for i := range idx.Dependencies {
		d := &idx.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			d.Target,
			strings.Join(d.Symbols, " "),
			strconv.Itoa(d.Weight),
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols", "weight"}, depRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
