// Package graph derives a file dependency graph from resolved references
// and computes PageRank over it.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/refscan/internal/model"
)

// BuildGraph creates dependency edges from cross-file references: a file
// that references an entity defined in another file depends on that file.
// Symbols lists the referenced entity names in first-seen order; Weight
// counts the references behind the edge.
func BuildGraph(entities []model.Entity) []model.Dependency {
	type edgeKey struct{ src, tgt string }
	edges := make(map[edgeKey]*model.Dependency)

	for i := range entities {
		e := &entities[i]
		for j := range e.References {
			ref := &e.References[j]
			if ref.File == e.Path {
				continue // no self-edges
			}
			key := edgeKey{ref.File, e.Path}
			d, ok := edges[key]
			if !ok {
				d = &model.Dependency{Source: ref.File, Target: e.Path}
				edges[key] = d
			}
			// Only add symbol if not already present
			if !contains(d.Symbols, e.Name) {
				d.Symbols = append(d.Symbols, e.Name)
			}
			d.Weight++
		}
	}

	deps := make([]model.Dependency, 0, len(edges))
	for _, d := range edges {
		deps = append(deps, *d)
	}

	// Sort for deterministic output
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// Rank applies PageRank to file_infos and sorts them by rank descending.
func Rank(fileInfos []model.FileInfo, deps []model.Dependency) {
	if len(fileInfos) == 0 {
		return
	}

	if len(deps) == 0 {
		uniform := 1.0 / float64(len(fileInfos))
		for i := range fileInfos {
			fileInfos[i].Rank = uniform
		}
		return
	}

	// Build adjacency for PageRank
	// Edge from source to target means source references target.
	// Count edges per (source, target) pair.
	outEdges := make(map[string][]string) // node → list of targets (with repeats for multi-edges)
	outDegree := make(map[string]int)     // total out-edges per node
	nodes := make(map[string]struct{})

	for i := range fileInfos {
		nodes[fileInfos[i].Path] = struct{}{}
	}

	for _, d := range deps {
		// Each reference is an edge
		for range d.Weight {
			outEdges[d.Source] = append(outEdges[d.Source], d.Target)
			outDegree[d.Source]++
		}
	}

	ranks := pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)

	for i := range fileInfos {
		fileInfos[i].Rank = ranks[fileInfos[i].Path]
	}

	sort.SliceStable(fileInfos, func(i, j int) bool {
		return fileInfos[i].Rank > fileInfos[j].Rank
	})
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		// Check convergence
		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
