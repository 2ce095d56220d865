package depgraph

import (
	"slices"

	"github.com/roach88/runfortran/internal/ir"
)

// fileGraph maps a file path to the paths of the files it directly depends
// on: F -> G when F uses a module that G defines and G != F.
type fileGraph map[string][]string

// buildFileGraph constructs the file dependency graph from direct usages.
// Intrinsic, allowlisted, unresolved and ambiguous usages add no edge;
// those cases are reported by the resolver.
func buildFileGraph(r *resolver) fileGraph {
	graph := make(fileGraph, len(r.files))
	for i, f := range r.files {
		// Ensure every file is a node, even without edges.
		edges := []string{}
		seen := make(map[int]bool)
		for _, m := range f.Namespace.Used.Sorted() {
			res := r.resolve(m)
			if res.kind != resolved || res.file == i || seen[res.file] {
				continue
			}
			seen[res.file] = true
			edges = append(edges, r.files[res.file].Path)
		}
		graph[f.Path] = edges
	}
	return graph
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so the result is deterministic.
func tarjanSCC(graph fileGraph, nodes []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of a component: pop it off the stack.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath returns the shortest cycle through the first member
// of an SCC, e.g. [a, b, c, a], by breadth-first search over member edges.
func reconstructCyclePath(scc []string, graph fileGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	parent := make(map[string]string)
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range graph[current] {
			if !members[neighbor] {
				continue
			}
			if neighbor == start {
				var reversed []string
				for n := current; n != start; n = parent[n] {
					reversed = append(reversed, n)
				}
				path := []string{start}
				for j := len(reversed) - 1; j >= 0; j-- {
					path = append(path, reversed[j])
				}
				return append(path, start)
			}
			if !seen[neighbor] {
				seen[neighbor] = true
				parent[neighbor] = current
				queue = append(queue, neighbor)
			}
		}
	}

	// Not reachable for a real SCC.
	return []string{start, start}
}

func analyzeCycles(r *resolver) []*CyclicDependencyError {
	graph := buildFileGraph(r)
	nodes := ir.Paths(r.files)

	var cycles []*CyclicDependencyError
	for _, scc := range tarjanSCC(graph, nodes) {
		if len(scc) < 2 {
			continue
		}
		members := slices.Clone(scc)
		slices.Sort(members)
		cycles = append(cycles, &CyclicDependencyError{
			Files: members,
			Path:  reconstructCyclePath(members, graph),
		})
	}

	slices.SortFunc(cycles, func(a, b *CyclicDependencyError) int {
		return slices.Compare(a.Files, b.Files)
	})
	return cycles
}

// AnalyzeCycles returns every group of files whose use relations form a
// cycle. A DAG returns nil. Files using a module they define themselves are
// not cycles.
func AnalyzeCycles(files []ir.FileNamespace, opts Options) []*CyclicDependencyError {
	return analyzeCycles(newResolver(files, opts))
}
