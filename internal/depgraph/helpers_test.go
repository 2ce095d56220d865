package depgraph

import (
	"github.com/roach88/runfortran/internal/ir"
)

// use returns a non-intrinsic module reference.
func use(name string) ir.Module {
	return ir.NewModule(name, false)
}

// intrinsic returns an intrinsic module reference.
func intrinsic(name string) ir.Module {
	return ir.NewModule(name, true)
}

// file builds a FileNamespace that defines the given modules and uses uses.
func file(path string, defines []string, uses ...ir.Module) ir.FileNamespace {
	ns := ir.NewNamespace()
	for _, d := range defines {
		ns.Define(d)
	}
	for _, u := range uses {
		ns.Use(u)
	}
	return ir.FileNamespace{Path: path, Namespace: ns}
}

func defines(names ...string) []string {
	return names
}

func usedNames(f ir.FileNamespace) []string {
	var names []string
	for _, m := range f.Namespace.Used.Sorted() {
		names = append(names, m.String())
	}
	return names
}

func byPath(files []ir.FileNamespace) map[string]ir.FileNamespace {
	m := make(map[string]ir.FileNamespace, len(files))
	for _, f := range files {
		m[f.Path] = f
	}
	return m
}

func position(order []string, path string) int {
	for i, p := range order {
		if p == path {
			return i
		}
	}
	return -1
}
