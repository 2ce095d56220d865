package source

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/roach88/runfortran/internal/ir"
)

// maxLineSize bounds a single source line. Generated sources can carry very
// long data statements.
const maxLineSize = 4 * 1024 * 1024

// ParseReader reads Fortran source from r and returns the namespace of
// modules it defines and directly uses.
func ParseReader(r io.Reader) (ir.Namespace, error) {
	ns := ir.NewNamespace()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		for _, occ := range ExtractModules(NormalizeStatement(scanner.Text())) {
			switch occ.Kind {
			case Definition:
				ns.Define(occ.Module.Name)
			case Usage:
				ns.Use(occ.Module)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ir.Namespace{}, err
	}
	return ns, nil
}

// ParseFile reads one source file and returns its namespace.
func ParseFile(path string) (ir.Namespace, error) {
	f, err := os.Open(path)
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	ns, err := ParseReader(f)
	if err != nil {
		return ir.Namespace{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ns, nil
}

// ParseFiles parses every path in order. The first error aborts the batch.
func ParseFiles(paths []string) ([]ir.FileNamespace, error) {
	files := make([]ir.FileNamespace, 0, len(paths))
	for _, p := range paths {
		ns, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, ir.FileNamespace{Path: p, Namespace: ns})
	}
	return files, nil
}
