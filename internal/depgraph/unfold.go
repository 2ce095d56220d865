package depgraph

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/roach88/runfortran/internal/ir"
)

// Options carries the configuration of one resolution run.
type Options struct {
	// Intrinsics are module names resolvable without a defining file.
	Intrinsics ir.NameSet

	// Logger receives debug records for each resolved dependency step.
	// Nil disables logging.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard)
	}
	return o.Logger
}

// resolutionKind tags the outcome of looking up a used module.
type resolutionKind int

const (
	resolved   resolutionKind = iota // exactly one defining file
	external                         // intrinsic or allowlisted, no file needed
	unresolved                       // no definition anywhere
	ambiguous                        // several defining files
)

type resolution struct {
	kind resolutionKind
	file int // index of the defining file when kind == resolved
}

// resolver answers lookups against the pre-unfolding snapshot. It never
// sees partially unfolded namespaces, which keeps results independent of
// the order files are unfolded in.
type resolver struct {
	files      []ir.FileNamespace
	definers   map[string][]int // folded module name -> defining file indices
	intrinsics ir.NameSet
	logger     *log.Logger
}

func newResolver(files []ir.FileNamespace, opts Options) *resolver {
	definers := make(map[string][]int)
	for i, f := range files {
		for k := range f.Namespace.Defined {
			definers[k.Name] = append(definers[k.Name], i)
		}
	}
	return &resolver{
		files:      files,
		definers:   definers,
		intrinsics: opts.Intrinsics,
		logger:     opts.logger(),
	}
}

func (r *resolver) resolve(m ir.Module) resolution {
	if m.Intrinsic {
		return resolution{kind: external}
	}
	idx := r.definers[ir.FoldName(m.Name)]
	switch {
	case len(idx) == 1:
		return resolution{kind: resolved, file: idx[0]}
	case len(idx) > 1:
		return resolution{kind: ambiguous}
	case r.intrinsics.Contains(m.Name):
		return resolution{kind: external}
	default:
		return resolution{kind: unresolved}
	}
}

// ambiguities returns one AmbiguityError per module name defined by more
// than one file, ordered by folded name.
func (r *resolver) ambiguities() []*AmbiguityError {
	var names []string
	for name, idx := range r.definers {
		if len(idx) > 1 {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	errs := make([]*AmbiguityError, 0, len(names))
	for _, name := range names {
		errs = append(errs, r.ambiguityError(name))
	}
	return errs
}

func (r *resolver) ambiguityError(folded string) *AmbiguityError {
	idx := r.definers[folded]
	paths := make([]string, len(idx))
	for i, fi := range idx {
		paths[i] = r.files[fi].Path
	}
	slices.Sort(paths)

	spelled := folded
	for _, m := range r.files[idx[0]].Namespace.Defined {
		if ir.FoldName(m.Name) == folded {
			spelled = m.Name
			break
		}
	}
	return &AmbiguityError{Module: spelled, Paths: paths}
}

// closure computes the unfolded used set of file i.
//
// The worklist is seeded with a copy of the file's direct usages and drained
// until empty. Each module is processed at most once per origin file, so the
// walk terminates even on cyclic input; cycles are reported separately.
func (r *resolver) closure(i int) (ir.ModuleSet, error) {
	origin := r.files[i]
	used := origin.Namespace.Used.Clone()

	worklist := origin.Namespace.Used.Sorted()
	introducedBy := make(map[ir.ModuleKey]int, len(worklist))
	for _, m := range worklist {
		introducedBy[m.Key()] = i
	}
	visited := make(map[ir.ModuleKey]bool)

	for len(worklist) > 0 {
		m := worklist[0]
		worklist = worklist[1:]

		key := m.Key()
		if visited[key] {
			continue
		}
		visited[key] = true

		res := r.resolve(m)
		switch res.kind {
		case external:
			continue
		case unresolved:
			return nil, &UnresolvedModuleError{Module: m.Name, Path: r.files[introducedBy[key]].Path}
		case ambiguous:
			return nil, r.ambiguityError(key.Name)
		}

		if res.file == i {
			// The file uses a module it defines itself: merge its own
			// definitions like any other definer, but there is nothing to walk.
			used.AddAll(origin.Namespace.Defined)
			continue
		}

		dep := r.files[res.file]
		r.logger.Debug("resolved module",
			"file", origin.Path, "module", m.Name, "definedIn", dep.Path)

		used.AddAll(dep.Namespace.Used)
		used.AddAll(dep.Namespace.Defined)
		for _, next := range dep.Namespace.Used.Sorted() {
			nk := next.Key()
			if visited[nk] {
				continue
			}
			if _, ok := introducedBy[nk]; !ok {
				introducedBy[nk] = res.file
			}
			worklist = append(worklist, next)
		}
	}

	return used, nil
}

// Unfold returns a new file list, in input order, whose Used sets are the
// full transitive closure of each file's usages merged with the modules
// defined by every file on the chain. Defined sets are unchanged.
//
// files is treated as an immutable snapshot and is never modified.
//
// Checks run in this order: ambiguous definitions across all files,
// unresolved usages file by file, then use cycles between files.
func Unfold(files []ir.FileNamespace, opts Options) ([]ir.FileNamespace, error) {
	r := newResolver(files, opts)

	if errs := r.ambiguities(); len(errs) > 0 {
		return nil, errs[0]
	}

	out := make([]ir.FileNamespace, len(files))
	for i, f := range files {
		used, err := r.closure(i)
		if err != nil {
			return nil, err
		}
		out[i] = ir.FileNamespace{
			Path: f.Path,
			Namespace: ir.Namespace{
				Defined: f.Namespace.Defined.Clone(),
				Used:    used,
			},
		}
	}

	if cycles := analyzeCycles(r); len(cycles) > 0 {
		return nil, cycles[0]
	}

	return out, nil
}
