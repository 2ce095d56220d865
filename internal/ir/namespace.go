package ir

// Namespace is the set of modules a source file defines and the set it uses.
//
// Before unfolding, Used holds only the modules named in the file's own use
// statements. After unfolding it is the full transitive dependency set.
type Namespace struct {
	Defined ModuleSet
	Used    ModuleSet
}

// NewNamespace creates an empty namespace.
func NewNamespace() Namespace {
	return Namespace{Defined: ModuleSet{}, Used: ModuleSet{}}
}

// Define records a module definition. Defined modules are never intrinsic.
func (n Namespace) Define(name string) {
	n.Defined.Add(NewModule(name, false))
}

// Use records a module usage.
func (n Namespace) Use(m Module) {
	n.Used.Add(m)
}

// Clone returns a deep copy of n.
func (n Namespace) Clone() Namespace {
	return Namespace{Defined: n.Defined.Clone(), Used: n.Used.Clone()}
}

// IsEmpty reports whether the file neither defines nor uses any module.
func (n Namespace) IsEmpty() bool {
	return len(n.Defined) == 0 && len(n.Used) == 0
}

// FileNamespace pairs a source file path with its namespace.
// The path is the node identity in the dependency graph.
type FileNamespace struct {
	Path      string
	Namespace Namespace
}

// CloneFiles deep-copies a file list, preserving order.
func CloneFiles(files []FileNamespace) []FileNamespace {
	out := make([]FileNamespace, len(files))
	for i, f := range files {
		out[i] = FileNamespace{Path: f.Path, Namespace: f.Namespace.Clone()}
	}
	return out
}

// Paths returns the file paths in slice order.
func Paths(files []FileNamespace) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
