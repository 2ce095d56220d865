package ir

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Module is a named unit of Fortran code, as written in a module or use statement.
type Module struct {
	Name      string `json:"name"`
	Intrinsic bool   `json:"intrinsic"`
}

// ModuleKey is the identity of a Module: folded name plus intrinsic flag.
// Two modules are equal iff their keys are equal.
type ModuleKey struct {
	Name      string
	Intrinsic bool
}

// NewModule creates a module, trimming surrounding blanks from name.
func NewModule(name string, intrinsic bool) Module {
	return Module{Name: strings.TrimSpace(name), Intrinsic: intrinsic}
}

// FoldName returns the case-insensitive form of a module name.
// A new Caser is built per call: cases.Caser is stateful and not safe to share.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Key returns the case-insensitive identity of m.
func (m Module) Key() ModuleKey {
	return ModuleKey{Name: FoldName(m.Name), Intrinsic: m.Intrinsic}
}

// Equal reports whether m and other denote the same module.
func (m Module) Equal(other Module) bool {
	return m.Key() == other.Key()
}

func (m Module) String() string {
	if m.Intrinsic {
		return m.Name + " (intrinsic)"
	}
	return m.Name
}

func compareKeys(a, b ModuleKey) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	switch {
	case a.Intrinsic == b.Intrinsic:
		return 0
	case !a.Intrinsic:
		return -1
	default:
		return 1
	}
}

// ModuleSet is a set of modules keyed by identity.
// The first spelling added for a key is the one kept.
type ModuleSet map[ModuleKey]Module

// NewModuleSet creates a set holding mods.
func NewModuleSet(mods ...Module) ModuleSet {
	s := make(ModuleSet, len(mods))
	for _, m := range mods {
		s.Add(m)
	}
	return s
}

// Add inserts m and reports whether it was not already present.
func (s ModuleSet) Add(m Module) bool {
	k := m.Key()
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = m
	return true
}

// AddAll inserts every module of other.
func (s ModuleSet) AddAll(other ModuleSet) {
	for k, m := range other {
		if _, ok := s[k]; !ok {
			s[k] = m
		}
	}
}

// Contains reports whether m is in the set.
func (s ModuleSet) Contains(m Module) bool {
	_, ok := s[m.Key()]
	return ok
}

// Intersects reports whether s and other share at least one module.
func (s ModuleSet) Intersects(other ModuleSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of s. Cloning a nil set yields an empty set.
func (s ModuleSet) Clone() ModuleSet {
	c := make(ModuleSet, len(s))
	for k, m := range s {
		c[k] = m
	}
	return c
}

// Sorted returns the modules ordered by folded name, non-intrinsic first.
func (s ModuleSet) Sorted() []Module {
	keys := make([]ModuleKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	mods := make([]Module, len(keys))
	for i, k := range keys {
		mods[i] = s[k]
	}
	return mods
}

// NameSet is a set of folded module names, e.g. the intrinsic allowlist.
type NameSet map[string]struct{}

// NewNameSet folds and collects names. Blank names are ignored.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		if f := FoldName(n); f != "" {
			s[f] = struct{}{}
		}
	}
	return s
}

// Contains reports whether name, compared case-insensitively, is in the set.
func (s NameSet) Contains(name string) bool {
	_, ok := s[FoldName(name)]
	return ok
}

// Sorted returns the folded names in lexical order.
func (s NameSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
