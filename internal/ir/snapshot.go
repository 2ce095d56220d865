package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot is the exported view of a resolved run: one entry per file, in
// final compilation order, each carrying the file's unfolded namespace.
//
// JSON form is an object keyed by path whose key order is the compilation
// order:
//
//	{"a.f90": {"defined": [{"geometry": false}], "used": []}, ...}
type Snapshot []FileNamespace

// snapshotEntry is the JSON value stored under each path.
type snapshotEntry struct {
	Defined []map[string]bool `json:"defined"`
	Used    []map[string]bool `json:"used"`
}

// moduleEntries lists modules under their folded names so that every file
// spells a module the same way.
func moduleEntries(s ModuleSet) []map[string]bool {
	mods := s.Sorted()
	out := make([]map[string]bool, len(mods))
	for i, m := range mods {
		out[i] = map[string]bool{FoldName(m.Name): m.Intrinsic}
	}
	return out
}

// Paths returns the file paths in snapshot order.
func (s Snapshot) Paths() []string {
	return Paths(s)
}

// MarshalJSON writes the snapshot as an object whose key order is the
// snapshot order. encoding/json sorts map keys, so the object is built by hand.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Path)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", f.Path, err)
		}
		val, err := json.Marshal(snapshotEntry{
			Defined: moduleEntries(f.Namespace.Defined),
			Used:    moduleEntries(f.Namespace.Used),
		})
		if err != nil {
			return nil, fmt.Errorf("namespace of %q: %w", f.Path, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a snapshot, keeping the key order of the object.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("snapshot: expected object, got %v", tok)
	}

	var out Snapshot
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected path key, got %v", tok)
		}
		var entry snapshotEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("snapshot entry %q: %w", path, err)
		}
		ns := NewNamespace()
		for _, m := range entry.Defined {
			for name := range m {
				ns.Define(name)
			}
		}
		for _, m := range entry.Used {
			for name, intrinsic := range m {
				ns.Use(NewModule(name, intrinsic))
			}
		}
		out = append(out, FileNamespace{Path: path, Namespace: ns})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// CanonicalValue converts the snapshot into plain values accepted by
// MarshalCanonical. Canonical objects sort their keys, so order is carried
// by an array of entries.
func (s Snapshot) CanonicalValue() []any {
	list := make([]any, len(s))
	for i, f := range s {
		list[i] = map[string]any{
			"path":    f.Path,
			"defined": canonicalModules(f.Namespace.Defined),
			"used":    canonicalModules(f.Namespace.Used),
		}
	}
	return list
}

func canonicalModules(s ModuleSet) []any {
	mods := s.Sorted()
	out := make([]any, len(mods))
	for i, m := range mods {
		out[i] = map[string]any{
			"name":      FoldName(m.Name),
			"intrinsic": m.Intrinsic,
		}
	}
	return out
}

// MarshalCanonical returns the canonical JSON of the snapshot, the form
// used for digests and golden comparisons.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(s.CanonicalValue())
}
