package source

import (
	"regexp"
	"strings"

	"github.com/roach88/runfortran/internal/ir"
)

// OccurrenceKind tells a module definition from a module usage.
type OccurrenceKind int

const (
	// Definition is a "module <name>" statement.
	Definition OccurrenceKind = iota
	// Usage is a "use <name>" statement.
	Usage
)

func (k OccurrenceKind) String() string {
	if k == Definition {
		return "definition"
	}
	return "usage"
}

// Occurrence is one module reference found on a line.
type Occurrence struct {
	Kind   OccurrenceKind
	Module ir.Module
}

var (
	// moduleDefinitionRe captures the word after "module". RE2 has no
	// lookahead, so "module procedure" is filtered in ExtractModules.
	moduleDefinitionRe = regexp.MustCompile(`(?i)\bmodule\s+([a-z_]\w*)`)

	// moduleUseRe captures the optional nature qualifier and the module name:
	//   use name / use :: name / use, intrinsic :: name / use, non_intrinsic :: name
	moduleUseRe = regexp.MustCompile(`(?i)\buse(?:\s*,\s*(intrinsic|non_intrinsic))?(?:\s*::\s*|\s+)([a-z_]\w*)`)
)

// procedureWords always follow "module" in a procedure header rather than
// naming a module.
var procedureWords = map[string]bool{
	"procedure":  true,
	"function":   true,
	"subroutine": true,
}

// prefixWords may open a separate module procedure header
// ("module pure subroutine", "module double precision function") but are
// also legal module names, so they only count as a prefix when the statement
// goes on to declare a function or subroutine.
var prefixWords = map[string]bool{
	"pure":          true,
	"impure":        true,
	"elemental":     true,
	"recursive":     true,
	"non_recursive": true,
	"integer":       true,
	"real":          true,
	"double":        true,
	"complex":       true,
	"logical":       true,
	"character":     true,
	"type":          true,
	"class":         true,
}

var procedureHeaderRe = regexp.MustCompile(`(?i)\b(?:function|subroutine)\b`)

// namesModule reports whether word, found after "module" with rest
// following it on the line, is a module name.
func namesModule(word, rest string) bool {
	word = strings.ToLower(word)
	if procedureWords[word] {
		return false
	}
	return !prefixWords[word] || !procedureHeaderRe.MatchString(rest)
}

// ExtractModules returns the module definitions followed by the module
// usages found on a normalized line. Call NormalizeStatement first.
func ExtractModules(line string) []Occurrence {
	var out []Occurrence

	for _, loc := range moduleDefinitionRe.FindAllStringSubmatchIndex(line, -1) {
		name := line[loc[2]:loc[3]]
		if !namesModule(name, line[loc[1]:]) {
			continue
		}
		out = append(out, Occurrence{Kind: Definition, Module: ir.NewModule(name, false)})
	}

	for _, m := range moduleUseRe.FindAllStringSubmatch(line, -1) {
		intrinsic := strings.EqualFold(m[1], "intrinsic")
		out = append(out, Occurrence{Kind: Usage, Module: ir.NewModule(m[2], intrinsic)})
	}

	return out
}
