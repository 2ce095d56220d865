package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Intrinsics replaces the default allowlist when set. An empty list
	// disables the allowlist.
	Intrinsics []string `yaml:"intrinsics,omitempty"`

	// Files maps slash-separated relative paths to file contents.
	Files map[string]string `yaml:"files"`

	// Expect declares that resolution must fail. Mutually exclusive with
	// Assertions.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate a successful resolution.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is an optional fixed ID for the stored run.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Error kinds accepted by ExpectClause.Error.
const (
	ErrorAmbiguous  = "ambiguous"
	ErrorUnresolved = "unresolved"
	ErrorCycle      = "cycle"
)

// ExpectClause specifies an expected resolution failure.
type ExpectClause struct {
	// Error is the failure kind: ambiguous, unresolved or cycle.
	Error string `yaml:"error"`

	// Module is the offending module name (ambiguous, unresolved).
	// Compared case-insensitively. Optional.
	Module string `yaml:"module,omitempty"`

	// Paths are the files named by the error: the defining files of an
	// ambiguous module, the file using an unresolved one, or the members
	// of a cycle. Optional.
	Paths []string `yaml:"paths,omitempty"`
}

// Assertion validates the result of a successful resolution.
type Assertion struct {
	// Type specifies the assertion type:
	// - "order": Paths is exactly the compilation order
	// - "before": each of Paths precedes the next
	// - "uses": the unfolded used set of Path contains Modules
	// - "definers": the stored run lists Paths as definers of Module
	// - "count": the order holds exactly Count files
	Type string `yaml:"type"`

	// Path is the file inspected (used by uses).
	Path string `yaml:"path,omitempty"`

	// Paths lists files (used by order, before, definers).
	Paths []string `yaml:"paths,omitempty"`

	// Module is the module looked up (used by definers).
	Module string `yaml:"module,omitempty"`

	// Modules lists module names (used by uses). An "intrinsic:" prefix
	// selects the intrinsic variant.
	Modules []string `yaml:"modules,omitempty"`

	// Count is the expected number of files (used by count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOrder    = "order"
	AssertBefore   = "before"
	AssertUses     = "uses"
	AssertDefiners = "definers"
	AssertCount    = "count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Scenario names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	seen := make(map[string]string)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		file := filepath.Join(dir, entry.Name())
		scenario, err := LoadScenario(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if prev, ok := seen[scenario.Name]; ok {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", file, scenario.Name, prev)
		}
		seen[scenario.Name] = file
		scenarios = append(scenarios, scenario)
	}

	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Files) == 0 {
		return fmt.Errorf("files map is required and must be non-empty")
	}

	for name := range s.Files {
		if err := validateFilePath(name); err != nil {
			return fmt.Errorf("files[%q]: %w", name, err)
		}
	}

	switch {
	case s.Expect != nil && len(s.Assertions) > 0:
		return fmt.Errorf("expect and assertions are mutually exclusive")
	case s.Expect == nil && len(s.Assertions) == 0:
		return fmt.Errorf("either expect or a non-empty assertions list is required")
	}

	if s.Expect != nil {
		if !slices.Contains([]string{ErrorAmbiguous, ErrorUnresolved, ErrorCycle}, s.Expect.Error) {
			return fmt.Errorf("expect.error must be one of ambiguous, unresolved, cycle; got %q", s.Expect.Error)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateFilePath(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty path")
	case strings.Contains(name, `\`):
		return fmt.Errorf("paths use forward slashes")
	case path.IsAbs(name):
		return fmt.Errorf("path must be relative")
	case path.Clean(name) != name || strings.HasPrefix(name, "../") || name == "..":
		return fmt.Errorf("path must be clean and stay inside the tree")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOrder:
		if len(a.Paths) == 0 {
			return fmt.Errorf("assertions[%d]: order requires paths", index)
		}
	case AssertBefore:
		if len(a.Paths) < 2 {
			return fmt.Errorf("assertions[%d]: before requires at least two paths", index)
		}
	case AssertUses:
		if a.Path == "" || len(a.Modules) == 0 {
			return fmt.Errorf("assertions[%d]: uses requires path and modules", index)
		}
	case AssertDefiners:
		if a.Module == "" {
			return fmt.Errorf("assertions[%d]: definers requires module", index)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
