package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/runfortran/internal/ir"
)

// ScenarioSnapshot captures the outcome of a scenario for golden comparison.
// All fields use canonical JSON serialization for deterministic comparison.
type ScenarioSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Order        []string    `json:"order"`
	Snapshot     ir.Snapshot `json:"snapshot"`
	ErrorCode    string      `json:"error_code,omitempty"`
}

// toCanonicalMap converts a ScenarioSnapshot to a map[string]any for
// canonical JSON serialization.
func (s *ScenarioSnapshot) toCanonicalMap() map[string]any {
	order := s.Order
	if order == nil {
		order = []string{}
	}
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"order":         order,
		"snapshot":      s.Snapshot.CanonicalValue(),
	}
	if s.ErrorCode != "" {
		result["error_code"] = s.ErrorCode
	}
	return result
}

// MarshalCanonical returns the golden file bytes.
func (s *ScenarioSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := ScenarioSnapshot{
		ScenarioName: scenarioName,
		Order:        result.Order,
		Snapshot:     result.Snapshot,
		ErrorCode:    result.ErrorCode,
	}

	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
