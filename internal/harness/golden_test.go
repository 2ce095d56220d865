package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"geometry", "chain", "intrinsic", "ambiguous"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestScenarioSnapshot_Canonical(t *testing.T) {
	snap := ScenarioSnapshot{ScenarioName: "empty"}

	data, err := snap.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"order":[],"scenario_name":"empty","snapshot":[]}`, string(data))

	snap.ErrorCode = "E203"
	data, err = snap.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, `{"error_code":"E203","order":[],"scenario_name":"empty","snapshot":[]}`, string(data))
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "geometry.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "geometry", result))
}
