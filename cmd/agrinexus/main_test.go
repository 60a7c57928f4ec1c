package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniket-work/autonomous-agri-nexus/internal/research"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AGRINEXUS_CONFIG_FILE", "")
	t.Setenv("AGRINEXUS_SEARCH_BACKEND", "fixture")
	t.Setenv("AGRINEXUS_LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCropsCommandListsProfiles(t *testing.T) {
	out, err := execute(t, "crops")
	require.NoError(t, err)

	assert.Contains(t, out, "CROP")
	assert.Contains(t, out, "corn")
	assert.Contains(t, out, "soybean")
	assert.Contains(t, out, "wheat")
}

func TestCycleCommandReplaysReadings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.json")
	readings := `[
	  {"zoneId":1,"nitrogen":145,"moisture":65},
	  {"zoneId":2,"nitrogen":138,"moisture":62},
	  {"zoneId":3,"nitrogen":110,"moisture":82.5},
	  {"zoneId":4,"nitrogen":143,"moisture":64}
	]`
	require.NoError(t, os.WriteFile(path, []byte(readings), 0o600))

	out, err := execute(t, "cycle", "--crop", "corn", "--readings", path)
	require.NoError(t, err)

	var result research.CycleResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Anomalies, 2)
	assert.Len(t, result.Queries, 3)
	assert.Equal(t, research.ConfidenceHigh, result.Advisory.Confidence)
}

func TestCycleCommandRejectsBraveWithoutKey(t *testing.T) {
	t.Setenv("AGRINEXUS_BRAVE_API_KEY", "")
	cycleReadings = ""

	_, err := execute(t, "cycle", "--backend", "brave")
	assert.Error(t, err)
}
