//go:build e2e
// +build e2e

package commands

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "test-viewer")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../cmd")
	output, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "Failed to build binary: %s", string(output))
	return binaryPath
}

// TestMissingConfigurationExits checks the error printed before any filtering
func TestMissingConfigurationExits(t *testing.T) {
	binaryPath := buildBinary(t)
	tempDir := t.TempDir()

	generator := fixtures.NewTestLogGenerator(tempDir)
	source, err := generator.WriteLog("inverter.csv", fixtures.LogSpec{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 23, 50, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	missing := filepath.Join(tempDir, "figure_config.json")
	cmd := exec.Command(binaryPath, "--csv", source, "--day", "01", "--config", missing, "--no-browser")
	cmd.Env = append(os.Environ(), "HOME="+tempDir)
	output, err := cmd.CombinedOutput()

	require.Error(t, err, "Command should fail: %s", string(output))
	exitErr, ok := err.(*exec.ExitError)
	require.True(t, ok)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(output), "Error: Configuration file not found: "+missing)

	_, statErr := os.Stat(filepath.Join(tempDir, "inverter.clean.csv"))
	assert.True(t, os.IsNotExist(statErr), "log must not be filtered without a configuration")
}

// TestTwoPanelFigure renders the two-panel day to both output formats
func TestTwoPanelFigure(t *testing.T) {
	binaryPath := buildBinary(t)
	tempDir := t.TempDir()

	generator := fixtures.NewTestLogGenerator(tempDir)
	source, err := generator.WriteLog("inverter.csv", fixtures.LogSpec{
		Start:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2025, 3, 2, 23, 50, 0, 0, time.UTC),
		HeaderEvery: 50,
		VendorEvery: 30,
	})
	require.NoError(t, err)
	config, err := generator.WriteFigureConfig("figure_config.json", fixtures.TwoPanelConfig)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		file  string
		check func(t *testing.T, data []byte)
	}{
		{
			name: "HTML figure",
			file: "day.html",
			check: func(t *testing.T, data []byte) {
				page := string(data)
				assert.Contains(t, page, "inverter.csv - day 01")
				assert.Contains(t, page, "panel_0")
				assert.Contains(t, page, "panel_1")
				assert.Contains(t, page, "echarts.connect")
			},
		},
		{
			name: "PNG figure",
			file: "day.png",
			check: func(t *testing.T, data []byte) {
				assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := filepath.Join(tempDir, tc.file)
			cmd := exec.Command(binaryPath,
				"--csv", source, "--day", "01", "--config", config,
				"--timezone", "UTC", "--save", target)
			cmd.Env = append(os.Environ(), "HOME="+tempDir)
			output, err := cmd.CombinedOutput()
			require.NoError(t, err, "Command should succeed: %s", string(output))
			assert.Contains(t, string(output), "2 panels, 144 rows")

			data, err := os.ReadFile(target)
			require.NoError(t, err)
			tc.check(t, data)
		})
	}

	cleaned, err := os.ReadFile(filepath.Join(tempDir, "inverter.clean.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(cleaned), "\r\n"), "\n")
	require.Len(t, lines, 145)
	assert.True(t, strings.HasPrefix(lines[0], "Date;"))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "01/03/25"), line)
		assert.NotContains(t, line, "Solis")
	}
}
