// File: cmd/root_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunCommand_Flags keeps the CLI surface stable; scripts and CI pipelines
// depend on these names.
func TestRunCommand_Flags(t *testing.T) {
	runCmd := newRunCmd()

	for _, name := range []string{
		"output", "format", "base-url", "artifact-dir",
		"concurrency", "navigation-timeout", "step-timeout", "headed",
	} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "run [scenario files...]", runCmd.Use)
}

// TestRunCommand_RequiresArgs rejects an invocation without scenario files.
func TestRunCommand_RequiresArgs(t *testing.T) {
	runCmd := newRunCmd()
	err := runCmd.Args(runCmd, []string{})
	require.Error(t, err)
	assert.NoError(t, runCmd.Args(runCmd, []string{"examples/layout-mobile.json"}))
}

// TestRootCommand_HasRunSubcommand verifies wiring done in init().
func TestRootCommand_HasRunSubcommand(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.Equal(t, "run", cmd.Name())
}
