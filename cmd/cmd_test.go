// File: cmd/cmd_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"], "run subcommand must be registered")
	assert.True(t, names["roles"], "roles subcommand must be registered")
}

func TestRunCommandFlags(t *testing.T) {
	cmd := newRunCmd()

	for _, flag := range []string{
		"role", "group-size", "group-has-healer", "group-has-tank",
		"pvp", "sim-seed", "tick-rate", "max-hours", "control",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %q", flag)
	}

	size, err := cmd.Flags().GetInt("group-size")
	require.NoError(t, err)
	assert.Equal(t, 1, size, "default group is solo")

	control, err := cmd.Flags().GetBool("control")
	require.NoError(t, err)
	assert.False(t, control, "the control channel is opt-in")
}

func TestVersionIsSet(t *testing.T) {
	assert.NotEmpty(t, Version)
}
