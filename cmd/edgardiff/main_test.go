package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand([]string{"run", "--skip-acquire", "--config", "edgardiff.yaml", "--workers", "4"})
	require.NoError(t, err)

	assert.Equal(t, "run", cmd.name)
	assert.True(t, cmd.skipAcquire)
	assert.Equal(t, "edgardiff.yaml", cmd.configPath)
	assert.True(t, cmd.flags.Changed("workers"))
	assert.False(t, cmd.flags.Changed("schedule"))
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"help", []string{"--help"}},
		{"unknown command", []string{"train"}},
		{"unknown flag", []string{"diff", "--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCommand(tt.args)
			assert.Error(t, err)
		})
	}
}
