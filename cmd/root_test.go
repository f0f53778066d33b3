package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "probe", "resolve", "serve", "runs"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRunCommandFlags(t *testing.T) {
	assert.NotNil(t, runCmd.Flags().Lookup("input"))
	assert.NotNil(t, runCmd.Flags().Lookup("resume"))
	assert.NotNil(t, runCmd.Flags().Lookup("concurrency"))
	assert.NotNil(t, runCmd.Flags().Lookup("limit"))
}
