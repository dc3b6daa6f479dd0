package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := GetRootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"predict", "batch", "eval", "vocab", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommandVersionFlag(t *testing.T) {
	root := GetRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--version"})
	t.Cleanup(func() { root.SetArgs(nil) })

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "capgo version")
}

func TestRootCommandHelp(t *testing.T) {
	root := GetRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})
	t.Cleanup(func() { root.SetArgs(nil) })

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "capgo predict")
	assert.Contains(t, out.String(), "Available Commands")
}
