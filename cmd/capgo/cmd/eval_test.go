package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abd", 1},
		{"abc", "acb", 2},
		{"x7kp", "x7k", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)),
			"levenshtein(%q, %q)", tt.a, tt.b)
	}
}

func TestValidateOutputFormat(t *testing.T) {
	require.NoError(t, validateOutputFormat("text"))
	require.NoError(t, validateOutputFormat("json"))
	require.NoError(t, validateOutputFormat("csv"))

	err := validateOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestEvalRequiresCorpusArg(t *testing.T) {
	_, err := runCommand(t, "eval")
	require.Error(t, err)
}

func TestPredictRequiresInput(t *testing.T) {
	_, err := runCommand(t, "predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files")
}
