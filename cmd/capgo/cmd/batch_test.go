package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectBatchInputsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, "b_1.png"))
	writeTestPNG(t, filepath.Join(dir, "a_0.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	samples, err := collectBatchInputs([]string{dir})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Sorted, text file excluded
	assert.Equal(t, filepath.Join(dir, "a_0.png"), samples[0].Path)
	assert.Equal(t, filepath.Join(dir, "b_1.png"), samples[1].Path)
}

func TestCollectBatchInputsExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c_0.png")
	writeTestPNG(t, path)

	samples, err := collectBatchInputs([]string{path})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, path, samples[0].Path)
}

func TestCollectBatchInputsMissingPath(t *testing.T) {
	_, err := collectBatchInputs([]string{filepath.Join(t.TempDir(), "missing.png")})
	require.Error(t, err)
}

func TestWriteBatchResultsFormats(t *testing.T) {
	results := []batchResult{
		{File: "a.png", Text: "x7", Confidence: 0.9},
		{File: "b.png", Error: "corrupt"},
	}

	var text bytes.Buffer
	require.NoError(t, writeBatchResults(&text, results, outputFormatText))
	assert.Contains(t, text.String(), "a.png\tx7\t0.9000")
	assert.Contains(t, text.String(), "b.png\tERROR\tcorrupt")

	var csv bytes.Buffer
	require.NoError(t, writeBatchResults(&csv, results, outputFormatCSV))
	assert.Contains(t, csv.String(), "file,text,confidence,error")

	var jsonOut bytes.Buffer
	require.NoError(t, writeBatchResults(&jsonOut, results, outputFormatJSON))
	assert.Contains(t, jsonOut.String(), `"text": "x7"`)
}
