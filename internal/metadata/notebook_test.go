package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNotebook = `{
 "cells": [
  {"cell_type": "code", "source": ["import pandas as pd"], "outputs": [], "metadata": {}, "execution_count": 1}
 ],
 "metadata": {
  "kernelspec": {"name": "python3", "display_name": "Python 3"},
  "dataclean": {"window_display": true, "position": {"left": "10px", "top": "20px"}}
 },
 "nbformat": 4,
 "nbformat_minor": 5
}
`

func writeNotebook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNotebookStore_Load(t *testing.T) {
	store := NewNotebookStore(writeNotebook(t, sampleNotebook))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.True(t, doc.WindowDisplay)
	assert.Equal(t, "10px", doc.Position.Left)
	assert.Equal(t, "20px", doc.Position.Top)
}

func TestNotebookStore_LoadWithoutKey(t *testing.T) {
	store := NewNotebookStore(writeNotebook(t, `{"cells": [], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Document{}, doc)
}

func TestNotebookStore_LoadMissingFile(t *testing.T) {
	store := NewNotebookStore(filepath.Join(t.TempDir(), "absent.ipynb"))
	_, err := store.Load()
	assert.Error(t, err)
}

func TestNotebookStore_SaveRoundTrip(t *testing.T) {
	path := writeNotebook(t, sampleNotebook)
	store := NewNotebookStore(path)

	want := Document{
		WindowDisplay: false,
		Collapsed:     true,
		Position:      Position{Left: "1px", Width: "420px"},
		KernelsConfig: KernelsConfig{KernelID: "k1"},
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNotebookStore_SavePreservesNotebookContent(t *testing.T) {
	path := writeNotebook(t, sampleNotebook)
	store := NewNotebookStore(path)

	require.NoError(t, store.Save(Document{WindowDisplay: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var nb map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &nb))

	// Cells and format fields survive the rewrite.
	assert.Contains(t, string(nb["cells"]), "import pandas as pd")
	assert.Equal(t, "4", string(nb["nbformat"]))

	var meta map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(nb["metadata"], &meta))
	assert.Contains(t, string(meta["kernelspec"]), "python3")
	assert.Contains(t, string(meta["dataclean"]), `"window_display":true`)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Document{}, doc)

	want := Document{WindowDisplay: true, Position: Position{Top: "5px"}}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
