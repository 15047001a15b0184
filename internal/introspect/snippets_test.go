package introspect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarySnippet_BootstrapsBeforePrinting(t *testing.T) {
	assert.True(t, strings.HasPrefix(SummarySnippet, BootstrapSnippet))
	assert.Contains(t, SummarySnippet, "dataframe_metadata()")
}

func TestColumnWidgetSnippet(t *testing.T) {
	code, err := ColumnWidgetSnippet("140352", "140352_0")
	require.NoError(t, err)
	assert.Equal(t, `_dataclean_tracker.manager_for_id("140352").column_widget("140352_0")`+"\n", code)
}

func TestWidgetSnippets_QuoteOpaqueIDs(t *testing.T) {
	// Ids are opaque strings: bare interpolation would let Python re-read
	// "1_0" as the integer 10 and "c1" as an undefined name.
	code, err := ColumnWidgetSnippet("1", "1_0")
	require.NoError(t, err)
	assert.Contains(t, code, `column_widget("1_0")`)

	code, err = PipelineWidgetSnippet("c1")
	require.NoError(t, err)
	assert.Contains(t, code, `manager_for_id("c1")`)

	code, err = PipelineStepsSnippet("1_0")
	require.NoError(t, err)
	assert.Contains(t, code, `manager_for_id("1_0")`)
}

func TestWidgetSnippets_RejectUnsafeIDs(t *testing.T) {
	unsafe := []string{"", "1; import os", "1)\nprint(", "a-b", "x y"}
	for _, id := range unsafe {
		_, err := ColumnWidgetSnippet(id, "1")
		assert.Error(t, err, "frame id %q", id)
		_, err = ColumnWidgetSnippet("1", id)
		assert.Error(t, err, "column id %q", id)
		_, err = PipelineWidgetSnippet(id)
		assert.Error(t, err, "pipeline id %q", id)
		_, err = PipelineStepsSnippet(id)
		assert.Error(t, err, "steps id %q", id)
	}
}

func TestPipelineWidgetSnippet(t *testing.T) {
	code, err := PipelineWidgetSnippet("7")
	require.NoError(t, err)
	assert.Equal(t, `_dataclean_tracker.manager_for_id("7").dataframe_widget`+"\n", code)
}
