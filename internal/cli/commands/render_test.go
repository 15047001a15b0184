package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacleanhq/dataclean/internal/history"
	"github.com/datacleanhq/dataclean/internal/introspect"
)

func testFrames() []introspect.FrameDescriptor {
	return []introspect.FrameDescriptor{
		{
			ID: "f1", Name: "df", Shape: "100x2", Sampled: true,
			Columns: []introspect.ColumnDescriptor{
				{ID: "c1", Name: "age", Dtype: "int64", NullPct: "2.0%", Distinct: 37},
				{ID: "c2", Name: "city, state", Dtype: "object", NullPct: "0.0%", Distinct: 12},
			},
		},
		{ID: "f2", Name: "other", Shape: "5x1"},
	}
}

func TestRenderFrames_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFrames(&buf, testFrames(), "table"))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "df")
	assert.Contains(t, out, "100x2")
	assert.Contains(t, out, "(2 frames)")
}

func TestRenderFrames_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFrames(&buf, testFrames(), "json"))

	out := buf.String()
	assert.Contains(t, out, `"id": "f1"`)
	assert.Contains(t, out, `"name": "df"`)
	assert.NotContains(t, out, "(2 frames)")
}

func TestRenderFrames_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFrames(&buf, testFrames(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,shape,columns,sampled", lines[0])
	assert.Equal(t, "f1,df,100x2,2,true", lines[1])
}

func TestRenderFrames_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFrames(&buf, testFrames(), "md"))
	assert.Contains(t, buf.String(), "| df ")
}

func TestRenderColumns_CSVQuoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderColumns(&buf, testFrames(), "csv"))

	out := buf.String()
	assert.Contains(t, out, `"city, state"`)
	assert.Contains(t, out, "df,c1,age,int64,2.0%,37")
}

func TestRenderColumns_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderColumns(&buf, testFrames(), "table"))

	out := buf.String()
	assert.Contains(t, out, "DTYPE")
	assert.Contains(t, out, "(2 columns)")
}

func TestRenderHistory_Table(t *testing.T) {
	entries := []history.Entry{
		{
			ID: "1", Kind: "exec", Code: "df.describe()\ndf.head()", Status: "ok",
			ElapsedMS: 42, RecordedAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderHistory(&buf, entries, "table"))

	out := buf.String()
	assert.Contains(t, out, "exec")
	assert.Contains(t, out, "42ms")
	assert.Contains(t, out, "df.describe() df.head()", "newlines should be flattened")
	assert.Contains(t, out, "(1 commands)")
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "hello", "hello"},
		{"comma", "a,b", `"a,b"`},
		{"quote", `say "hi"`, `"say ""hi"""`},
		{"newline", "a\nb", "\"a\nb\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeCSV(tt.input))
		})
	}
}

func TestTruncateCode(t *testing.T) {
	assert.Equal(t, "short", truncateCode("short", 10))
	long := strings.Repeat("x", 80)
	got := truncateCode(long, 60)
	assert.Equal(t, 60, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}
