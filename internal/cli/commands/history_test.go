package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/panel"
)

func TestHistoryCommand_DocumentedKindsAreRecordable(t *testing.T) {
	hist := openTestHistory(t)

	kinds := []string{
		introspect.KindPoll,
		introspect.KindBootstrap,
		panel.KindColumnWidget,
		panel.KindPipelineWidget,
		"exec",
	}
	for _, kind := range kinds {
		hist.Record(context.Background(), kind, "code", "ok", time.Millisecond)
	}

	usage := NewHistoryCommand().Flags().Lookup("kind").Usage
	for _, kind := range kinds {
		assert.Contains(t, usage, kind)

		entries, err := hist.Recent(context.Background(), kind, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1, "kind %s", kind)
		assert.Equal(t, kind, entries[0].Kind)
	}
}
