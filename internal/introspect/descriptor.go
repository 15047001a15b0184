// Package introspect keeps the panel's view of kernel dataframes in sync.
// It owns the introspection snippets sent to the kernel, the descriptor
// model they print, and the poller that refreshes the summary after every
// cell execution.
package introspect

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformed is returned when an introspection reply cannot be parsed as
// a descriptor list. Callers treat it as "no dataframes" and re-issue the
// tracker bootstrap.
var ErrMalformed = errors.New("malformed summary reply")

// ColumnDescriptor summarizes one dataframe column. The id is stable within
// and across polls and is the sole join key for column-level widgets.
type ColumnDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Dtype    string `json:"dtype"`
	NullPct  string `json:"nulls"`
	Distinct int    `json:"distinct"`
}

// FrameDescriptor summarizes one dataframe tracked in the kernel. Ids stay
// stable across polls for the same underlying dataframe; names and column
// sets may change between polls.
type FrameDescriptor struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Shape   string             `json:"shape"`
	Sampled bool               `json:"sampled,omitempty"`
	Columns []ColumnDescriptor `json:"columns"`
}

// ParseSummary decodes the stream text of an introspection reply into the
// descriptor list. Empty, "undefined" and undecodable replies all yield
// ErrMalformed; the caller self-heals rather than surfacing an error.
func ParseSummary(text string) ([]FrameDescriptor, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "undefined" || trimmed == "None" {
		return nil, ErrMalformed
	}

	var frames []FrameDescriptor
	if err := json.Unmarshal([]byte(trimmed), &frames); err != nil {
		return nil, ErrMalformed
	}
	for _, f := range frames {
		if f.ID == "" {
			return nil, ErrMalformed
		}
	}
	return frames, nil
}
