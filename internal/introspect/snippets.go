package introspect

import (
	"fmt"
	"regexp"
)

// trackerVar names the kernel-side tracker object. The leading underscore
// keeps it out of the tracker's own dataframe scan.
const trackerVar = "_dataclean_tracker"

// BootstrapSnippet creates the kernel-side tracker if it does not exist.
// Creation is guarded by an existence check so concurrent polls that both
// issue it stay idempotent.
const BootstrapSnippet = `try:
    ` + trackerVar + `
except NameError:
    from dataclean import DataCleaner
    ` + trackerVar + ` = DataCleaner()
`

// SummarySnippet is the fixed introspection command: it bootstraps the
// tracker and prints the serialized descriptor list on the stream channel.
const SummarySnippet = BootstrapSnippet + `print(` + trackerVar + `.dataframe_metadata())
`

// validID matches the opaque ids the tracker emits (CPython object ids,
// optionally suffixed). Ids are interpolated into code sent to the kernel,
// so anything else is rejected.
var validID = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// pyID renders an id as a Python string literal. Ids are opaque: embedding
// them bare would let Python re-read them as tokens ("1_0" is the integer
// 10), so the tracker keys its managers by the string form.
func pyID(id string) string {
	return `"` + id + `"`
}

// ValidID reports whether id is safe to embed in a kernel snippet.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

// ColumnWidgetSnippet renders the interactive widget for one column.
// Returns an error for ids that cannot be safely embedded.
func ColumnWidgetSnippet(frameID, columnID string) (string, error) {
	if !ValidID(frameID) || !ValidID(columnID) {
		return "", fmt.Errorf("invalid widget target %q/%q", frameID, columnID)
	}
	return fmt.Sprintf("%s.manager_for_id(%s).column_widget(%s)\n", trackerVar, pyID(frameID), pyID(columnID)), nil
}

// PipelineWidgetSnippet renders the cleaning-pipeline widget for one frame.
func PipelineWidgetSnippet(frameID string) (string, error) {
	if !ValidID(frameID) {
		return "", fmt.Errorf("invalid widget target %q", frameID)
	}
	return fmt.Sprintf("%s.manager_for_id(%s).dataframe_widget\n", trackerVar, pyID(frameID)), nil
}

// PipelineStepsSnippet prints the frame's pipeline steps as JSON, used to
// export the pipeline as a standalone script.
func PipelineStepsSnippet(frameID string) (string, error) {
	if !ValidID(frameID) {
		return "", fmt.Errorf("invalid pipeline target %q", frameID)
	}
	return fmt.Sprintf("print(%s.manager_for_id(%s).pipeline_metadata())\n", trackerVar, pyID(frameID)), nil
}
