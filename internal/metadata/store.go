// Package metadata persists panel state into the host document's metadata
// area. For Jupyter documents that is the notebook's own metadata section,
// under a single top-level key, so layout survives reloads alongside the
// notebook itself.
package metadata

// Key is the top-level document metadata key owned by this tool.
const Key = "dataclean"

// Position is the persisted panel geometry. Values are CSS lengths as the
// client reported them; absent fields stay at their defaults.
type Position struct {
	Left   string `json:"left,omitempty"`
	Top    string `json:"top,omitempty"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
	Right  string `json:"right,omitempty"`
}

// KernelsConfig is the document-local kernel connection override. It is
// merged over the process-wide configuration at init.
type KernelsConfig struct {
	ServerURL string `json:"server_url,omitempty"`
	Token     string `json:"token,omitempty"`
	KernelID  string `json:"kernel_id,omitempty"`
}

// Document is the metadata blob stored under Key.
type Document struct {
	WindowDisplay bool          `json:"window_display"`
	Collapsed     bool          `json:"collapsed,omitempty"`
	Position      Position      `json:"position,omitzero"`
	KernelsConfig KernelsConfig `json:"kernels_config,omitzero"`
}

// Store reads and writes the document metadata. Save is called on every
// layout mutation, so implementations must be safe for concurrent use.
type Store interface {
	Load() (Document, error)
	Save(Document) error
}
