package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// NotebookStore keeps the metadata inside an .ipynb file. The rest of the
// notebook is carried through untouched: the whole document is decoded,
// only metadata.dataclean is replaced, and everything is written back.
type NotebookStore struct {
	path string
	mu   sync.Mutex
}

// NewNotebookStore creates a store backed by the notebook at path.
func NewNotebookStore(path string) *NotebookStore {
	return &NotebookStore{path: path}
}

// Path returns the notebook file path, for watchers.
func (s *NotebookStore) Path() string {
	return s.path
}

// Load reads the dataclean metadata from the notebook. A notebook without
// the key yields a zero Document; a missing file is an error.
func (s *NotebookStore) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, meta, err := s.read()
	if err != nil {
		return Document{}, err
	}

	entry, ok := meta[Key]
	if !ok {
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(entry, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s metadata: %w", Key, err)
	}
	return doc, nil
}

// Save writes the document back under metadata.dataclean, preserving the
// rest of the notebook.
func (s *NotebookStore) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, meta, err := s.read()
	if err != nil {
		return err
	}

	entry, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	meta[Key] = entry

	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	raw["metadata"] = metaRaw

	out, err := json.MarshalIndent(raw, "", " ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	return os.WriteFile(s.path, out, 0o644)
}

// read decodes the notebook one level deep, keeping all sibling fields and
// metadata entries as raw JSON so they round-trip unmodified.
func (s *NotebookStore) read() (map[string]json.RawMessage, map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read notebook: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse notebook %s: %w", s.path, err)
	}

	meta := make(map[string]json.RawMessage)
	if entry, ok := raw["metadata"]; ok {
		if err := json.Unmarshal(entry, &meta); err != nil {
			return nil, nil, fmt.Errorf("parse notebook metadata: %w", err)
		}
	}
	return raw, meta, nil
}
