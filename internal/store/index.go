package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// IndexFilename is the name of the hash index inside the texture root
const IndexFilename = ".texture_index.json"

const indexVersion = 1

// HashIndex maps sha256 hex digests to filenames inside one texture root
type HashIndex struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Files     map[string]string `json:"sha256_to_file"`

	path string
}

// LoadIndex reads the index for root. A missing file yields an empty index.
func LoadIndex(root string) (*HashIndex, error) {
	path := filepath.Join(root, IndexFilename)
	idx := &HashIndex{
		Version: indexVersion,
		Files:   make(map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hash index: %w", err)
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("failed to parse hash index %s: %w", path, err)
	}
	if idx.Files == nil {
		idx.Files = make(map[string]string)
	}
	idx.path = path
	slog.Debug("Loaded hash index", "path", path, "entries", len(idx.Files))
	return idx, nil
}

// Path is where the index is persisted.
func (i *HashIndex) Path() string {
	return i.path
}

// Lookup returns the indexed filename for hash if the file is still present
// directly under root. Entries that name a path are ignored.
func (i *HashIndex) Lookup(hash string, root string) (string, bool) {
	name, ok := i.Files[hash]
	if !ok || name == "" {
		return "", false
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		slog.Warn("Ignoring index entry outside the texture root", "hash", hash, "file", name)
		return "", false
	}
	if _, err := os.Stat(filepath.Join(root, name)); err != nil {
		slog.Debug("Indexed file is gone", "hash", hash, "file", name)
		return "", false
	}
	return name, true
}

// Put records hash -> filename.
func (i *HashIndex) Put(hash string, filename string) {
	i.Files[hash] = filename
}

// Len is the number of entries.
func (i *HashIndex) Len() int {
	return len(i.Files)
}

// Save persists the whole index with a temp-file rename.
func (i *HashIndex) Save() error {
	i.Version = indexVersion
	i.UpdatedAt = time.Now().UTC()
	if err := WriteJSONAtomic(i.path, i); err != nil {
		return fmt.Errorf("failed to save hash index: %w", err)
	}
	return nil
}
