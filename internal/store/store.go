// Package store is the content-addressed texture root: files are identified by
// the sha256 of their bytes and copied in at most once.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/himatts/LimePipeline-sub001/internal/naming"
)

// Action records what Ingest did with a source file
type Action string

const (
	ActionCopied         Action = "COPIED"
	ActionRelinkExisting Action = "RELINK_EXISTING"
)

// MaxDisambiguator bounds the _02.._NN suffix search for a free filename
const MaxDisambiguator = 99

const fallbackStem = "texture"

// ErrNoFreeName is returned when every disambiguated filename is taken by other content
var ErrNoFreeName = errors.New("no free destination filename")

// Result describes one ingested file
type Result struct {
	Hash     string `json:"sha256"`
	Size     int64  `json:"bytes"`
	Action   Action `json:"action"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// Store owns one texture root and its hash index for the duration of a run.
// It is not safe for concurrent use.
type Store struct {
	root  string
	index *HashIndex
	seen  map[string]string
}

// Open creates root if needed and loads its hash index.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create texture root %s: %w", root, err)
	}
	idx, err := LoadIndex(root)
	if err != nil {
		return nil, err
	}
	return &Store{
		root:  root,
		index: idx,
		seen:  make(map[string]string),
	}, nil
}

// Root is the texture root directory.
func (s *Store) Root() string {
	return s.root
}

// Index exposes the in-memory hash index.
func (s *Store) Index() *HashIndex {
	return s.index
}

// Ingest places the content of src into the store under a name derived from
// finalName, reusing any file that already holds the same bytes.
func (s *Store) Ingest(src string, finalName string) (Result, error) {
	hash, size, err := HashFile(src)
	if err != nil {
		return Result{}, err
	}
	res := Result{Hash: hash, Size: size}

	if name, ok := s.seen[hash]; ok {
		return s.reuse(res, name), nil
	}
	if name, ok := s.index.Lookup(hash, s.root); ok {
		s.seen[hash] = name
		return s.reuse(res, name), nil
	}

	name, existing, err := s.allocate(finalName, filepath.Ext(src), hash)
	if err != nil {
		return res, err
	}
	if existing {
		s.record(hash, name)
		return s.reuse(res, name), nil
	}

	dst := filepath.Join(s.root, name)
	if err := copyFile(src, dst); err != nil {
		return res, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return res, fmt.Errorf("failed to verify copy %s: %w", dst, err)
	}
	if info.Size() != size {
		_ = os.Remove(dst)
		return res, fmt.Errorf("copy verification failed for %s: expected %d bytes, found %d", dst, size, info.Size())
	}

	s.record(hash, name)
	res.Action = ActionCopied
	res.Filename = name
	res.Path = dst
	slog.Debug("Copied texture", "src", src, "dst", dst, "bytes", size)
	return res, nil
}

// Commit persists the hash index.
func (s *Store) Commit() error {
	return s.index.Save()
}

func (s *Store) reuse(res Result, name string) Result {
	res.Action = ActionRelinkExisting
	res.Filename = name
	res.Path = filepath.Join(s.root, name)
	return res
}

func (s *Store) record(hash string, name string) {
	s.seen[hash] = name
	s.index.Put(hash, name)
}

// allocate finds the first candidate name that is free or already holds hash.
// existing is true in the latter case.
func (s *Store) allocate(finalName string, ext string, hash string) (name string, existing bool, err error) {
	stem := naming.SafeFileStem(finalName)
	if stem == "" {
		stem = fallbackStem
	}

	for n := 1; n <= MaxDisambiguator; n++ {
		candidate := stem + ext
		if n > 1 {
			candidate = fmt.Sprintf("%s_%02d%s", stem, n, ext)
		}
		path := filepath.Join(s.root, candidate)

		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return candidate, false, nil
		} else if statErr != nil {
			return "", false, fmt.Errorf("failed to stat %s: %w", path, statErr)
		}

		if other, _, hashErr := HashFile(path); hashErr == nil && other == hash {
			return candidate, true, nil
		}
	}
	return "", false, fmt.Errorf("%w for %s%s after %d attempts", ErrNoFreeName, stem, ext, MaxDisambiguator)
}

// HashFile returns the hex sha256 and byte count of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// copyFile copies src to dst, refusing to overwrite an existing dst.
func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close destination: %w", err)
	}
	return nil
}
