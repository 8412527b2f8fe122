// Package storage keeps the current ingestion session on disk between commands.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/store"
)

// SessionFilename is the session file inside the state directory
const SessionFilename = "session.json"

// ErrNoSession is returned by Get when no session has been saved yet
var ErrNoSession = errors.New("no session found")

type SessionStore struct {
	path    string
	session *models.Session
	mu      sync.RWMutex
}

// New returns a store backed by dir/session.json. Nothing is read until Get.
func New(dir string) *SessionStore {
	return &SessionStore{
		path: filepath.Join(dir, SessionFilename),
	}
}

// Path is the session file location.
func (s *SessionStore) Path() string {
	return s.path
}

// Get returns the cached session, loading it from disk on first use.
func (s *SessionStore) Get() (*models.Session, error) {
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()
	if session != nil {
		return session, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var loaded models.Session
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", s.path, err)
	}
	for i := range loaded.Items {
		if err := loaded.Items[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid session %s: %w", s.path, err)
		}
	}
	s.session = &loaded
	return s.session, nil
}

// GetOrCreate returns the saved session or a fresh IDLE one with the given id.
func (s *SessionStore) GetOrCreate(id string) (*models.Session, error) {
	session, err := s.Get()
	if errors.Is(err, ErrNoSession) {
		session = models.NewSession(id)
		s.mu.Lock()
		s.session = session
		s.mu.Unlock()
		return session, nil
	}
	return session, err
}

// Set caches session and writes it atomically.
func (s *SessionStore) Set(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := store.WriteJSONAtomic(s.path, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.session = session
	return nil
}

// Delete forgets the session and removes its file.
func (s *SessionStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
