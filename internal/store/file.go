package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileTermsStore persists terms acceptance as a JSON map of session ID to time.
type FileTermsStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTermsStore(path string) *FileTermsStore {
	return &FileTermsStore{path: path}
}

func (f *FileTermsStore) HasAccepted(_ context.Context, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return false, err
	}
	_, ok := m[sessionID]
	return ok, nil
}

func (f *FileTermsStore) Accept(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return err
	}
	m[sessionID] = time.Now().UTC()
	return f.writeLocked(m)
}

func (f *FileTermsStore) Revoke(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return err
	}
	if _, ok := m[sessionID]; !ok {
		return nil
	}
	delete(m, sessionID)
	return f.writeLocked(m)
}

func (f *FileTermsStore) readLocked() (map[string]time.Time, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]time.Time{}, nil
		}
		return nil, err
	}
	m := map[string]time.Time{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode terms file: %w", err)
	}
	return m, nil
}

func (f *FileTermsStore) writeLocked(m map[string]time.Time) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
