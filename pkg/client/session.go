package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TokenPair is the persisted session. The JSON keys match what the web client keeps in
// localStorage.
type TokenPair struct {
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt"`
}

func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// SessionStore persists the token pair. Set replaces both tokens or neither.
type SessionStore interface {
	Get() (TokenPair, error)
	Set(pair TokenPair) error
	Clear() error
}

type MemorySessionStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

func NewMemorySessionStore(initial TokenPair) *MemorySessionStore {
	return &MemorySessionStore{pair: initial}
}

func (s *MemorySessionStore) Get() (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemorySessionStore) Set(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *MemorySessionStore) Clear() error {
	return s.Set(TokenPair{})
}

// FileSessionStore keeps the pair in a JSON file. Writes go to a temp file in the same
// directory and are renamed into place, so readers see the old pair or the new one.
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Get() (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return TokenPair{}, nil
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("read session: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode session: %w", err)
	}
	return pair, nil
}

func (s *FileSessionStore) Set(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
