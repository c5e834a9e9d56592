// Package fs keeps client sessions in a JSON file, one entry per server
// origin. It implements client.CredentialStore.
package fs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/panyam/authcore/client"
)

const fileVersion = 1

type sessionFile struct {
	Version  int                                 `json:"version"`
	Sessions map[string]*client.ServerCredential `json:"sessions"`
}

// Store is a client.CredentialStore backed by one file. Changes stay in
// memory until Save.
type Store struct {
	path string

	mu       sync.RWMutex
	sessions map[string]*client.ServerCredential
	dirty    bool
}

var _ client.CredentialStore = (*Store)(nil)

// DefaultPath is <user config dir>/<appName>/sessions.json, falling back to
// ~/.config when the platform has no config dir.
func DefaultPath(appName string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("locating config dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	if appName == "" {
		appName = "authcore"
	}
	return filepath.Join(dir, appName, "sessions.json"), nil
}

// Open loads the store at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, sessions: map[string]*client.ServerCredential{}}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, err
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.Version > fileVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", path, f.Version)
	}
	for k, v := range f.Sessions {
		if v != nil {
			s.sessions[k] = v
		}
	}
	return s, nil
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

// origin keys sessions by scheme and host; paths on the same server share
// one session.
func origin(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("server url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", serverURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host, nil
}

func (s *Store) GetCredential(serverURL string) (*client.ServerCredential, error) {
	key, err := origin(serverURL)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[key], nil
}

// SetCredential replaces the session for serverURL's origin. A nil cred
// removes it.
func (s *Store) SetCredential(serverURL string, cred *client.ServerCredential) error {
	if cred == nil {
		return s.RemoveCredential(serverURL)
	}
	key, err := origin(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = cred
	s.dirty = true
	return nil
}

func (s *Store) RemoveCredential(serverURL string) error {
	key, err := origin(serverURL)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; ok {
		delete(s.sessions, key)
		s.dirty = true
	}
	return nil
}

// ListServers returns the stored origins, sorted.
func (s *Store) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// Prune drops sessions that expired before now and reports how many went.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, cred := range s.sessions {
		if now.After(cred.ExpiresAt) {
			delete(s.sessions, k)
			n++
		}
	}
	if n > 0 {
		s.dirty = true
	}
	return n
}

// Save writes the store if it changed. The file is replaced by rename and is
// readable by its owner only.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(sessionFile{Version: fileVersion, Sessions: s.sessions}, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving sessions: %w", err)
	}
	s.dirty = false
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
