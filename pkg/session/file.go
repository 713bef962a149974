package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileState is the on-disk representation of the session
type fileState struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	Identity     *Identity `json:"identity,omitempty"`
}

// FileStore persists session state to a JSON file so it survives process
// restarts. Writes go through a temp file and rename, so readers never see a
// partial state. An fsnotify watcher reloads the file when another process
// sharing the credentials file rewrites it (e.g. a concurrent CLI invocation
// that refreshed the access token).
type FileStore struct {
	path string

	mu    sync.RWMutex
	state fileState

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileStore creates a file-backed store at path, loading existing state if
// the file is present. Watching starts immediately and stops on Close.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	s := &FileStore{
		path: path,
		done: make(chan struct{}),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory, not the file: rename-based writes replace the
	// inode and a file watch would go stale after the first update.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch credentials directory: %w", err)
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Close stops the file watcher
func (s *FileStore) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *FileStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				// Best effort: a malformed or vanished file is treated as
				// signed out rather than an error mid-session.
				_ = s.load()
			}
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.state = fileState{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupt state is indistinguishable from signed out
		state = fileState{}
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// flush writes the current state atomically. Caller holds the write lock.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

// Credentials returns the stored token pair
func (s *FileStore) Credentials() (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Credentials{
		AccessToken:  s.state.AccessToken,
		RefreshToken: s.state.RefreshToken,
	}, nil
}

// SetCredentials replaces the token pair
func (s *FileStore) SetCredentials(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = creds.AccessToken
	s.state.RefreshToken = creds.RefreshToken
	return s.flush()
}

// SetAccessToken replaces only the access token
func (s *FileStore) SetAccessToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = token
	return s.flush()
}

// Identity returns the cached identity
func (s *FileStore) Identity() (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Identity == nil {
		return nil, nil
	}
	clone := *s.state.Identity
	return &clone, nil
}

// SetIdentity caches the identity
func (s *FileStore) SetIdentity(identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity == nil {
		s.state.Identity = nil
	} else {
		clone := *identity
		s.state.Identity = &clone
	}
	return s.flush()
}

// LastActivity returns the last recorded activity time
func (s *FileStore) LastActivity() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastActivity, nil
}

// SetLastActivity records user activity
func (s *FileStore) SetLastActivity(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastActivity = t
	return s.flush()
}

// Clear removes all session state together. The file is rewritten once, so a
// crash cannot leave a token without its identity or vice versa.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fileState{}
	return s.flush()
}
