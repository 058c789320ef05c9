package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Store defines durable session persistence. User record and token are
// written as a pair, never one without the other, and cleared together.
type Store interface {
	Load() (Session, bool, error)
	Save(user User, token string) error
	SetChatTicket(ticketID string) error
	ClearChatTicket() error
	Clear() error
	Path() string
}

// FileStore keeps the session in a single JSON file so that reloads and
// separate processes observe the same logged-in state.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dataDir, "session.json")}, nil
}

// Path returns the backing file path, used by the cross-process watcher.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored session. A missing or corrupted file, or a file
// without a token, reads as "no session".
func (s *FileStore) Load() (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileStore) read() (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupted state reads as logged out rather than failing startup.
		return Session{}, false, nil
	}
	if !sess.LoggedIn() {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Save writes the user record and token together. Any previous chat
// marker belongs to the old login and is dropped.
func (s *FileStore) Save(user User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(Session{User: user, Token: token})
}

// SetChatTicket records the active chat ticket id for resumption.
func (s *FileStore) SetChatTicket(ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found, err := s.read()
	if err != nil {
		return err
	}
	if !found {
		return ErrNotLoggedIn
	}
	sess.ChatTicketID = ticketID
	return s.write(sess)
}

// ClearChatTicket removes the chat marker, keeping the session.
func (s *FileStore) ClearChatTicket() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, found, err := s.read()
	if err != nil || !found {
		return err
	}
	sess.ChatTicketID = ""
	return s.write(sess)
}

// Clear removes the whole session file: user, token and chat marker go
// together.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) write(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file then rename
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "session-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path)
}
