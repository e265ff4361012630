package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KaramelBytes/tallyloom/internal/utils"
)

const sessionExt = ".json"

// FileStore keeps one JSON document per session in a directory.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the storage directory.
func (st *FileStore) Dir() string { return st.dir }

func (st *FileStore) path(id string) string { return filepath.Join(st.dir, id+sessionExt) }

// Save writes the session atomically, replacing any previous version.
func (st *FileStore) Save(_ context.Context, s *Session) error {
	if s == nil || !validID(s.ID) {
		return errors.New("session id must be a uuid")
	}
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return utils.SafeWriteFile(st.path(s.ID), data)
}

// Load reads a session by id.
func (st *FileStore) Load(_ context.Context, id string) (*Session, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return readSession(st.path(id))
}

func readSession(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// List returns every stored session, oldest first. Unreadable files are
// skipped.
func (st *FileStore) List(_ context.Context) ([]Meta, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	out := []Meta{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionExt) {
			continue
		}
		if !validID(strings.TrimSuffix(e.Name(), sessionExt)) {
			continue
		}
		s, err := readSession(filepath.Join(st.dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, s.Meta())
	}
	sortMetas(out)
	return out, nil
}

// Delete removes a session.
func (st *FileStore) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.Remove(st.path(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Clear removes every session file and leaves other files alone.
func (st *FileStore) Clear(_ context.Context) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sessionExt) || !validID(strings.TrimSuffix(name, sessionExt)) {
			continue
		}
		if err := os.Remove(filepath.Join(st.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear sessions: %w", err)
		}
	}
	return nil
}

// Close is a no-op for the file store.
func (st *FileStore) Close() error { return nil }

func sortMetas(ms []Meta) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}
