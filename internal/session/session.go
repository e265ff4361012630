// Package session persists classified results so they can be analyzed and
// exported later.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/record"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// Session is one saved parse result.
type Session struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Format         format.Tag      `json:"format"`
	CreatedAt      time.Time       `json:"created_at"`
	Financial      record.Sequence `json:"financeiro"`
	Organizational record.Sequence `json:"organizacional"`
}

// Meta is the listing view of a session.
type Meta struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Format         format.Tag `json:"format"`
	CreatedAt      time.Time  `json:"created_at"`
	Financial      int        `json:"financeiro"`
	Organizational int        `json:"organizacional"`
}

// Store persists sessions. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// DefaultName names sessions created without one.
const DefaultName = "analise"

// New builds a session from a pipeline result with a fresh id.
func New(name string, res *pipeline.Result) *Session {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	s := &Session{
		ID:             uuid.NewString(),
		Name:           name,
		CreatedAt:      time.Now().UTC(),
		Financial:      record.Sequence{},
		Organizational: record.Sequence{},
	}
	if res != nil {
		s.Format = res.Format
		s.Financial = res.Financial
		s.Organizational = res.Organizational
	}
	return s
}

// Meta returns the listing view of s.
func (s *Session) Meta() Meta {
	return Meta{
		ID:             s.ID,
		Name:           s.Name,
		Format:         s.Format,
		CreatedAt:      s.CreatedAt,
		Financial:      len(s.Financial),
		Organizational: len(s.Organizational),
	}
}

// Bucket returns the records of kind.
func (s *Session) Bucket(k classify.Kind) record.Sequence {
	if k == classify.Financial {
		return s.Financial
	}
	return s.Organizational
}

// Result converts the session back into a pipeline result.
func (s *Session) Result() *pipeline.Result {
	return &pipeline.Result{Format: s.Format, Financial: s.Financial, Organizational: s.Organizational}
}

// validID accepts only uuids.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Open returns the store for backend ("file" or "sqlite") at location: a
// directory for file, a database path for sqlite.
func Open(backend, location string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "file", "json":
		st, err := NewFileStore(location)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite", "sqlite3":
		st, err := NewSQLiteStore(location)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q (use file|sqlite)", backend)
	}
}
