package session

import (
	"context"
	"log/slog"
	"sync"
)

// ResumeLoader restores a persisted résumé when a session is first created.
type ResumeLoader interface {
	LoadResume(ctx context.Context, userID string) (string, bool, error)
}

// Store keeps one session per user. Each user has an independent one-slot
// lock so a slow turn only delays that user's next message.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	loader   ResumeLoader
	logger   *slog.Logger
}

type entry struct {
	lock    chan struct{}
	session *Session
}

func NewStore(loader ResumeLoader, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: map[string]*entry{},
		loader:   loader,
		logger:   logger.With("component", "session-store"),
	}
}

func (s *Store) entryFor(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.sessions[userID]
	if !ok {
		item = &entry{lock: make(chan struct{}, 1)}
		s.sessions[userID] = item
	}
	return item
}

// Do runs fn with exclusive access to the user's session, creating it on
// first contact. Waiting for the lock honors ctx.
func (s *Store) Do(ctx context.Context, userID string, fn func(*Session) error) error {
	fresh, err := New(userID)
	if err != nil {
		return err
	}
	item := s.entryFor(fresh.UserID)
	select {
	case item.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-item.lock }()

	if item.session == nil {
		s.restoreResume(ctx, fresh)
		item.session = fresh
	}
	return fn(item.session)
}

func (s *Store) restoreResume(ctx context.Context, target *Session) {
	if s.loader == nil {
		return
	}
	text, ok, err := s.loader.LoadResume(ctx, target.UserID)
	if err != nil {
		s.logger.Warn("resume restore failed", "user_id", target.UserID, "error", err)
		return
	}
	if ok {
		target.Resume = text
	}
}

// Snapshot returns a copy of the user's session once any in-flight turn for
// that user has finished.
func (s *Store) Snapshot(ctx context.Context, userID string) (*Session, bool) {
	s.mu.Lock()
	item, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case item.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	defer func() { <-item.lock }()
	if item.session == nil {
		return nil, false
	}
	return item.session.Clone(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
