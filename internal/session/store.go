// Package session provides the in-memory arena of active conversations,
// per-session turn serialization, and TTL eviction.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairlend/advisor/internal/domain"
)

// ErrNotFound is returned for unknown session ids. Callers recover by
// starting a fresh session.
var ErrNotFound = errors.New("session not found")

// EvictionCallback is invoked after the sweeper removes an idle session,
// with the final conversation snapshot.
type EvictionCallback func(conv *domain.Conversation)

// entry pairs a conversation with the mutex that serializes its turns.
// The mutex is held for a whole turn, including the external capability
// calls, so two messages for one session can never interleave. evicting
// is set under the mutex once the entry has been removed from the arena;
// a turn that raced the removal observes it and reports not-found.
type entry struct {
	mu       sync.Mutex
	conv     *domain.Conversation
	evicting bool
}

// Store owns every active conversation. Different sessions are fully
// independent; the store's own lock only guards the arena map and is
// never held across a turn.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Create allocates a new conversation with a fresh opaque id.
func (s *Store) Create(channel domain.Channel) (*domain.Conversation, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	conv := domain.NewConversation(id, channel)

	s.mu.Lock()
	s.sessions[id] = &entry{conv: conv}
	s.mu.Unlock()

	slog.Info("session created", "session_id", id, "channel", channel)
	return conv, nil
}

// WithSession runs fn with exclusive ownership of the conversation. The
// per-session lock is held for the whole call, which is what serializes
// concurrent messages for the same session.
func (s *Store) WithSession(sessionID string, fn func(conv *domain.Conversation) error) error {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicting {
		return ErrNotFound
	}
	return fn(e.conv)
}

// Snapshot returns a deep copy of the conversation for read-only use
// (analytics, reporting) without blocking the session's turn lock longer
// than the copy takes.
func (s *Store) Snapshot(sessionID string) (*domain.Conversation, error) {
	var snap *domain.Conversation
	err := s.WithSession(sessionID, func(conv *domain.Conversation) error {
		snap = cloneConversation(conv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes a session and returns its final conversation state.
func (s *Store) Delete(sessionID string) (*domain.Conversation, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	// Wait for any in-flight turn to finish before handing the state out.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicting = true
	slog.Info("session deleted", "session_id", sessionID, "stage", e.conv.Stage)
	return e.conv, nil
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

const sweepInterval = time.Minute

// StartTTLWorker runs a background goroutine that periodically evicts
// sessions idle longer than ttl.
func (s *Store) StartTTLWorker(ctx context.Context, ttl time.Duration, onEvict EvictionCallback) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("session TTL worker started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				s.sweep(ttl, onEvict)
			case <-ctx.Done():
				slog.Info("session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (s *Store) sweep(ttl time.Duration, onEvict EvictionCallback) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	evicted := 0
	for _, id := range ids {
		s.mu.RLock()
		e, ok := s.sessions[id]
		s.mu.RUnlock()
		if !ok {
			continue
		}

		// Conversation fields are only safe to read under the session
		// lock. A session with a turn in flight is not idle; skip it.
		if !e.mu.TryLock() {
			continue
		}
		if e.evicting || !e.conv.IdleFor(ttl) {
			e.mu.Unlock()
			continue
		}
		// Removing the entry while still holding its lock makes eviction
		// atomic with the idle check: a racing turn either landed before
		// it and bumped the activity timestamp, or observes not-found.
		e.evicting = true
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		conv := e.conv
		e.mu.Unlock()

		evicted++
		slog.Info("session evicted", "session_id", id, "stage", conv.Stage)
		if onEvict != nil {
			onEvict(conv)
		}
	}

	if evicted > 0 {
		slog.Info("session TTL sweep completed", "evicted", evicted)
	}
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "sess_" + hex.EncodeToString(buf), nil
}

func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	cp := *conv
	cp.History = append([]domain.Turn(nil), conv.History...)
	cp.Data = make(map[string]any, len(conv.Data))
	for k, v := range conv.Data {
		cp.Data[k] = v
	}
	cp.Documents = make(map[string]bool, len(conv.Documents))
	for k, v := range conv.Documents {
		cp.Documents[k] = v
	}
	return &cp
}
