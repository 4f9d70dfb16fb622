// Package editor is the HTTP surface of the question editor: it holds one
// editing session per principal (the server-side draft the browser edits
// against) and exposes the draft, lifecycle and save operations as REST
// endpoints.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/models"
	"github.com/mdahlke/jeoparty/go/internal/rounds"
)

// RoundsApp defines what the editor needs from the rounds application.
type RoundsApp interface {
	LoadRounds(ctx context.Context, ownerID uuid.UUID) *rounds.Draft
	AddRound(d *rounds.Draft, ownerID uuid.UUID) error
	SaveAll(ctx context.Context, d *rounds.Draft, ownerID uuid.UUID) error
	DeleteRound(ctx context.Context, d *rounds.Draft, ownerID uuid.UUID, index int, confirmed bool) error
}

type session struct {
	mu      sync.Mutex
	draft   *rounds.Draft
	touched time.Time
}

// SessionManager keeps one editing session per principal. Sessions are
// created lazily on first touch (loading the owner's rounds, or a
// bootstrap round) and dropped again after sitting idle.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	app         RoundsApp
	clock       clockwork.Clock
	idleTimeout time.Duration
}

// NewSessionManager creates a SessionManager sweeping sessions idle for
// longer than idleTimeout.
func NewSessionManager(app RoundsApp, clock clockwork.Clock, idleTimeout time.Duration) *SessionManager {
	return &SessionManager{
		sessions:    make(map[uuid.UUID]*session),
		app:         app,
		clock:       clock,
		idleTimeout: idleTimeout,
	}
}

// WithDraft runs fn against the principal's draft, loading it first if
// no session exists yet. Each session is locked for the duration of fn,
// so draft mutations keep their run-to-completion semantics even with
// concurrent requests from the same principal.
func (m *SessionManager) WithDraft(ctx context.Context, principal models.Principal, fn func(d *rounds.Draft) error) error {
	s := m.sessionFor(ctx, principal)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = m.clock.Now()
	return fn(s.draft)
}

// Drop discards the principal's session, if any. The next touch reloads
// from the database.
func (m *SessionManager) Drop(principal models.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, principal.ID)
}

// Start runs the idle sweeper until ctx is cancelled.
func (m *SessionManager) Start(ctx context.Context) {
	ticker := m.clock.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Sweep()
		}
	}
}

// Sweep removes idle sessions and returns how many were dropped.
// Unsaved edits in a dropped session are lost, same as closing the
// browser tab.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-m.idleTimeout)
	dropped := 0
	for id, s := range m.sessions {
		if s.touched.Before(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("swept idle editor sessions")
	}
	return dropped
}

func (m *SessionManager) sessionFor(ctx context.Context, principal models.Principal) *session {
	m.mu.Lock()
	if s, ok := m.sessions[principal.ID]; ok {
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	// Load outside the map lock; the draft load may hit the database.
	draft := m.app.LoadRounds(ctx, principal.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[principal.ID]; ok {
		// Lost the race to another request, keep the first session.
		return s
	}
	s := &session{draft: draft, touched: m.clock.Now()}
	m.sessions[principal.ID] = s
	return s
}
