// Package game runs live game sessions: the teams playing, their scores,
// and which questions the board has already used up. Sessions are
// in-memory only, the server-side counterpart of what the old client kept
// in browser storage between screens.
package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/models"
)

var (
	ErrSessionNotFound  = errors.New("game session not found")
	ErrNoTeams          = errors.New("at least one team is required")
	ErrBlankTeamName    = errors.New("every team needs a name")
	ErrTeamNotFound     = errors.New("team index out of range")
	ErrQuestionNotFound = errors.New("question not found on this board")
	ErrQuestionAnswered = errors.New("question was already answered")
)

// Session is one running game: a board snapshot, the teams, and the set
// of spent questions. The board is copied from a round at creation time;
// later edits to the round do not reach a running game.
type Session struct {
	ID        uuid.UUID           `json:"id"`
	OwnerID   uuid.UUID           `json:"owner_id"`
	RoundName string              `json:"round_name"`
	Board     models.RoundContent `json:"board"`
	Teams     []models.Team       `json:"teams"`
	Answered  map[string]bool     `json:"answered"`

	touched time.Time
}

// Manager owns all running sessions. All state transitions go through it
// under its lock; events are pushed to the hub after the state change.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	gen         *clientid.Generator
	clock       clockwork.Clock
	idleTimeout time.Duration
	hub         *Hub
}

// NewManager creates a game session manager. hub may be nil when no
// screens need live updates (tests).
func NewManager(gen *clientid.Generator, clock clockwork.Clock, idleTimeout time.Duration, hub *Hub) *Manager {
	return &Manager{
		sessions:    make(map[uuid.UUID]*Session),
		gen:         gen,
		clock:       clock,
		idleTimeout: idleTimeout,
		hub:         hub,
	}
}

// CreateSession starts a game on the given round for the given teams.
// Every team needs a non-blank name; scores start at zero.
func (m *Manager) CreateSession(ownerID uuid.UUID, teamNames []string, round models.Round) (Session, error) {
	if len(teamNames) == 0 {
		return Session{}, ErrNoTeams
	}
	teams := make([]models.Team, len(teamNames))
	for i, name := range teamNames {
		if strings.TrimSpace(name) == "" {
			return Session{}, ErrBlankTeamName
		}
		teams[i] = models.Team{
			ID:    m.gen.Next("team"),
			Name:  name,
			Score: 0,
		}
	}

	s := &Session{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		RoundName: round.Name,
		Board:     round.Content,
		Teams:     teams,
		Answered:  make(map[string]bool),
		touched:   m.clock.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().Str("session_id", s.ID.String()).
		Str("round", round.Name).
		Int("teams", len(teams)).
		Msg("game session created")
	return snapshot(s), nil
}

// Snapshot returns a copy of the session's current state.
func (m *Manager) Snapshot(id uuid.UUID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	s.touched = m.clock.Now()
	return snapshot(s), nil
}

// SelectQuestion returns the question to present, rejecting cells the
// board already spent.
func (m *Manager) SelectQuestion(id uuid.UUID, questionID string) (models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.Question{}, ErrSessionNotFound
	}
	s.touched = m.clock.Now()

	question, ok := findQuestion(s.Board, questionID)
	if !ok {
		return models.Question{}, ErrQuestionNotFound
	}
	if s.Answered[questionID] {
		return models.Question{}, ErrQuestionAnswered
	}
	return question, nil
}

// RevealAnswer returns the question with its answer for the host screen
// and notifies subscribed screens. Revealing does not spend the cell;
// only scoring (or NoAward) does.
func (m *Manager) RevealAnswer(id uuid.UUID, questionID string) (models.Question, error) {
	m.mu.Lock()

	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.Question{}, ErrSessionNotFound
	}
	s.touched = m.clock.Now()

	question, ok := findQuestion(s.Board, questionID)
	if !ok {
		m.mu.Unlock()
		return models.Question{}, ErrQuestionNotFound
	}
	if s.Answered[questionID] {
		m.mu.Unlock()
		return models.Question{}, ErrQuestionAnswered
	}
	view := snapshot(s)
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.Broadcast(id, &Event{
			Type:       EventAnswerRevealed,
			SessionID:  id,
			QuestionID: questionID,
			Teams:      view.Teams,
			Timestamp:  m.clock.Now(),
		})
	}
	return question, nil
}

// AwardPoints gives the question's points to a team and marks the cell
// as spent.
func (m *Manager) AwardPoints(id uuid.UUID, questionID string, teamIndex int) (Session, error) {
	return m.resolve(id, questionID, &teamIndex)
}

// NoAward marks the question as spent without changing any score
// (nobody answered correctly).
func (m *Manager) NoAward(id uuid.UUID, questionID string) (Session, error) {
	return m.resolve(id, questionID, nil)
}

func (m *Manager) resolve(id uuid.UUID, questionID string, teamIndex *int) (Session, error) {
	m.mu.Lock()

	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	s.touched = m.clock.Now()

	question, ok := findQuestion(s.Board, questionID)
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrQuestionNotFound
	}
	if s.Answered[questionID] {
		m.mu.Unlock()
		return Session{}, ErrQuestionAnswered
	}

	eventType := EventQuestionAnswered
	if teamIndex != nil {
		if *teamIndex < 0 || *teamIndex >= len(s.Teams) {
			m.mu.Unlock()
			return Session{}, ErrTeamNotFound
		}
		s.Teams[*teamIndex].Score += question.Points
		eventType = EventScoreUpdated
	}
	s.Answered[questionID] = true

	view := snapshot(s)
	m.mu.Unlock()

	if m.hub != nil {
		m.hub.Broadcast(id, &Event{
			Type:       eventType,
			SessionID:  id,
			QuestionID: questionID,
			Teams:      view.Teams,
			Timestamp:  m.clock.Now(),
		})
	}
	return view, nil
}

// Start runs the idle sweeper until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
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

// Sweep drops sessions nobody touched within the idle timeout and
// returns how many were removed.
func (m *Manager) Sweep() int {
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
		log.Info().Int("dropped", dropped).Msg("swept idle game sessions")
	}
	return dropped
}

func snapshot(s *Session) Session {
	teams := append([]models.Team(nil), s.Teams...)
	answered := make(map[string]bool, len(s.Answered))
	for k, v := range s.Answered {
		answered[k] = v
	}
	return Session{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		RoundName: s.RoundName,
		Board:     s.Board,
		Teams:     teams,
		Answered:  answered,
	}
}

func findQuestion(board models.RoundContent, questionID string) (models.Question, bool) {
	for _, category := range board.Categories {
		for _, question := range category.Questions {
			if question.ID == questionID {
				return question, true
			}
		}
	}
	return models.Question{}, false
}
