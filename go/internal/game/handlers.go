package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/auth"
	"github.com/mdahlke/jeoparty/go/internal/rounds"
)

// RoundsLoader supplies the board content a new game starts from.
type RoundsLoader interface {
	LoadRounds(ctx context.Context, ownerID uuid.UUID) *rounds.Draft
}

// Handler exposes game sessions over REST plus the WebSocket feed.
type Handler struct {
	games  *Manager
	loader RoundsLoader
	hub    *Hub
}

// NewHandler creates a game Handler.
func NewHandler(games *Manager, loader RoundsLoader, hub *Hub) *Handler {
	return &Handler{games: games, loader: loader, hub: hub}
}

// RegisterRoutes registers the authenticated game routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", h.handleCreate)
	mux.HandleFunc("GET /api/games/{id}", h.handleGet)
	mux.HandleFunc("POST /api/games/{id}/select", h.handleSelect)
	mux.HandleFunc("POST /api/games/{id}/reveal", h.handleReveal)
	mux.HandleFunc("POST /api/games/{id}/answer", h.handleAnswer)
}

// RegisterSocketRoutes registers the WebSocket endpoint. It is
// registered separately because game screens connect without a token.
func (h *Handler) RegisterSocketRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/game", h.handleSocket)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		TeamNames  []string `json:"team_names"`
		RoundIndex int      `json:"round_index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// The game plays whatever the owner last saved; the draft loader
	// falls back to a fresh (empty) board when nothing is stored yet.
	draft := h.loader.LoadRounds(r.Context(), principal.ID)
	allRounds := draft.Rounds()
	if req.RoundIndex < 0 || req.RoundIndex >= len(allRounds) {
		http.Error(w, "round index out of range", http.StatusBadRequest)
		return
	}

	session, err := h.games.CreateSession(principal.ID, req.TeamNames, allRounds[req.RoundIndex])
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.games.Snapshot(id)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	question, err := h.games.SelectQuestion(id, req.QuestionID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	question, err := h.games.RevealAnswer(id, req.QuestionID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req struct {
		QuestionID string `json:"question_id"`
		TeamIndex  *int   `json:"team_index"` // nil means nobody scored
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		session Session
		err     error
	)
	if req.TeamIndex != nil {
		session, err = h.games.AwardPoints(id, req.QuestionID, *req.TeamIndex)
	} else {
		session, err = h.games.NoAward(id, req.QuestionID)
	}
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("game_id")
	if idParam == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(idParam)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}
	if _, err := h.games.Snapshot(id); err != nil {
		writeGameError(w, err)
		return
	}
	if err := h.hub.Subscribe(w, r, id); err != nil {
		log.Error().Err(err).Str("game_id", id.String()).
			Msg("failed to subscribe game screen")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeGameError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrQuestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoTeams), errors.Is(err, ErrBlankTeamName), errors.Is(err, ErrTeamNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, ErrQuestionAnswered):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
