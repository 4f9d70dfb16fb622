package editor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/auth"
	"github.com/mdahlke/jeoparty/go/internal/models"
	"github.com/mdahlke/jeoparty/go/internal/rounds"
)

// Handler exposes the editing session over REST. All routes sit behind
// the auth middleware; the principal always comes from the context.
type Handler struct {
	sessions *SessionManager
}

// NewHandler creates an editor Handler.
func NewHandler(sessions *SessionManager) *Handler {
	return &Handler{sessions: sessions}
}

// DraftView is the response body shared by all editing endpoints: the
// full draft after the operation.
type DraftView struct {
	Rounds   []models.Round       `json:"rounds"`
	Selected int                  `json:"selected"`
	Editor   *rounds.EditorBuffer `json:"editor,omitempty"`
}

// RegisterRoutes registers the editor routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rounds", h.handleGetRounds)
	mux.HandleFunc("POST /api/rounds", h.handleAddRound)
	mux.HandleFunc("PUT /api/rounds/select", h.handleSelect)
	mux.HandleFunc("PUT /api/rounds/name", h.handleSetRoundName)
	mux.HandleFunc("PUT /api/rounds/category-name", h.handleSetCategoryName)
	mux.HandleFunc("POST /api/rounds/save", h.handleSave)
	mux.HandleFunc("DELETE /api/rounds/{index}", h.handleDelete)
	mux.HandleFunc("POST /api/editor/open", h.handleEditorOpen)
	mux.HandleFunc("PUT /api/editor/draft", h.handleEditorDraft)
	mux.HandleFunc("POST /api/editor/commit", h.handleEditorCommit)
	mux.HandleFunc("POST /api/editor/discard", h.handleEditorDiscard)
}

func (h *Handler) handleGetRounds(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		return nil
	})
}

func (h *Handler) handleAddRound(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *rounds.Draft, p models.Principal) error {
		return h.app().AddRound(d, p.ID)
	})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.Select(req.Index)
		return nil
	})
}

func (h *Handler) handleSetRoundName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.SetRoundName(req.Index, req.Name)
		return nil
	})
}

func (h *Handler) handleSetCategoryName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoundIndex    int    `json:"round_index"`
		CategoryIndex int    `json:"category_index"`
		Name          string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.SetCategoryName(req.RoundIndex, req.CategoryIndex, req.Name)
		return nil
	})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *rounds.Draft, p models.Principal) error {
		return h.app().SaveAll(r.Context(), d, p.ID)
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid round index", http.StatusBadRequest)
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"

	h.withDraft(w, r, func(d *rounds.Draft, p models.Principal) error {
		return h.app().DeleteRound(r.Context(), d, p.ID, index, confirmed)
	})
}

func (h *Handler) handleEditorOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CategoryIndex int `json:"category_index"`
		QuestionIndex int `json:"question_index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.OpenEditor(req.CategoryIndex, req.QuestionIndex)
		return nil
	})
}

func (h *Handler) handleEditorDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field rounds.EditorField `json:"field"`
		Value string             `json:"value"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.UpdateDraft(req.Field, req.Value)
		return nil
	})
}

func (h *Handler) handleEditorCommit(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.CommitEditor()
		return nil
	})
}

func (h *Handler) handleEditorDiscard(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(d *rounds.Draft, _ models.Principal) error {
		d.DiscardEditor()
		return nil
	})
}

// withDraft runs fn against the caller's draft and writes the resulting
// draft view, or the mapped error.
func (h *Handler) withDraft(w http.ResponseWriter, r *http.Request, fn func(d *rounds.Draft, p models.Principal) error) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var view DraftView
	err := h.sessions.WithDraft(r.Context(), principal, func(d *rounds.Draft) error {
		if err := fn(d, principal); err != nil {
			return err
		}
		view = DraftView{
			Rounds:   d.Rounds(),
			Selected: d.Selected(),
			Editor:   d.Editor(),
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) app() RoundsApp {
	return h.sessions.app
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// writeError maps domain errors to status codes. Store failures keep
// their message: the user retries manually and needs to see why.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, rounds.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, rounds.ErrNoPrincipal):
		status = http.StatusUnauthorized
	case errors.Is(err, rounds.ErrNoRounds),
		errors.Is(err, rounds.ErrNotConfirmed),
		errors.Is(err, rounds.ErrRoundNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, rounds.ErrLastRound):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
