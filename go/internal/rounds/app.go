package rounds

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/models"
)

// RoundsRepository defines what the app layer needs from the repository.
// UpsertRounds runs the whole batch in one transaction and returns the
// written rows in input order; a failure writes nothing.
type RoundsRepository interface {
	ListRoundsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Round, error)
	UpsertRounds(ctx context.Context, ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error)
	DeleteRound(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
}

// App orchestrates the round lifecycle (bootstrap, add, select, delete)
// and the save/load synchronization with the database.
type App struct {
	repo  RoundsRepository
	gen   *clientid.Generator
	shape BoardShape

	// busy gates save and delete per owner: at most one remote write
	// may be in flight for an owner's rows, a second caller gets
	// ErrBusy instead of racing. Other owners are unaffected.
	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

// NewApp creates a rounds App.
func NewApp(repo RoundsRepository, gen *clientid.Generator, shape BoardShape) *App {
	return &App{
		repo:  repo,
		gen:   gen,
		shape: shape,
		busy:  make(map[uuid.UUID]struct{}),
	}
}

func (a *App) acquire(ownerID uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, inFlight := a.busy[ownerID]; inFlight {
		return false
	}
	a.busy[ownerID] = struct{}{}
	return true
}

func (a *App) release(ownerID uuid.UUID) {
	a.mu.Lock()
	delete(a.busy, ownerID)
	a.mu.Unlock()
}

// LoadRounds fetches the owner's rounds ordered by creation time and wraps
// them in a fresh draft. A fetch error or an empty result degrades to a
// single bootstrap round rather than blocking the user. Without a
// principal the draft stays empty and bootstrap is disabled.
func (a *App) LoadRounds(ctx context.Context, ownerID uuid.UUID) *Draft {
	if ownerID == uuid.Nil {
		return NewDraft(nil)
	}

	loaded, err := a.repo.ListRoundsByOwner(ctx, ownerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID.String()).
			Msg("loading rounds failed, starting with a fresh round")
		return a.bootstrap(ownerID)
	}
	if len(loaded) == 0 {
		return a.bootstrap(ownerID)
	}
	return NewDraft(loaded)
}

// AddRound appends a fresh round numbered after the current list length
// and selects it.
func (a *App) AddRound(d *Draft, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return ErrNoPrincipal
	}
	d.appendRound(NewRound(a.gen, a.shape, d.Len()+1, ownerID))
	return nil
}

// SaveAll upserts every round of the draft in one batch and reconciles
// the written rows back into the draft, capturing server-assigned ids for
// newly inserted rounds. On any store failure the draft is left untouched
// and the store's message is surfaced.
func (a *App) SaveAll(ctx context.Context, d *Draft, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return ErrNoPrincipal
	}
	if d.Len() == 0 {
		return ErrNoRounds
	}
	if !a.acquire(ownerID) {
		return ErrBusy
	}
	defer a.release(ownerID)

	written, err := a.repo.UpsertRounds(ctx, ownerID, d.Rounds())
	if err != nil {
		return fmt.Errorf("saving rounds: %w", err)
	}

	d.replaceRounds(reconcile(d.Rounds(), written))
	log.Info().Int("rounds", d.Len()).Str("owner_id", ownerID.String()).
		Msg("rounds saved")
	return nil
}

// DeleteRound removes the round at index. The confirmation gate must have
// run; the last remaining round is never deletable. A round that was
// persisted is deleted from the database first (filtered by owner as
// well), and a store failure aborts without touching the draft. A round
// that never got a remote id is removed purely locally.
func (a *App) DeleteRound(ctx context.Context, d *Draft, ownerID uuid.UUID, index int, confirmed bool) error {
	if ownerID == uuid.Nil {
		return ErrNoPrincipal
	}
	if index < 0 || index >= d.Len() {
		return ErrRoundNotFound
	}
	if d.Len() <= 1 {
		return ErrLastRound
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if !a.acquire(ownerID) {
		return ErrBusy
	}
	defer a.release(ownerID)

	round := d.Rounds()[index]
	if round.RemoteID != nil {
		if err := a.repo.DeleteRound(ctx, *round.RemoteID, ownerID); err != nil {
			return fmt.Errorf("deleting round %q: %w", round.Name, err)
		}
	}

	d.removeRound(index)
	log.Info().Str("round", round.Name).Str("owner_id", ownerID.String()).
		Bool("was_saved", round.RemoteID != nil).
		Msg("round deleted")
	return nil
}

func (a *App) bootstrap(ownerID uuid.UUID) *Draft {
	return NewDraft([]models.Round{NewRound(a.gen, a.shape, 1, ownerID)})
}

// reconcile maps written rows back onto the local rounds. A round that
// already had a remote id matches its row exactly; a never-saved round is
// matched heuristically by (name, category count) against rows no local
// id claims. Unmatched rounds stay as they are, best effort.
//
// The heuristic is ambiguous when two new rounds share name and category
// count; written rows arrive in input order and matching is
// first-come-first-claimed, so the outcome is at least deterministic.
func reconcile(local, written []models.Round) []models.Round {
	claimedByID := make(map[uuid.UUID]bool, len(local))
	for _, lr := range local {
		if lr.RemoteID != nil {
			claimedByID[*lr.RemoteID] = true
		}
	}

	claimed := make(map[int]bool, len(written))
	out := make([]models.Round, len(local))
	for i, lr := range local {
		match := -1
		if lr.RemoteID != nil {
			for j := range written {
				if written[j].RemoteID != nil && *written[j].RemoteID == *lr.RemoteID {
					match = j
					break
				}
			}
		} else {
			for j := range written {
				if claimed[j] {
					continue
				}
				if written[j].RemoteID != nil && claimedByID[*written[j].RemoteID] {
					continue
				}
				if written[j].Name == lr.Name &&
					len(written[j].Content.Categories) == len(lr.Content.Categories) {
					match = j
					claimed[j] = true
					break
				}
			}
		}

		if match >= 0 {
			row := written[match]
			lr.RemoteID = row.RemoteID
			lr.OwnerID = row.OwnerID
			lr.Name = row.Name
			lr.Content = row.Content
		}
		out[i] = lr
	}
	return out
}
