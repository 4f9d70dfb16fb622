package rounds

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/models"
)

type fakeRepo struct {
	listRounds []models.Round
	listErr    error

	upsertFn    func(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error)
	upsertCalls atomic.Int64

	deleteErr   error
	deleteCalls []uuid.UUID
}

func (f *fakeRepo) ListRoundsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Round, error) {
	return f.listRounds, f.listErr
}

func (f *fakeRepo) UpsertRounds(ctx context.Context, ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
	f.upsertCalls.Add(1)
	if f.upsertFn == nil {
		return nil, errors.New("unexpected upsert")
	}
	return f.upsertFn(ownerID, rounds)
}

func (f *fakeRepo) DeleteRound(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

// insertingUpsert mimics the database: every round without a remote id
// gets a fresh one, rows come back in input order.
func insertingUpsert(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
	written := make([]models.Round, len(rounds))
	for i, round := range rounds {
		if round.RemoteID == nil {
			id := uuid.New()
			round.RemoteID = &id
		}
		round.OwnerID = ownerID
		round.LocalID = ""
		written[i] = round
	}
	return written, nil
}

func newTestApp(repo RoundsRepository) *App {
	return NewApp(repo, clientid.NewGenerator(), DefaultBoardShape())
}

func TestLoadRoundsBootstrapsOnEmptyAndError(t *testing.T) {
	tests := []struct {
		name string
		repo *fakeRepo
	}{
		{name: "zero rounds stored", repo: &fakeRepo{}},
		{name: "fetch fails", repo: &fakeRepo{listErr: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.repo)
			owner := uuid.New()

			d := app.LoadRounds(context.Background(), owner)
			require.Equal(t, 1, d.Len())

			round := d.Rounds()[0]
			require.Equal(t, "Runde 1", round.Name)
			require.Nil(t, round.RemoteID)
			require.Equal(t, owner, round.OwnerID)
			require.Len(t, round.Content.Categories, 5)
			for i, category := range round.Content.Categories {
				require.Equal(t, fmt.Sprintf("Kategorie %d", i+1), category.Name)
				require.Len(t, category.Questions, 5)
				for q, question := range category.Questions {
					require.Equal(t, (q+1)*100, question.Points)
					require.Empty(t, question.Text)
					require.Empty(t, question.Answer)
				}
			}
		})
	}
}

func TestLoadRoundsWithoutPrincipal(t *testing.T) {
	app := newTestApp(&fakeRepo{})
	d := app.LoadRounds(context.Background(), uuid.Nil)
	require.Equal(t, 0, d.Len())
}

func TestLoadRoundsUsesStoredRounds(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	repo := &fakeRepo{listRounds: []models.Round{
		{LocalID: "round_1", RemoteID: &id, OwnerID: owner, Name: "Gespeichert"},
	}}
	app := newTestApp(repo)

	d := app.LoadRounds(context.Background(), owner)
	require.Equal(t, 1, d.Len())
	require.Equal(t, "Gespeichert", d.Rounds()[0].Name)
	require.Equal(t, &id, d.Rounds()[0].RemoteID)
}

func TestSaveAllAssignsIDsToNewRounds(t *testing.T) {
	repo := &fakeRepo{upsertFn: insertingUpsert}
	app := newTestApp(repo)
	owner := uuid.New()

	d := app.LoadRounds(context.Background(), owner)
	require.NoError(t, app.AddRound(d, owner))
	require.Equal(t, 2, d.Len())

	localIDs := []string{d.Rounds()[0].LocalID, d.Rounds()[1].LocalID}

	require.NoError(t, app.SaveAll(context.Background(), d, owner))

	first, second := d.Rounds()[0], d.Rounds()[1]
	require.NotNil(t, first.RemoteID)
	require.NotNil(t, second.RemoteID)
	require.NotEqual(t, *first.RemoteID, *second.RemoteID)

	// Local identities survive reconciliation.
	require.Equal(t, localIDs[0], first.LocalID)
	require.Equal(t, localIDs[1], second.LocalID)
}

func TestSaveAllNeverChangesExistingRemoteID(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()

	repo := &fakeRepo{upsertFn: func(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
		written := make([]models.Round, len(rounds))
		for i, round := range rounds {
			// The store rewrites name/content but keeps the key.
			round.Name = "serverseitig"
			written[i] = round
		}
		return written, nil
	}}
	app := newTestApp(repo)

	d := NewDraft([]models.Round{
		{LocalID: "round_1", RemoteID: &id, OwnerID: owner, Name: "Runde 1"},
	})

	require.NoError(t, app.SaveAll(context.Background(), d, owner))
	require.Equal(t, &id, d.Rounds()[0].RemoteID)
	require.Equal(t, "serverseitig", d.Rounds()[0].Name)
}

func TestSaveAllLeavesUnmatchedRoundsAlone(t *testing.T) {
	owner := uuid.New()
	repo := &fakeRepo{upsertFn: func(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
		// The store returns a row neither id- nor heuristic-matchable.
		id := uuid.New()
		return []models.Round{{RemoteID: &id, Name: "etwas anderes"}}, nil
	}}
	app := newTestApp(repo)

	d := app.LoadRounds(context.Background(), owner)
	require.NoError(t, app.SaveAll(context.Background(), d, owner))
	require.Nil(t, d.Rounds()[0].RemoteID)
	require.Equal(t, "Runde 1", d.Rounds()[0].Name)
}

func TestSaveAllStoreFailureLeavesDraftUntouched(t *testing.T) {
	owner := uuid.New()
	repo := &fakeRepo{upsertFn: func(uuid.UUID, []models.Round) ([]models.Round, error) {
		return nil, errors.New("permission denied for table question_rounds")
	}}
	app := newTestApp(repo)

	d := app.LoadRounds(context.Background(), owner)
	before := d.Rounds()

	err := app.SaveAll(context.Background(), d, owner)
	require.Error(t, err)
	require.Contains(t, err.Error(), "permission denied")
	require.Equal(t, before, d.Rounds())
	require.Nil(t, d.Rounds()[0].RemoteID)
}

func TestSaveAllGuards(t *testing.T) {
	app := newTestApp(&fakeRepo{})

	err := app.SaveAll(context.Background(), NewDraft(nil), uuid.Nil)
	require.ErrorIs(t, err, ErrNoPrincipal)

	err = app.SaveAll(context.Background(), NewDraft(nil), uuid.New())
	require.ErrorIs(t, err, ErrNoRounds)
}

func TestSaveAllRejectsConcurrentSave(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepo{upsertFn: func(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
		close(started)
		<-release
		return insertingUpsert(ownerID, rounds)
	}}
	app := newTestApp(repo)
	owner := uuid.New()
	d := app.LoadRounds(context.Background(), owner)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- app.SaveAll(context.Background(), d, owner)
	}()

	<-started
	err := app.SaveAll(context.Background(), NewDraft(d.Rounds()), owner)
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-firstDone)
	require.EqualValues(t, 1, repo.upsertCalls.Load())
}

func TestBusyGateIsPerOwner(t *testing.T) {
	ownerA, ownerB := uuid.New(), uuid.New()
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepo{upsertFn: func(ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
		if ownerID == ownerA {
			close(started)
			<-release
		}
		return insertingUpsert(ownerID, rounds)
	}}
	app := newTestApp(repo)

	draftA := app.LoadRounds(context.Background(), ownerA)
	draftB := app.LoadRounds(context.Background(), ownerB)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- app.SaveAll(context.Background(), draftA, ownerA)
	}()
	<-started

	// One owner's slow save does not block another owner.
	require.NoError(t, app.SaveAll(context.Background(), draftB, ownerB))
	require.NotNil(t, draftB.Rounds()[0].RemoteID)

	// The same owner is still gated.
	err := app.SaveAll(context.Background(), NewDraft(draftA.Rounds()), ownerA)
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-firstDone)
}

func TestDeleteRoundGuards(t *testing.T) {
	owner := uuid.New()
	app := newTestApp(&fakeRepo{})

	single := app.LoadRounds(context.Background(), owner)
	err := app.DeleteRound(context.Background(), single, owner, 0, true)
	require.ErrorIs(t, err, ErrLastRound)
	require.Equal(t, 1, single.Len())

	double := app.LoadRounds(context.Background(), owner)
	require.NoError(t, app.AddRound(double, owner))

	err = app.DeleteRound(context.Background(), double, owner, 0, false)
	require.ErrorIs(t, err, ErrNotConfirmed)
	require.Equal(t, 2, double.Len())

	err = app.DeleteRound(context.Background(), double, owner, 5, true)
	require.ErrorIs(t, err, ErrRoundNotFound)

	err = app.DeleteRound(context.Background(), double, uuid.Nil, 0, true)
	require.ErrorIs(t, err, ErrNoPrincipal)
}

func TestDeleteNeverSavedRoundSkipsRemote(t *testing.T) {
	owner := uuid.New()
	repo := &fakeRepo{}
	app := newTestApp(repo)

	d := app.LoadRounds(context.Background(), owner)
	require.NoError(t, app.AddRound(d, owner))

	require.NoError(t, app.DeleteRound(context.Background(), d, owner, 1, true))
	require.Empty(t, repo.deleteCalls)
	require.Equal(t, 1, d.Len())
}

func TestDeleteSavedRoundHitsRemoteFirst(t *testing.T) {
	owner := uuid.New()
	savedID := uuid.New()
	repo := &fakeRepo{}
	app := newTestApp(repo)

	d := NewDraft([]models.Round{
		{LocalID: "round_1", Name: "Runde 1"},
		{LocalID: "round_2", RemoteID: &savedID, Name: "Runde 2"},
	})

	require.NoError(t, app.DeleteRound(context.Background(), d, owner, 1, true))
	require.Equal(t, []uuid.UUID{savedID}, repo.deleteCalls)
	require.Equal(t, 1, d.Len())
	require.Equal(t, "Runde 1", d.Rounds()[0].Name)
}

func TestDeleteRemoteFailureKeepsRound(t *testing.T) {
	owner := uuid.New()
	savedID := uuid.New()
	repo := &fakeRepo{deleteErr: errors.New("row is locked")}
	app := newTestApp(repo)

	d := NewDraft([]models.Round{
		{LocalID: "round_1", Name: "Runde 1"},
		{LocalID: "round_2", RemoteID: &savedID, Name: "Runde 2"},
	})

	err := app.DeleteRound(context.Background(), d, owner, 1, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "row is locked")
	require.Equal(t, 2, d.Len())
}

func TestDeleteSelectedMiddleRound(t *testing.T) {
	owner := uuid.New()
	app := newTestApp(&fakeRepo{})

	d := app.LoadRounds(context.Background(), owner)
	require.NoError(t, app.AddRound(d, owner))
	require.NoError(t, app.AddRound(d, owner))
	d.Select(1)

	require.NoError(t, app.DeleteRound(context.Background(), d, owner, 1, true))
	require.Equal(t, 2, d.Len())
	require.Equal(t, 1, d.Selected())
	require.Equal(t, "Runde 3", d.Rounds()[1].Name)
}

func TestReconcileHeuristicSkipsRowsClaimedByID(t *testing.T) {
	knownID := uuid.New()
	freshID := uuid.New()

	local := []models.Round{
		{LocalID: "a", Name: "Runde 1", RemoteID: &knownID},
		{LocalID: "b", Name: "Runde 1"}, // same name, never saved
	}
	written := []models.Round{
		{RemoteID: &knownID, Name: "Runde 1"},
		{RemoteID: &freshID, Name: "Runde 1"},
	}

	out := reconcile(local, written)
	require.Equal(t, &knownID, out[0].RemoteID)
	require.Equal(t, &freshID, out[1].RemoteID)
	require.Equal(t, "a", out[0].LocalID)
	require.Equal(t, "b", out[1].LocalID)
}
