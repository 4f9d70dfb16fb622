package rounds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/require"

	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/rounds/db"
)

type fakeQuerier struct {
	rows    []db.QuestionRound
	listErr error

	deleteAffected int64
	deleteErr      error
	deleteArgs     []db.DeleteRoundParams
}

func (f *fakeQuerier) GetRoundsByOwner(ctx context.Context, userID uuid.UUID) ([]db.QuestionRound, error) {
	return f.rows, f.listErr
}

func (f *fakeQuerier) UpsertRound(ctx context.Context, arg db.UpsertRoundParams) (db.QuestionRound, error) {
	return db.QuestionRound{}, errors.New("unexpected upsert")
}

func (f *fakeQuerier) DeleteRound(ctx context.Context, arg db.DeleteRoundParams) (int64, error) {
	f.deleteArgs = append(f.deleteArgs, arg)
	return f.deleteAffected, f.deleteErr
}

func newTestRepository(q Querier) *Repository {
	return &Repository{queries: q, gen: clientid.NewGenerator()}
}

func contentJSON(raw string) pqtype.NullRawMessage {
	return pqtype.NullRawMessage{RawMessage: []byte(raw), Valid: true}
}

func TestListRoundsByOwnerMapsRows(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	querier := &fakeQuerier{rows: []db.QuestionRound{
		{
			ID:        id,
			UserID:    owner,
			Name:      "Runde 1",
			Content:   contentJSON(`{"categories":[{"id":"cat_1","name":"Geographie","questions":[{"id":"q_1","text":"Hauptstadt?","answer":"Berlin","points":100}]}]}`),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}}
	repo := newTestRepository(querier)

	rounds, err := repo.ListRoundsByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, rounds, 1)

	round := rounds[0]
	require.Equal(t, &id, round.RemoteID)
	require.Equal(t, owner, round.OwnerID)
	require.Equal(t, "Runde 1", round.Name)
	require.NotEmpty(t, round.LocalID)
	require.Len(t, round.Content.Categories, 1)
	require.Equal(t, "Geographie", round.Content.Categories[0].Name)
	require.Equal(t, 100, round.Content.Categories[0].Questions[0].Points)
}

func TestListRoundsByOwnerMintsDistinctLocalIDs(t *testing.T) {
	owner := uuid.New()
	querier := &fakeQuerier{rows: []db.QuestionRound{
		{ID: uuid.New(), UserID: owner, Name: "Runde 1"},
		{ID: uuid.New(), UserID: owner, Name: "Runde 2"},
	}}
	repo := newTestRepository(querier)

	rounds, err := repo.ListRoundsByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	require.NotEqual(t, rounds[0].LocalID, rounds[1].LocalID)
}

func TestListRoundsByOwnerDegradesBadContent(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name    string
		content pqtype.NullRawMessage
	}{
		{name: "null content", content: pqtype.NullRawMessage{}},
		{name: "wrong type", content: contentJSON(`{"categories":42}`)},
		{name: "not json", content: contentJSON(`{{`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &fakeQuerier{rows: []db.QuestionRound{
				{ID: uuid.New(), UserID: owner, Name: "Runde 1", Content: tt.content},
			}}
			repo := newTestRepository(querier)

			rounds, err := repo.ListRoundsByOwner(context.Background(), owner)
			require.NoError(t, err)
			require.Len(t, rounds, 1)
			require.NotNil(t, rounds[0].Content.Categories)
			require.Empty(t, rounds[0].Content.Categories)
		})
	}
}

func TestListRoundsByOwnerWrapsError(t *testing.T) {
	querier := &fakeQuerier{listErr: errors.New("relation does not exist")}
	repo := newTestRepository(querier)

	_, err := repo.ListRoundsByOwner(context.Background(), uuid.New())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to list rounds")
}

func TestDeleteRoundScopesToOwner(t *testing.T) {
	querier := &fakeQuerier{deleteAffected: 1}
	repo := newTestRepository(querier)

	id, owner := uuid.New(), uuid.New()
	require.NoError(t, repo.DeleteRound(context.Background(), id, owner))
	require.Equal(t, []db.DeleteRoundParams{{ID: id, UserID: owner}}, querier.deleteArgs)
}

func TestDeleteRoundZeroRowsIsNotAnError(t *testing.T) {
	querier := &fakeQuerier{deleteAffected: 0}
	repo := newTestRepository(querier)

	require.NoError(t, repo.DeleteRound(context.Background(), uuid.New(), uuid.New()))
}
