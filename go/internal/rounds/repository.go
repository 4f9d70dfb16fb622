package rounds

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/models"
	"github.com/mdahlke/jeoparty/go/internal/rounds/db"
	"github.com/mdahlke/jeoparty/go/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetRoundsByOwner(ctx context.Context, userID uuid.UUID) ([]db.QuestionRound, error)
	UpsertRound(ctx context.Context, arg db.UpsertRoundParams) (db.QuestionRound, error)
	DeleteRound(ctx context.Context, arg db.DeleteRoundParams) (int64, error)
}

// Repository implements round data access operations. The content payload
// is stored as JSONB; its shape is whatever the owner last saved and is
// not re-validated on the way back out.
type Repository struct {
	sqlDB   *sql.DB
	queries Querier
	gen     *clientid.Generator
}

// NewRepository creates a new rounds repository on top of an open
// database handle.
func NewRepository(sqlDB *sql.DB, gen *clientid.Generator) *Repository {
	return &Repository{
		sqlDB:   sqlDB,
		queries: db.New(sqlDB),
		gen:     gen,
	}
}

// ListRoundsByOwner returns the owner's rounds ordered by creation time
// ascending, each with a freshly minted local id.
func (r *Repository) ListRoundsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Round, error) {
	rows, err := r.queries.GetRoundsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}

	rounds := make([]models.Round, len(rows))
	for i, row := range rows {
		rounds[i] = r.rowToRound(row)
	}
	return rounds, nil
}

// UpsertRounds writes the whole batch in a single transaction, one upsert
// per round: a nil remote id inserts (the database assigns the key), a
// set one updates name and content in place. The written rows come back
// in input order; any failure rolls the whole batch back.
func (r *Repository) UpsertRounds(ctx context.Context, ownerID uuid.UUID, rounds []models.Round) ([]models.Round, error) {
	written := make([]models.Round, 0, len(rounds))

	err := sqlutil.Run(ctx, r.sqlDB,
		func(tx *sql.Tx) *db.Queries { return db.New(tx) },
		func(q *db.Queries) error {
			for _, round := range rounds {
				content, err := json.Marshal(round.Content)
				if err != nil {
					return fmt.Errorf("failed to marshal content for round %q: %w", round.Name, err)
				}

				row, err := q.UpsertRound(ctx, db.UpsertRoundParams{
					ID:      sqlutil.ToNullUUID(round.RemoteID),
					UserID:  ownerID,
					Name:    round.Name,
					Content: pqtype.NullRawMessage{RawMessage: content, Valid: len(content) > 0},
				})
				if err != nil {
					return fmt.Errorf("failed to upsert round %q: %w", round.Name, err)
				}
				written = append(written, r.rowToRound(row))
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// DeleteRound removes a round row, filtered by owner as well so one
// principal can never delete another's rounds. Zero affected rows is not
// an error; the row may already be gone.
func (r *Repository) DeleteRound(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	affected, err := r.queries.DeleteRound(ctx, db.DeleteRoundParams{
		ID:     id,
		UserID: ownerID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	if affected == 0 {
		log.Warn().Str("round_id", id.String()).Str("owner_id", ownerID.String()).
			Msg("delete matched no rows")
	}
	return nil
}

// rowToRound converts a database row to the domain model. Null or
// malformed content degrades to zero categories instead of failing the
// whole load.
func (r *Repository) rowToRound(row db.QuestionRound) models.Round {
	content := models.RoundContent{Categories: []models.Category{}}
	if row.Content.Valid && len(row.Content.RawMessage) > 0 {
		if err := json.Unmarshal(row.Content.RawMessage, &content); err != nil {
			log.Warn().Err(err).Str("round_id", row.ID.String()).
				Msg("stored round content is malformed, treating as empty")
			content = models.RoundContent{Categories: []models.Category{}}
		}
	}
	if content.Categories == nil {
		content.Categories = []models.Category{}
	}

	id := row.ID
	return models.Round{
		LocalID:  r.gen.Next("round"),
		RemoteID: &id,
		OwnerID:  row.UserID,
		Name:     row.Name,
		Content:  content,
	}
}
