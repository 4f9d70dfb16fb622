package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdahlke/jeoparty/go/internal/dbconfig"
	"github.com/mdahlke/jeoparty/go/internal/models"
)

// SeedRound mirrors the JSON snapshot: a named round plus its full board
// content, stored as-is in the JSONB column.
type SeedRound struct {
	Name    string              `json:"name"`
	Content models.RoundContent `json:"content"`
}

func main() {
	file := flag.String("file", "go/internal/assets/rounds.json", "JSON snapshot to seed from")
	owner := flag.String("owner", os.Getenv("SEED_OWNER_ID"), "user id the rounds belong to")
	flag.Parse()

	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid owner id %q: %v\n", *owner, err)
		os.Exit(1)
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var rounds []SeedRound
	if err := json.Unmarshal(data, &rounds); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count. Seeding is idempotent per (owner, name): a
	// round the owner already has under that name is skipped.
	var (
		total    = len(rounds)
		inserted int
		skipped  int
		errs     int
	)

	for _, r := range rounds {
		content, err := json.Marshal(r.Content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error marshalling round %q: %v\n", r.Name, err)
			errs++
			continue
		}

		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO question_rounds (id, user_id, name, content)
            SELECT gen_random_uuid(), $1, $2, $3
            WHERE NOT EXISTS (
              SELECT 1 FROM question_rounds WHERE user_id = $1 AND name = $2
            )
        `,
			ownerID, r.Name, content,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting round %q: %v\n", r.Name, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Rounds seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
