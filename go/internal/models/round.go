package models

import (
	"github.com/google/uuid"
)

// Round is one full quiz board's worth of content, scoped to one owner.
//
// A round carries two identities: LocalID is minted client-side and only
// exists for the lifetime of the process (list keys, lookups before the
// round was ever persisted), RemoteID is the database primary key and is
// nil until the first successful save. The store never sees LocalID.
type Round struct {
	LocalID  string       `json:"local_id"`
	RemoteID *uuid.UUID   `json:"remote_id"`
	OwnerID  uuid.UUID    `json:"owner_id"`
	Name     string       `json:"name"`
	Content  RoundContent `json:"content"`
}

// Saved reports whether the round has been persisted at least once.
func (r Round) Saved() bool {
	return r.RemoteID != nil
}

// RoundContent is the structured payload stored in the round's JSONB column.
type RoundContent struct {
	Categories []Category `json:"categories"`
}

// Category is a named column of questions within a round. Categories are
// not rows of their own; they live inside the round's content payload and
// their ids are client-generated session keys.
type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Question is a single prompt/answer cell on the board.
type Question struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Points int    `json:"points"`
}

// Filled reports whether the question has a prompt; empty text is shown
// as an unfilled cell in the editor.
func (q Question) Filled() bool {
	return q.Text != ""
}
