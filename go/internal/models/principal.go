package models

import "github.com/google/uuid"

// Principal is the authenticated user an access token resolves to.
// Every round row is owned by exactly one principal; rounds are never
// visible across owners.
type Principal struct {
	ID uuid.UUID `json:"id"`
}
