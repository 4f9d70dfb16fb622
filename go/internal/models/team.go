package models

// Team represents one playing team during a game session. Teams are
// session-scoped: they are never persisted, their id is minted when the
// session is created.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
