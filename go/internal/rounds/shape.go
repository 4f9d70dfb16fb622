package rounds

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mdahlke/jeoparty/go/internal/clientid"
	"github.com/mdahlke/jeoparty/go/internal/models"
)

// BoardShape fixes the grid of a freshly created round. It only applies
// at creation time: rounds loaded from the database keep whatever shape
// was last saved and are never re-validated against it.
type BoardShape struct {
	Categories int `yaml:"categories"`
	Questions  int `yaml:"questions"`
	PointsStep int `yaml:"points_step"`
}

// DefaultBoardShape is the classic 5x5 board with 100-point steps.
func DefaultBoardShape() BoardShape {
	return BoardShape{
		Categories: 5,
		Questions:  5,
		PointsStep: 100,
	}
}

// NewRound builds the seed state for a brand-new round: deterministically
// named from its number, a full grid of empty questions, no remote id.
func NewRound(gen *clientid.Generator, shape BoardShape, roundNumber int, ownerID uuid.UUID) models.Round {
	categories := make([]models.Category, shape.Categories)
	for c := range categories {
		questions := make([]models.Question, shape.Questions)
		for q := range questions {
			questions[q] = models.Question{
				ID:     gen.Next("q"),
				Text:   "",
				Answer: "",
				Points: (q + 1) * shape.PointsStep,
			}
		}
		categories[c] = models.Category{
			ID:        gen.Next("cat"),
			Name:      fmt.Sprintf("Kategorie %d", c+1),
			Questions: questions,
		}
	}

	return models.Round{
		LocalID:  gen.Next("round"),
		RemoteID: nil,
		OwnerID:  ownerID,
		Name:     fmt.Sprintf("Runde %d", roundNumber),
		Content:  models.RoundContent{Categories: categories},
	}
}
