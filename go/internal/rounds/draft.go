package rounds

import "github.com/mdahlke/jeoparty/go/internal/models"

// EditorField selects which half of the editor buffer an update targets.
type EditorField string

const (
	FieldText   EditorField = "text"
	FieldAnswer EditorField = "answer"
)

// EditorBuffer holds the question currently open in the edit modal. There
// is at most one: opening a second question discards any unsaved first
// edit (single slot, not a stack).
type EditorBuffer struct {
	CategoryIndex int    `json:"category_index"`
	QuestionIndex int    `json:"question_index"`
	Text          string `json:"text"`
	Answer        string `json:"answer"`
}

// Draft is the editable in-memory state of one owner's rounds: the round
// list, the selected round, and the optional editor buffer.
//
// Mutations are structural copies: the round list, the affected round,
// category and question are replaced, everything untouched keeps its
// backing arrays, so a caller diffing two snapshots sees exactly what
// changed.
type Draft struct {
	rounds   []models.Round
	selected int
	editor   *EditorBuffer
}

// NewDraft wraps a round list with selection at 0.
func NewDraft(rounds []models.Round) *Draft {
	return &Draft{rounds: rounds}
}

// Rounds returns the current round list. Callers must treat it as
// read-only; all writes go through the draft operations.
func (d *Draft) Rounds() []models.Round {
	return d.rounds
}

// Len returns the number of rounds.
func (d *Draft) Len() int {
	return len(d.rounds)
}

// Selected returns the index of the current round, clamped into range.
func (d *Draft) Selected() int {
	return d.clamp(d.selected)
}

// Current returns the selected round, or false when the list is empty.
func (d *Draft) Current() (models.Round, bool) {
	if len(d.rounds) == 0 {
		return models.Round{}, false
	}
	return d.rounds[d.Selected()], true
}

// Editor returns the open editor buffer, or nil.
func (d *Draft) Editor() *EditorBuffer {
	return d.editor
}

// Select moves the selection. Out-of-range values are clamped, never
// rejected.
func (d *Draft) Select(index int) {
	d.selected = d.clamp(index)
}

// SetRoundName renames the round at index. Out-of-range is a no-op.
func (d *Draft) SetRoundName(index int, name string) {
	if index < 0 || index >= len(d.rounds) {
		return
	}
	rounds := append([]models.Round(nil), d.rounds...)
	rounds[index].Name = name
	d.rounds = rounds
}

// SetCategoryName renames a category inside a round's content.
// Out-of-range indexes are a no-op.
func (d *Draft) SetCategoryName(roundIndex, categoryIndex int, name string) {
	if roundIndex < 0 || roundIndex >= len(d.rounds) {
		return
	}
	round := d.rounds[roundIndex]
	if categoryIndex < 0 || categoryIndex >= len(round.Content.Categories) {
		return
	}

	categories := append([]models.Category(nil), round.Content.Categories...)
	categories[categoryIndex].Name = name
	round.Content = models.RoundContent{Categories: categories}

	rounds := append([]models.Round(nil), d.rounds...)
	rounds[roundIndex] = round
	d.rounds = rounds
}

// OpenEditor copies the target question of the selected round into the
// editor buffer. A previously open buffer is discarded. No round selected
// or indexes out of range is a silent no-op.
func (d *Draft) OpenEditor(categoryIndex, questionIndex int) {
	current, ok := d.Current()
	if !ok {
		return
	}
	if categoryIndex < 0 || categoryIndex >= len(current.Content.Categories) {
		return
	}
	category := current.Content.Categories[categoryIndex]
	if questionIndex < 0 || questionIndex >= len(category.Questions) {
		return
	}

	question := category.Questions[questionIndex]
	d.editor = &EditorBuffer{
		CategoryIndex: categoryIndex,
		QuestionIndex: questionIndex,
		Text:          question.Text,
		Answer:        question.Answer,
	}
}

// UpdateDraft updates one field of the open buffer. No-op without one.
func (d *Draft) UpdateDraft(field EditorField, value string) {
	if d.editor == nil {
		return
	}
	switch field {
	case FieldText:
		d.editor.Text = value
	case FieldAnswer:
		d.editor.Answer = value
	}
}

// CommitEditor writes the buffer back into the selected round's target
// question and clears the buffer. No-op without an open buffer.
func (d *Draft) CommitEditor() {
	if d.editor == nil {
		return
	}
	buf := *d.editor
	d.editor = nil

	index := d.Selected()
	if index >= len(d.rounds) {
		return
	}
	round := d.rounds[index]
	if buf.CategoryIndex >= len(round.Content.Categories) {
		return
	}
	category := round.Content.Categories[buf.CategoryIndex]
	if buf.QuestionIndex >= len(category.Questions) {
		return
	}

	questions := append([]models.Question(nil), category.Questions...)
	questions[buf.QuestionIndex].Text = buf.Text
	questions[buf.QuestionIndex].Answer = buf.Answer
	category.Questions = questions

	categories := append([]models.Category(nil), round.Content.Categories...)
	categories[buf.CategoryIndex] = category
	round.Content = models.RoundContent{Categories: categories}

	rounds := append([]models.Round(nil), d.rounds...)
	rounds[index] = round
	d.rounds = rounds
}

// DiscardEditor clears the buffer without writing.
func (d *Draft) DiscardEditor() {
	d.editor = nil
}

// replaceRounds swaps the whole round list, keeping the selection clamped.
func (d *Draft) replaceRounds(rounds []models.Round) {
	d.rounds = rounds
	d.selected = d.clamp(d.selected)
}

// appendRound adds a round and selects it.
func (d *Draft) appendRound(round models.Round) {
	d.rounds = append(append([]models.Round(nil), d.rounds...), round)
	d.selected = len(d.rounds) - 1
}

// removeRound drops the round at index and recomputes the selection: a
// deletion before the selection shifts it down, deleting the selection
// itself clamps to the same position in the shortened list.
func (d *Draft) removeRound(index int) {
	if index < 0 || index >= len(d.rounds) {
		return
	}
	selected := d.Selected()

	rounds := make([]models.Round, 0, len(d.rounds)-1)
	rounds = append(rounds, d.rounds[:index]...)
	rounds = append(rounds, d.rounds[index+1:]...)
	d.rounds = rounds

	switch {
	case index < selected:
		selected--
	case index == selected:
		selected = min(index, len(rounds)-1)
		selected = max(selected, 0)
	}
	d.selected = selected
}

func (d *Draft) clamp(index int) int {
	if len(d.rounds) == 0 {
		return 0
	}
	return max(0, min(index, len(d.rounds)-1))
}
