package assessment

import (
	"strconv"

	"telecare-session-service/internal/domain"
)

// Scorecard tracks the answers recorded per question index and keeps two
// running scores: one for choice items and one for scale items. Revising an
// answer retracts the old contribution before applying the new one, so the
// scores stay a pure function of the recorded answers.
type Scorecard struct {
	questions    []domain.Question
	answers      map[int]string
	scaleAnswers map[int]int
	score        int
	scaleScore   int
}

func NewScorecard(questions []domain.Question) *Scorecard {
	return &Scorecard{
		questions:    questions,
		answers:      make(map[int]string),
		scaleAnswers: make(map[int]int),
	}
}

// SelectChoice records option as the answer for question index. Selecting the
// same option twice is idempotent; changing the answer first retracts the
// previous one's point, then credits the new one if correct.
func (c *Scorecard) SelectChoice(index int, option string) error {
	if index < 0 || index >= len(c.questions) {
		return domain.ErrQuestionOutOfRange
	}
	prev, answered := c.answers[index]
	if answered && prev == option {
		return nil
	}
	correct := c.questions[index].CorrectAnswer
	if answered && prev == correct {
		c.score--
	}
	if option == correct {
		c.score++
	}
	c.answers[index] = option
	return nil
}

// SelectScale records a numeric (0-3) value for a scale item. Revision
// subtracts the old value and adds the new one.
func (c *Scorecard) SelectScale(index, value int) error {
	if index < 0 || index >= len(c.questions) {
		return domain.ErrQuestionOutOfRange
	}
	if prev, answered := c.scaleAnswers[index]; answered {
		c.scaleScore -= prev
	}
	c.scaleScore += value
	c.scaleAnswers[index] = value
	return nil
}

// Score is the running choice-item score.
func (c *Scorecard) Score() int { return c.score }

// ScaleScore is the running scale-item score, kept separate from Score.
func (c *Scorecard) ScaleScore() int { return c.scaleScore }

// Total is the combined final score.
func (c *Scorecard) Total() int { return c.score + c.scaleScore }

// Answer returns the recorded answer for index, scale values rendered as
// their decimal string.
func (c *Scorecard) Answer(index int) (string, bool) {
	if v, ok := c.answers[index]; ok {
		return v, true
	}
	if v, ok := c.scaleAnswers[index]; ok {
		return strconv.Itoa(v), true
	}
	return "", false
}

// Len is the number of questions on the card.
func (c *Scorecard) Len() int { return len(c.questions) }

// Question returns the item at index.
func (c *Scorecard) Question(index int) (domain.Question, error) {
	if index < 0 || index >= len(c.questions) {
		return domain.Question{}, domain.ErrQuestionOutOfRange
	}
	return c.questions[index], nil
}
