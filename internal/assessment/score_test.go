package assessment

import (
	"errors"
	"testing"

	"telecare-session-service/internal/domain"
)

func choiceQuestions(correct ...string) []domain.Question {
	qs := make([]domain.Question, len(correct))
	for i, c := range correct {
		qs[i] = domain.Question{Kind: domain.KindChoice, CorrectAnswer: c}
	}
	return qs
}

func TestRevisionRetractsBeforeCrediting(t *testing.T) {
	card := NewScorecard(choiceQuestions("A"))

	// A (correct) -> X (wrong) -> A (correct) nets zero drift.
	if err := card.SelectChoice(0, "A"); err != nil {
		t.Fatal(err)
	}
	if card.Score() != 1 {
		t.Fatalf("score after correct = %d, want 1", card.Score())
	}
	if err := card.SelectChoice(0, "X"); err != nil {
		t.Fatal(err)
	}
	if card.Score() != 0 {
		t.Fatalf("score after revision to wrong = %d, want 0", card.Score())
	}
	if err := card.SelectChoice(0, "A"); err != nil {
		t.Fatal(err)
	}
	if card.Score() != 1 {
		t.Fatalf("score after revision back = %d, want 1", card.Score())
	}
}

func TestReselectingSameAnswerIsIdempotent(t *testing.T) {
	card := NewScorecard(choiceQuestions("A"))
	for i := 0; i < 3; i++ {
		if err := card.SelectChoice(0, "A"); err != nil {
			t.Fatal(err)
		}
	}
	if card.Score() != 1 {
		t.Fatalf("score = %d, want 1", card.Score())
	}
}

func TestScaleRevisionReplacesValue(t *testing.T) {
	card := NewScorecard([]domain.Question{{Kind: domain.KindScale, CorrectAnswer: "True"}})
	if err := card.SelectScale(0, 3); err != nil {
		t.Fatal(err)
	}
	if err := card.SelectScale(0, 1); err != nil {
		t.Fatal(err)
	}
	if card.ScaleScore() != 1 {
		t.Fatalf("scale score = %d, want 1", card.ScaleScore())
	}
	if card.Score() != 0 {
		t.Fatalf("choice score touched by scale item: %d", card.Score())
	}
}

func TestTotalCombinesBothScores(t *testing.T) {
	qs := choiceQuestions("A", "B")
	qs = append(qs, domain.Question{Kind: domain.KindScale, CorrectAnswer: "True"})
	card := NewScorecard(qs)
	if err := card.SelectChoice(0, "A"); err != nil {
		t.Fatal(err)
	}
	if err := card.SelectScale(2, 2); err != nil {
		t.Fatal(err)
	}
	if card.Total() != 3 {
		t.Fatalf("total = %d, want 3", card.Total())
	}
}

func TestOutOfRangeSelection(t *testing.T) {
	card := NewScorecard(choiceQuestions("A"))
	if err := card.SelectChoice(1, "A"); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("err = %v, want ErrQuestionOutOfRange", err)
	}
	if err := card.SelectScale(-1, 2); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("err = %v, want ErrQuestionOutOfRange", err)
	}
}
