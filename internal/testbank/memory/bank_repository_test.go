package memory

import (
	"context"
	"testing"
	"time"

	"telecare-session-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.Assessment{
			"MMSE": sampleBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetAssessment(context.Background(), "MMSE"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetAssessment(context.Background(), "MMSE"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestUnknownBank(t *testing.T) {
	repo := NewBankRepository(NewStaticBankLoader(nil), time.Minute)
	if _, err := repo.GetAssessment(context.Background(), "nope"); err != domain.ErrAssessmentNotFound {
		t.Fatalf("expected ErrAssessmentNotFound, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadAssessment(ctx context.Context, name string) (domain.Assessment, error) {
	l.calls++
	return l.BankLoader.LoadAssessment(ctx, name)
}

func sampleBank() domain.Assessment {
	return domain.Assessment{
		Name: "MMSE",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Type:   "Orientation in time and space",
				Kind:   domain.KindChoice,
				Prompt: "What year is it?",
				Answers: map[string]string{
					"A": "This year", "B": "Last year",
				},
				CorrectAnswer: "A",
			},
		},
	}
}
