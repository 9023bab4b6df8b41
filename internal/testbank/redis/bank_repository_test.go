package redis

import (
	"context"
	"testing"
	"time"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/testbank/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string]domain.Assessment{
			"MMSE": sampleBank(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.GetAssessment(context.Background(), "MMSE")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if len(bank.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(bank.Questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("assessment:MMSE") {
		t.Fatalf("expected cached redis key")
	}

	// Second call hits the cache; the loader is not consulted again.
	if _, err := repo.GetAssessment(context.Background(), "MMSE"); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
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
				ID:            "q1",
				Type:          "Language",
				Kind:          domain.KindChoice,
				Prompt:        "Name this object",
				Answers:       map[string]string{"A": "Pencil", "B": "Watch"},
				CorrectAnswer: "A",
			},
		},
	}
}
