package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/testbank/memory"
)

func responderUnderTest(t *testing.T) (*Responder, *scriptSender) {
	t.Helper()
	sender := &scriptSender{}
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(map[string]domain.Assessment{
		"MMSE": threeItemBank(),
	}), time.Minute)
	return NewResponder(sender, banks), sender
}

func TestResponderFollowsProctor(t *testing.T) {
	r, sender := responderUnderTest(t)
	ctx := context.Background()

	if err := r.HandleMessage(ctx, "start-test-MMSE"); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateActive || r.Index() != 0 {
		t.Fatalf("state=%d index=%d after start", r.State(), r.Index())
	}

	if err := r.HandleMessage(ctx, "answer:0:A:1"); err != nil {
		t.Fatal(err)
	}
	if r.Score() != 1 {
		t.Fatalf("score = %d after proctor answer", r.Score())
	}

	if err := r.HandleMessage(ctx, "next-question:1"); err != nil {
		t.Fatal(err)
	}
	if r.Index() != 1 {
		t.Fatalf("index = %d, want 1", r.Index())
	}

	// The responder submits its own answer for the current item.
	if err := r.SelectAnswer("B"); err != nil {
		t.Fatal(err)
	}
	if got := sender.last(t); got != "answer:1:B:2" {
		t.Fatalf("submitted answer = %q", got)
	}

	if err := r.HandleMessage(ctx, "complete-test-MMSE with:2"); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateComplete || r.FinalScore() != 2 {
		t.Fatalf("state=%d final=%d after complete", r.State(), r.FinalScore())
	}
}

func TestResponderIgnoresOutOfRangeNavigation(t *testing.T) {
	r, _ := responderUnderTest(t)
	ctx := context.Background()
	if err := r.HandleMessage(ctx, "start-test-MMSE"); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleMessage(ctx, "next-question:9"); err != nil {
		t.Fatal(err)
	}
	if r.Index() != 0 {
		t.Fatalf("index moved to out-of-range position: %d", r.Index())
	}
}

func TestResponderUnknownCommandIsNoOp(t *testing.T) {
	r, _ := responderUnderTest(t)
	ctx := context.Background()
	if err := r.HandleMessage(ctx, "start-test-MMSE"); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleMessage(ctx, "totally-new-command:1:2"); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateActive {
		t.Fatalf("state changed by unknown command")
	}
}

func TestResponderEndResetsMachine(t *testing.T) {
	r, _ := responderUnderTest(t)
	ctx := context.Background()
	if err := r.HandleMessage(ctx, "start-test-MMSE"); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleMessage(ctx, "end-test-MMSE"); err != nil {
		t.Fatal(err)
	}
	if r.State() != StateIdle {
		t.Fatalf("state = %d after end", r.State())
	}
	if r.Score() != 0 {
		t.Fatalf("score = %d after end, want 0", r.Score())
	}
	if err := r.SelectAnswer("A"); !errors.Is(err, domain.ErrTestNotActive) {
		t.Fatalf("select after end: %v", err)
	}
}

func TestResponderStartUnknownBank(t *testing.T) {
	r, _ := responderUnderTest(t)
	err := r.HandleMessage(context.Background(), "start-test-Nope")
	if !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("err = %v, want ErrAssessmentNotFound", err)
	}
}
