package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/history"
)

type scriptSender struct {
	sent []string
	err  error
}

func (s *scriptSender) Send(text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *scriptSender) last(t *testing.T) string {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return s.sent[len(s.sent)-1]
}

func threeItemBank() domain.Assessment {
	return domain.Assessment{
		Name: "MMSE",
		Questions: []domain.Question{
			{Type: "Language", Kind: domain.KindChoice, CorrectAnswer: "A"},
			{Type: "Language", Kind: domain.KindChoice, CorrectAnswer: "B"},
			{Type: "Language", Kind: domain.KindChoice, CorrectAnswer: "C"},
		},
	}
}

func TestProctorRunThroughThreeItems(t *testing.T) {
	sender := &scriptSender{}
	recorder := history.NewMemoryRecorder()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	p := NewProctor(sender, recorder, ProctorConfig{
		PatientName: "Alice",
		DoctorName:  "Dr. Bell",
		Now:         func() time.Time { return now },
	})

	if err := p.Start(threeItemBank()); err != nil {
		t.Fatal(err)
	}
	if sender.sent[0] != "start-test-MMSE" {
		t.Fatalf("start message = %q", sender.sent[0])
	}

	// Correct, then revised to wrong, on item 1.
	if err := p.SelectAnswer("A"); err != nil {
		t.Fatal(err)
	}
	if got := sender.last(t); got != "answer:0:A:1" {
		t.Fatalf("answer message = %q", got)
	}
	if err := p.SelectAnswer("X"); err != nil {
		t.Fatal(err)
	}
	if p.Score() != 0 {
		t.Fatalf("score after revision = %d, want 0", p.Score())
	}

	if err := p.Next(); err != nil {
		t.Fatal(err)
	}
	if got := sender.last(t); got != "next-question:1" {
		t.Fatalf("next message = %q", got)
	}
	if err := p.SelectAnswer("B"); err != nil {
		t.Fatal(err)
	}
	if err := p.Next(); err != nil {
		t.Fatal(err)
	}
	if err := p.SelectAnswer("D"); err != nil {
		t.Fatal(err)
	}
	if p.Score() != 1 {
		t.Fatalf("final running score = %d, want 1", p.Score())
	}

	rec, err := p.Complete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := sender.last(t); got != "complete-test-MMSE with:1" {
		t.Fatalf("complete message = %q", got)
	}
	if rec.Score != 1 || rec.TestName != "MMSE" || rec.PatientName != "Alice" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.Date.Equal(now) {
		t.Fatalf("record date = %v", rec.Date)
	}
	stored := recorder.Records()
	if len(stored) != 1 || stored[0].Score != 1 {
		t.Fatalf("recorded history %+v", stored)
	}
	if p.State() != StateComplete {
		t.Fatalf("state = %d", p.State())
	}
}

func TestProctorNavigationBounds(t *testing.T) {
	sender := &scriptSender{}
	p := NewProctor(sender, nil, ProctorConfig{})
	if err := p.Start(threeItemBank()); err != nil {
		t.Fatal(err)
	}
	if err := p.Previous(); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("previous at 0: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := p.Next(); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Next(); !errors.Is(err, domain.ErrQuestionOutOfRange) {
		t.Fatalf("next past end: %v", err)
	}
	if p.Index() != 2 {
		t.Fatalf("index = %d, want 2", p.Index())
	}
}

func TestProctorSendFailureSurfaces(t *testing.T) {
	sender := &scriptSender{err: domain.ErrChannelNotOpen}
	p := NewProctor(sender, nil, ProctorConfig{})
	if err := p.Start(threeItemBank()); !errors.Is(err, domain.ErrChannelNotOpen) {
		t.Fatalf("start err = %v, want ErrChannelNotOpen", err)
	}
	if p.State() != StateIdle {
		t.Fatalf("state advanced despite failed send")
	}
}

func TestProctorFoldsResponderAnswers(t *testing.T) {
	sender := &scriptSender{}
	p := NewProctor(sender, nil, ProctorConfig{})
	if err := p.Start(threeItemBank()); err != nil {
		t.Fatal(err)
	}
	if err := p.HandleMessage("answer:1:B:1"); err != nil {
		t.Fatal(err)
	}
	if p.Score() != 1 || p.Index() != 1 {
		t.Fatalf("score=%d index=%d after responder answer", p.Score(), p.Index())
	}
	// The wire score is advisory; a bogus one does not poison the card.
	if err := p.HandleMessage("answer:1:B:99"); err != nil {
		t.Fatal(err)
	}
	if p.Score() != 1 {
		t.Fatalf("score = %d after duplicate answer, want 1", p.Score())
	}
	if err := p.HandleMessage("garbage-command"); err != nil {
		t.Fatal(err)
	}
}

func TestProctorOperationsRequireActiveTest(t *testing.T) {
	p := NewProctor(&scriptSender{}, nil, ProctorConfig{})
	if p.Score() != 0 || p.ScaleScore() != 0 {
		t.Fatalf("idle scores = %d/%d, want 0/0", p.Score(), p.ScaleScore())
	}
	if err := p.SelectAnswer("A"); !errors.Is(err, domain.ErrTestNotActive) {
		t.Fatalf("select on idle: %v", err)
	}
	if _, err := p.Complete(context.Background()); !errors.Is(err, domain.ErrTestNotActive) {
		t.Fatalf("complete on idle: %v", err)
	}
	if err := p.End(); !errors.Is(err, domain.ErrTestNotActive) {
		t.Fatalf("end on idle: %v", err)
	}
}
