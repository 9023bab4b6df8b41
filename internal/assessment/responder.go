package assessment

import (
	"context"
	"strconv"

	"telecare-session-service/internal/domain"
)

// BankProvider fetches an assessment bank by name. Satisfied by the testbank
// repositories.
type BankProvider interface {
	GetAssessment(ctx context.Context, name string) (domain.Assessment, error)
}

// Responder mirrors a proctor-driven test. It never navigates on its own; it
// follows next-question messages, folds in the proctor's answers, and submits
// its own answers back over the channel.
type Responder struct {
	sender Sender
	banks  BankProvider

	state      State
	bank       domain.Assessment
	card       *Scorecard
	index      int
	finalScore int
}

func NewResponder(sender Sender, banks BankProvider) *Responder {
	return &Responder{sender: sender, banks: banks}
}

// HandleMessage applies one proctor-originated command. Unrecognized commands
// and out-of-range indexes are ignored rather than failing the session.
func (r *Responder) HandleMessage(ctx context.Context, raw string) error {
	m := Decode(raw)
	switch m.Kind {
	case MsgStartTest:
		bank, err := r.banks.GetAssessment(ctx, m.TestName)
		if err != nil {
			return err
		}
		bank.Questions = SortByCategory(bank.Questions)
		r.bank = bank
		r.card = NewScorecard(bank.Questions)
		r.index = 0
		r.finalScore = 0
		r.state = StateActive
	case MsgNextQuestion:
		if r.state == StateActive && m.Index >= 0 && m.Index < r.card.Len() {
			r.index = m.Index
		}
	case MsgAnswer:
		if r.state == StateActive {
			if err := r.card.SelectChoice(m.Index, m.Value); err == nil {
				r.index = m.Index
			}
		}
	case MsgAnswerScale:
		if r.state == StateActive {
			if value, err := strconv.Atoi(m.Value); err == nil {
				if err := r.card.SelectScale(m.Index, value); err == nil {
					r.index = m.Index
				}
			}
		}
	case MsgCompleteTest:
		if r.state == StateActive {
			r.finalScore = m.Score
			r.state = StateComplete
		}
	case MsgEndTest:
		r.state = StateIdle
		r.card = nil
		r.index = 0
	}
	return nil
}

// SelectAnswer records a choice answer locally and submits it to the proctor.
func (r *Responder) SelectAnswer(option string) error {
	if r.state != StateActive {
		return domain.ErrTestNotActive
	}
	if err := r.card.SelectChoice(r.index, option); err != nil {
		return err
	}
	return r.sender.Send(Encode(Message{
		Kind:  MsgAnswer,
		Index: r.index,
		Value: option,
		Score: r.card.Score(),
	}))
}

// SelectScale records a scale value locally and submits it to the proctor.
func (r *Responder) SelectScale(value int) error {
	if r.state != StateActive {
		return domain.ErrTestNotActive
	}
	if err := r.card.SelectScale(r.index, value); err != nil {
		return err
	}
	return r.sender.Send(Encode(Message{
		Kind:  MsgAnswerScale,
		Index: r.index,
		Value: strconv.Itoa(value),
		Score: r.card.ScaleScore(),
	}))
}

// State reports the machine's lifecycle state.
func (r *Responder) State() State { return r.state }

// Index is the current question position.
func (r *Responder) Index() int { return r.index }

// FinalScore is the proctor-announced total, valid once complete.
func (r *Responder) FinalScore() int { return r.finalScore }

// Score is the locally tracked running choice score, zero while no test is
// underway.
func (r *Responder) Score() int {
	if r.state == StateIdle {
		return 0
	}
	return r.card.Score()
}

// Question returns the current item.
func (r *Responder) Question() (domain.Question, error) {
	if r.state != StateActive {
		return domain.Question{}, domain.ErrTestNotActive
	}
	return r.card.Question(r.index)
}
