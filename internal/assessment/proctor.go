package assessment

import (
	"context"
	"strconv"
	"time"

	"telecare-session-service/internal/domain"
	"telecare-session-service/internal/history"
)

// Sender pushes one text command to the counterpart over the data channel.
// Implementations must fail loudly when the channel is not open; a silently
// dropped command desynchronizes the two machines with no recovery path.
type Sender interface {
	Send(text string) error
}

// State is the lifecycle of a test machine on either side.
type State int

const (
	StateIdle State = iota
	StateActive
	StateComplete
)

// ProctorConfig carries the session identities and the evaluation rule for
// the bank being run.
type ProctorConfig struct {
	PatientName string
	DoctorName  string
	Difficult   string
	Evaluate    func(total int) string
	Now         func() time.Time
}

// Proctor drives a single-pass test: it owns navigation and completion, and
// mirrors every step to the responder over the data channel. Answers arriving
// from the responder are folded into the local scorecard so both sides stay
// consistent.
type Proctor struct {
	sender   Sender
	recorder history.Recorder
	cfg      ProctorConfig

	state State
	bank  domain.Assessment
	card  *Scorecard
	index int
}

func NewProctor(sender Sender, recorder history.Recorder, cfg ProctorConfig) *Proctor {
	if cfg.Evaluate == nil {
		cfg.Evaluate = EvaluateMMSE
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Difficult == "" {
		cfg.Difficult = "Easy"
	}
	return &Proctor{sender: sender, recorder: recorder, cfg: cfg}
}

// Start begins a run over the bank, sorted into presentation order, and tells
// the responder to do the same.
func (p *Proctor) Start(bank domain.Assessment) error {
	if err := p.sender.Send(Encode(Message{Kind: MsgStartTest, TestName: bank.Name})); err != nil {
		return err
	}
	bank.Questions = SortByCategory(bank.Questions)
	p.bank = bank
	p.card = NewScorecard(bank.Questions)
	p.index = 0
	p.state = StateActive
	return nil
}

// SelectAnswer records a choice answer for the current question and mirrors
// it with the updated running score.
func (p *Proctor) SelectAnswer(option string) error {
	if p.state != StateActive {
		return domain.ErrTestNotActive
	}
	if err := p.card.SelectChoice(p.index, option); err != nil {
		return err
	}
	return p.sender.Send(Encode(Message{
		Kind:  MsgAnswer,
		Index: p.index,
		Value: option,
		Score: p.card.Score(),
	}))
}

// SelectScale records a scale value for the current question.
func (p *Proctor) SelectScale(value int) error {
	if p.state != StateActive {
		return domain.ErrTestNotActive
	}
	if err := p.card.SelectScale(p.index, value); err != nil {
		return err
	}
	return p.sender.Send(Encode(Message{
		Kind:  MsgAnswerScale,
		Index: p.index,
		Value: strconv.Itoa(value),
		Score: p.card.ScaleScore(),
	}))
}

// Next advances to the following question and mirrors the move.
func (p *Proctor) Next() error { return p.goTo(p.index + 1) }

// Previous steps back one question and mirrors the move.
func (p *Proctor) Previous() error { return p.goTo(p.index - 1) }

func (p *Proctor) goTo(index int) error {
	if p.state != StateActive {
		return domain.ErrTestNotActive
	}
	if index < 0 || index >= p.card.Len() {
		return domain.ErrQuestionOutOfRange
	}
	if err := p.sender.Send(Encode(Message{Kind: MsgNextQuestion, Index: index})); err != nil {
		return err
	}
	p.index = index
	return nil
}

// HandleMessage folds a responder-originated command into local state. The
// score carried on the wire is advisory; the card recomputes from the answer
// itself. Unrecognized commands are ignored.
func (p *Proctor) HandleMessage(raw string) error {
	if p.state != StateActive {
		return nil
	}
	m := Decode(raw)
	switch m.Kind {
	case MsgAnswer:
		if err := p.card.SelectChoice(m.Index, m.Value); err != nil {
			return err
		}
		p.index = m.Index
	case MsgAnswerScale:
		value, err := strconv.Atoi(m.Value)
		if err != nil {
			return nil
		}
		if err := p.card.SelectScale(m.Index, value); err != nil {
			return err
		}
		p.index = m.Index
	}
	return nil
}

// Complete finalizes the run: computes the total and its evaluation banner,
// notifies the responder, and hands the history record off for persistence.
func (p *Proctor) Complete(ctx context.Context) (domain.HistoryRecord, error) {
	if p.state != StateActive {
		return domain.HistoryRecord{}, domain.ErrTestNotActive
	}
	total := p.card.Total()
	evaluation := p.cfg.Evaluate(total)
	if err := p.sender.Send(Encode(Message{Kind: MsgCompleteTest, TestName: p.bank.Name, Score: total})); err != nil {
		return domain.HistoryRecord{}, err
	}
	rec := domain.HistoryRecord{
		PatientName: p.cfg.PatientName,
		DoctorName:  p.cfg.DoctorName,
		TestName:    p.bank.Name,
		Difficult:   p.cfg.Difficult,
		Date:        p.cfg.Now(),
		Score:       total,
		Note:        evaluation,
	}
	if p.recorder != nil {
		if err := p.recorder.Record(ctx, rec); err != nil {
			return rec, err
		}
	}
	p.state = StateComplete
	return rec, nil
}

// End aborts or closes out the run and resets the machine.
func (p *Proctor) End() error {
	if p.state == StateIdle {
		return domain.ErrTestNotActive
	}
	if err := p.sender.Send(Encode(Message{Kind: MsgEndTest, TestName: p.bank.Name})); err != nil {
		return err
	}
	p.state = StateIdle
	p.card = nil
	p.index = 0
	return nil
}

// State reports the machine's lifecycle state.
func (p *Proctor) State() State { return p.state }

// Index is the current question position.
func (p *Proctor) Index() int { return p.index }

// Score is the running choice score, zero while no test is underway.
func (p *Proctor) Score() int {
	if p.state == StateIdle {
		return 0
	}
	return p.card.Score()
}

// ScaleScore is the running scale score, zero while no test is underway.
func (p *Proctor) ScaleScore() int {
	if p.state == StateIdle {
		return 0
	}
	return p.card.ScaleScore()
}

// Question returns the current item.
func (p *Proctor) Question() (domain.Question, error) {
	if p.state != StateActive {
		return domain.Question{}, domain.ErrTestNotActive
	}
	return p.card.Question(p.index)
}
