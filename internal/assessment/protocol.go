package assessment

import (
	"fmt"
	"strconv"
	"strings"
)

// MsgKind identifies one of the data-channel commands exchanged between the
// proctor and responder machines.
type MsgKind int

const (
	MsgUnknown MsgKind = iota
	MsgStartTest
	MsgEndTest
	MsgAnswer
	MsgAnswerScale
	MsgNextQuestion
	MsgChangePhase
	MsgCompleteTest
)

// Message is the decoded form of one data-channel command. The wire format is
// colon-delimited text and must stay byte-compatible with existing clients.
type Message struct {
	Kind     MsgKind
	TestName string
	Index    int
	Value    string
	Score    int
	Phase    string
}

// Encode renders a Message in its wire form.
func Encode(m Message) string {
	switch m.Kind {
	case MsgStartTest:
		return "start-test-" + m.TestName
	case MsgEndTest:
		return "end-test-" + m.TestName
	case MsgAnswer:
		return fmt.Sprintf("answer:%d:%s:%d", m.Index, m.Value, m.Score)
	case MsgAnswerScale:
		return fmt.Sprintf("answerS:%d:%s:%d", m.Index, m.Value, m.Score)
	case MsgNextQuestion:
		return fmt.Sprintf("next-question:%d", m.Index)
	case MsgChangePhase:
		return "change-phase:" + m.Phase
	case MsgCompleteTest:
		return fmt.Sprintf("complete-test-%s with:%d", m.TestName, m.Score)
	default:
		return ""
	}
}

// Decode parses a wire command. Anything unrecognized or malformed decodes as
// MsgUnknown so the machines can ignore it (forward-compatible no-op).
func Decode(raw string) Message {
	switch {
	case strings.HasPrefix(raw, "answerS:"):
		return decodeAnswer(raw, "answerS:", MsgAnswerScale)
	case strings.HasPrefix(raw, "answer:"):
		return decodeAnswer(raw, "answer:", MsgAnswer)
	case strings.HasPrefix(raw, "next-question:"):
		i, err := strconv.Atoi(strings.TrimPrefix(raw, "next-question:"))
		if err != nil {
			return Message{Kind: MsgUnknown}
		}
		return Message{Kind: MsgNextQuestion, Index: i}
	case strings.HasPrefix(raw, "change-phase:"):
		return Message{Kind: MsgChangePhase, Phase: strings.TrimPrefix(raw, "change-phase:")}
	case strings.HasPrefix(raw, "complete-test-"):
		rest := strings.TrimPrefix(raw, "complete-test-")
		name, scorePart, ok := strings.Cut(rest, " with:")
		if !ok {
			return Message{Kind: MsgUnknown}
		}
		score, err := strconv.Atoi(scorePart)
		if err != nil {
			return Message{Kind: MsgUnknown}
		}
		return Message{Kind: MsgCompleteTest, TestName: name, Score: score}
	case strings.HasPrefix(raw, "start-test-"):
		return Message{Kind: MsgStartTest, TestName: strings.TrimPrefix(raw, "start-test-")}
	case strings.HasPrefix(raw, "end-test-"):
		return Message{Kind: MsgEndTest, TestName: strings.TrimPrefix(raw, "end-test-")}
	default:
		return Message{Kind: MsgUnknown}
	}
}

func decodeAnswer(raw, prefix string, kind MsgKind) Message {
	parts := strings.Split(strings.TrimPrefix(raw, prefix), ":")
	if len(parts) != 3 {
		return Message{Kind: MsgUnknown}
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return Message{Kind: MsgUnknown}
	}
	score, err := strconv.Atoi(parts[2])
	if err != nil {
		return Message{Kind: MsgUnknown}
	}
	return Message{Kind: kind, Index: index, Value: parts[1], Score: score}
}
