package assessment

import "testing"

func TestEncodeWireFormats(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want string
	}{
		{"start", Message{Kind: MsgStartTest, TestName: "MMSE"}, "start-test-MMSE"},
		{"end", Message{Kind: MsgEndTest, TestName: "MMSE"}, "end-test-MMSE"},
		{"answer", Message{Kind: MsgAnswer, Index: 2, Value: "B", Score: 1}, "answer:2:B:1"},
		{"answerScale", Message{Kind: MsgAnswerScale, Index: 4, Value: "3", Score: 7}, "answerS:4:3:7"},
		{"next", Message{Kind: MsgNextQuestion, Index: 5}, "next-question:5"},
		{"phase", Message{Kind: MsgChangePhase, Phase: "questions"}, "change-phase:questions"},
		{"complete", Message{Kind: MsgCompleteTest, TestName: "TheDoor", Score: 14}, "complete-test-TheDoor with:14"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Encode(tc.msg); got != tc.want {
				t.Fatalf("Encode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeRoundTrips(t *testing.T) {
	raws := []string{
		"start-test-MMSE",
		"end-test-door",
		"answer:0:A:1",
		"answerS:3:2:5",
		"next-question:7",
		"change-phase:answers",
		"complete-test-MMSE with:26",
	}
	for _, raw := range raws {
		m := Decode(raw)
		if m.Kind == MsgUnknown {
			t.Fatalf("Decode(%q) = unknown", raw)
		}
		if got := Encode(m); got != raw {
			t.Fatalf("re-encode of %q = %q", raw, got)
		}
	}
}

func TestDecodeIgnoresUnknownAndMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello",
		"answer:notanumber:A:1",
		"answer:1:A",
		"next-question:x",
		"complete-test-MMSE",
		"resync-request:42",
	} {
		if m := Decode(raw); m.Kind != MsgUnknown {
			t.Fatalf("Decode(%q) = kind %d, want unknown", raw, m.Kind)
		}
	}
}
