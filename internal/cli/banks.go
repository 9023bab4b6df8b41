package cli

import (
	"fmt"

	"telecare-session-service/internal/domain"
)

// sampleBanks provides a built-in bank set so the client commands work
// without a database; production deployments load banks from postgres.
func sampleBanks() map[string]domain.Assessment {
	return map[string]domain.Assessment{
		"MMSE":    sampleMMSE(),
		"TheDoor": sampleTheDoor(),
	}
}

func sampleMMSE() domain.Assessment {
	return domain.Assessment{
		Name: "MMSE",
		Questions: []domain.Question{
			{
				ID:            "mmse-1",
				Type:          "Orientation in time and space",
				Difficult:     "Easy",
				Kind:          domain.KindChoice,
				Prompt:        "What year is it?",
				Answers:       map[string]string{"A": "2024", "B": "2025", "C": "2026", "D": "2027"},
				CorrectAnswer: "B",
			},
			{
				ID:            "mmse-2",
				Type:          "Registration/Acknowledgment",
				Difficult:     "Easy",
				Kind:          domain.KindScale,
				Prompt:        "Repeat the three named objects (0-3 correct)",
				CorrectAnswer: "True",
			},
			{
				ID:            "mmse-3",
				Type:          "Attention/Calculation",
				Difficult:     "Easy",
				Kind:          domain.KindChoice,
				Prompt:        "Count backwards from 100 by sevens. What comes after 93?",
				Answers:       map[string]string{"A": "86", "B": "85", "C": "87", "D": "84"},
				CorrectAnswer: "A",
			},
			{
				ID:            "mmse-4",
				Type:          "Near memory",
				Difficult:     "Easy",
				Kind:          domain.KindScale,
				Prompt:        "Recall the three objects named earlier (0-3 correct)",
				CorrectAnswer: "True",
			},
			{
				ID:            "mmse-5",
				Type:          "Language",
				Difficult:     "Easy",
				Kind:          domain.KindChoice,
				Prompt:        "Name this object\npencil.png",
				Answers:       map[string]string{"A": "Pencil", "B": "Watch", "C": "Key", "D": "Comb"},
				CorrectAnswer: "A",
			},
			{
				ID:            "mmse-6",
				Type:          "Carry out complex orders",
				Difficult:     "Easy",
				Kind:          domain.KindScale,
				Prompt:        "Take the paper, fold it in half, place it on the floor (0-3 steps)",
				CorrectAnswer: "True",
			},
		},
	}
}

func sampleTheDoor() domain.Assessment {
	bank := domain.Assessment{Name: "TheDoor"}
	for _, difficult := range []string{"Easy", "Hard"} {
		for i := 1; i <= 12; i++ {
			bank.Questions = append(bank.Questions, domain.Question{
				ID:        fmt.Sprintf("door-%s-%d", difficult, i),
				Type:      "Recognition",
				Difficult: difficult,
				Kind:      domain.KindChoice,
				Prompt:    fmt.Sprintf("/doors/%s/%d.jpg", difficult, i),
				Answers: map[string]string{
					"A": fmt.Sprintf("/doors/%s/%d-a.jpg", difficult, i),
					"B": fmt.Sprintf("/doors/%s/%d-b.jpg", difficult, i),
					"C": fmt.Sprintf("/doors/%s/%d-c.jpg", difficult, i),
					"D": fmt.Sprintf("/doors/%s/%d-d.jpg", difficult, i),
				},
				CorrectAnswer: string(rune('A' + (i-1)%4)),
			})
		}
	}
	return bank
}
