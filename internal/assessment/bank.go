package assessment

import (
	"sort"

	"telecare-session-service/internal/domain"
)

// categoryOrder is the fixed presentation order for MMSE-style banks.
var categoryOrder = []string{
	"Orientation in time and space",
	"Registration/Acknowledgment",
	"Attention/Calculation",
	"Near memory",
	"Language",
	"Carry out complex orders",
}

// SortByCategory orders questions by the fixed category sequence. Categories
// outside the known list sort first, matching the behavior existing banks
// were authored against.
func SortByCategory(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool {
		return categoryRank(out[i].Type) < categoryRank(out[j].Type)
	})
	return out
}

func categoryRank(category string) int {
	for i, c := range categoryOrder {
		if c == category {
			return i
		}
	}
	return -1
}

// PartitionByDifficulty splits a bank into its Easy and Hard rounds.
func PartitionByDifficulty(questions []domain.Question) (easy, hard []domain.Question) {
	for _, q := range questions {
		switch q.Difficult {
		case "Easy":
			easy = append(easy, q)
		case "Hard":
			hard = append(hard, q)
		}
	}
	return easy, hard
}
