package assessment

import "fmt"

// EvaluateMMSE maps a total MMSE score to its clinical banner.
func EvaluateMMSE(score int) string {
	switch {
	case score >= 24:
		return "No cognitive decline"
	case score >= 20:
		return "Mild cognitive impairment; (May require supervision and support)"
	case score >= 14:
		return "Moderate cognitive impairment; (Clear defects, may require 24/7 monitoring)"
	default:
		return "Severe cognitive impairment. (Causes severe disability, requires 24-hour supervision and assistance with daily activities)"
	}
}

// DoorQualifyThreshold is the round-A score needed to unlock round B.
const DoorQualifyThreshold = 9

// EvaluateDoorEasy is the banner when the session ends after round A.
func EvaluateDoorEasy(scoreA int) string {
	return fmt.Sprintf("Easy Test: %d/12", scoreA)
}

// EvaluateDoorBoth is the banner after both rounds.
func EvaluateDoorBoth(scoreA, scoreB int) string {
	return fmt.Sprintf("Easy Test: %d/12\nHard Test: %d/12", scoreA, scoreB)
}
