package domain

import "time"

// Participant is a room member as the registry sees it. The server keeps
// identity only; media and data channels live entirely on the clients.
type Participant struct {
	PeerID string `json:"peerId"`
}

// Room groups at most two signaling participants. The room id doubles as the
// responder's external user id: the proctor opens a room named after the
// patient it wants to reach. The registry treats it as an opaque string, but
// the conflation is part of the wire contract and is kept deliberately.
type Room struct {
	ID           string
	Participants map[string]Participant
}

// QuestionKind distinguishes the two item types of an assessment.
type QuestionKind string

const (
	// KindChoice is a multiple-choice item scored against a correct answer.
	KindChoice QuestionKind = "choice"
	// KindScale is a Likert-style item scored by its numeric value (0-3).
	KindScale QuestionKind = "scale"
)

// Question is one item of an assessment bank.
type Question struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`      // category, drives the fixed ordering
	Difficult     string            `json:"difficult"` // Easy or Hard, drives round partitioning
	Kind          QuestionKind      `json:"kind"`
	Prompt        string            `json:"prompt"`
	Answers       map[string]string `json:"answers"` // option key -> display text
	CorrectAnswer string            `json:"correctAnswer"`
}

// Assessment is an ordered question set fetched by name before a session.
type Assessment struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// HistoryRecord is the finished-session result handed to the persistence
// collaborator. The core composes it but never writes it itself.
type HistoryRecord struct {
	PatientName string    `json:"patient_name"`
	DoctorName  string    `json:"doctor_name"`
	TestName    string    `json:"test_name"`
	Difficult   string    `json:"difficult"`
	Date        time.Time `json:"date"`
	Score       int       `json:"score"`
	Note        string    `json:"note"`
}
