package domain

import "errors"

var (
	// ErrRoomFull is reported to a joiner that lost the admission race.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomNotFound is returned when an operation targets a missing room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrAssessmentNotFound indicates the test bank has no entry for a name.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrQuestionOutOfRange indicates a navigation index outside the bank.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrChannelNotOpen is returned when a send is attempted before the data
	// channel's open event has fired. Sends never queue silently.
	ErrChannelNotOpen = errors.New("data channel not open")
	// ErrChannelClosed is returned when a send is attempted after close.
	ErrChannelClosed = errors.New("data channel closed")
	// ErrSessionTornDown is returned when a torn-down peer session is reused.
	ErrSessionTornDown = errors.New("peer session torn down")
	// ErrNoCounterpart indicates a data channel was requested before exactly
	// two participants were known.
	ErrNoCounterpart = errors.New("no counterpart peer known")
	// ErrTestNotActive indicates a test operation outside an active run.
	ErrTestNotActive = errors.New("no test in progress")
)
