package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session id is unknown.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrUnauthorized is returned when an owner-only operation has no caller identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the caller does not own the session.
	ErrForbidden = errors.New("session belongs to another player")
	// ErrInvalidAmount indicates a round count outside [MinAmount, MaxAmount].
	ErrInvalidAmount = errors.New("amount out of range")
	// ErrInvalidSessionID indicates a malformed session id.
	ErrInvalidSessionID = errors.New("malformed session id")
	// ErrUpstreamInvalid indicates the catalog answered with data that failed validation.
	ErrUpstreamInvalid = errors.New("upstream data invalid")
	// ErrInsufficientData indicates the catalog ran out of usable items within the attempt budget.
	ErrInsufficientData = errors.New("insufficient upstream data")
	// ErrAnswerConflict indicates the stored answers changed since the caller read them.
	ErrAnswerConflict = errors.New("answers were updated concurrently")
	// ErrInvalidAnswers indicates a submitted answer array that does not extend the stored one.
	ErrInvalidAnswers = errors.New("answers must extend the recorded ones by one round")
	// ErrSessionFinished is returned when writing to a finished session.
	ErrSessionFinished = errors.New("game session already finished")
	// ErrSessionNotFinished is returned when results are requested early.
	ErrSessionNotFinished = errors.New("game session not finished")
	// ErrChoiceNotFound indicates a pick that is not one of the round's choices.
	ErrChoiceNotFound = errors.New("choice not offered in this round")
	// ErrNoRound is returned when the controller has no round to present.
	ErrNoRound = errors.New("no round in progress")
)
