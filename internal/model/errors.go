package model

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInternal            = errors.New("internal error")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewError builds an error whose message is msg and that matches kind with errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrRoomNotFound        = NewError(ErrNotFound, "room not found")
	ErrSnippetNotFound     = NewError(ErrNotFound, "snippet not found")
	ErrNoSnippetsAvailable = NewError(ErrNotFound, "no snippets available")
	ErrSessionNotFound     = NewError(ErrNotFound, "session not found")
	ErrNoQuestions         = NewError(ErrNotFound, "no questions found for this room")
	ErrUserNotFound        = NewError(ErrNotFound, "user not found")

	ErrNotHost         = NewError(ErrForbidden, "only host can perform this action")
	ErrInvalidPasscode = NewError(ErrForbidden, "invalid passcode")

	ErrAlreadyInActiveRoom = NewError(ErrConflict, "user is already in an active room")
	ErrGameAlreadyStarted  = NewError(ErrConflict, "game already started")
	ErrGameNotInProgress   = NewError(ErrConflict, "game is not in progress")
	ErrRoomFull            = NewError(ErrConflict, "room is full")
	ErrNoAttemptsLeft      = NewError(ErrConflict, "no attempts left")
	ErrNoMoreRounds        = NewError(ErrConflict, "no more rounds")
	ErrCodeConflict        = NewError(ErrConflict, "room code conflict")

	ErrInvalidRound = NewError(ErrValidation, "invalid round index")
)
