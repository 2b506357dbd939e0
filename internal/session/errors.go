package session

import "errors"

var (
	// ErrInvalidArgument flags ids that do not belong to the session.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState flags mutations of a completed session.
	ErrInvalidState = errors.New("session already completed")
	// ErrInsufficientQuestions is returned when no question matched the filter.
	ErrInsufficientQuestions = errors.New("no questions match the requested filter")
)
