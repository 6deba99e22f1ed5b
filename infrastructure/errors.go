package infrastructure

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotParticipant  = errors.New("user is not a participant of the conversation")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternalServer  = errors.New("internal server error")

	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid access token")

	ErrNotJoined     = errors.New("connection has not joined")
	ErrAlreadyJoined = errors.New("connection already joined as another user")
	ErrUnknownEvent  = errors.New("unknown event")
)

// ValidationError reports a missing or malformed request field. It matches
// ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid input: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Required returns a ValidationError for the first empty value, walking the
// name/value pairs in order.
func Required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &ValidationError{Field: pairs[i]}
		}
	}
	return nil
}
