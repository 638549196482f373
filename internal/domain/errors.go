package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks any unresolvable poll, question or answer reference.
	ErrNotFound = errors.New("not found")

	// ErrPollClosed rejects submissions against STOPPED or COMPLETED polls.
	ErrPollClosed = errors.New("poll closed")

	// ErrRateLimited is returned when a respondent exceeds the submission limit.
	ErrRateLimited = errors.New("submission limit reached")
)

// ValidationError names every required demographic field missing from a submission.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required demographics: %s", strings.Join(e.MissingFields, ", "))
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
