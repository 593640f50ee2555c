package session

import (
	"errors"
	"fmt"
)

// ErrUnauthorizedRetryExhausted is returned when a request is still rejected as
// unauthorized after one re-authentication and one retry.
var ErrUnauthorizedRetryExhausted = errors.New("session: unauthorized after re-authentication")

// ErrNoRecord means the store holds no persisted session.
var ErrNoRecord = errors.New("session: no persisted record")

// AuthenticationError means the credential exchange failed. It ends the run.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("session: authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
