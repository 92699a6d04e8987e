// registration/service/errors.go
package service

import "fmt"

// Custom Errors for clear communication to API layer
var (
	ErrNotRegistered   = fmt.Errorf("participant is not registered")
	ErrAlreadyTeamed   = fmt.Errorf("participant already belongs to a team")
	ErrTeamNotFound    = fmt.Errorf("team not found")
	ErrTeamFull        = fmt.Errorf("team is full")
	ErrUnauthenticated = fmt.Errorf("no signed-in participant")
	ErrCreationFailed  = fmt.Errorf("team creation failed")
	ErrPersistence     = fmt.Errorf("storage unavailable")
)

// CreationError reports a failed team creation. TeamID is set when the team
// row was written before the failure; Compensated tells whether it was
// removed again.
type CreationError struct {
	TeamID      string
	Compensated bool
	Cause       error
}

func (e *CreationError) Error() string {
	switch {
	case e.TeamID == "":
		return fmt.Sprintf("%v: %v", ErrCreationFailed, e.Cause)
	case e.Compensated:
		return fmt.Sprintf("%v: %v (team %s rolled back)", ErrCreationFailed, e.Cause, e.TeamID)
	default:
		return fmt.Sprintf("%v: %v (team %s left without members)", ErrCreationFailed, e.Cause, e.TeamID)
	}
}

func (e *CreationError) Is(target error) bool {
	return target == ErrCreationFailed
}

func (e *CreationError) Unwrap() error {
	return e.Cause
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
