package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
)

// AlreadyActiveError is returned by a clock-in while another open entry exists.
// It carries the conflicting entry so the caller can offer a forced clock-in.
type AlreadyActiveError struct {
	Entry TimeEntry
	Age   time.Duration
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("employee %s already has an open entry %s for %s (status %s, open for %s)",
		e.Entry.EmployeeID, e.Entry.ID, e.Entry.Date.Format(time.DateOnly), e.Entry.Status, e.Age.Round(time.Second))
}

func (e *AlreadyActiveError) Is(target error) bool {
	return target == apperrors.ErrAlreadyActive
}

// InvalidTransitionError reports an action that the current status does not allow.
type InvalidTransitionError struct {
	Status EntryStatus // empty when there is no open entry
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	status := string(e.Status)
	if status == "" {
		status = "NO_ENTRY"
	}
	return fmt.Sprintf("cannot %s while %s", e.Action, status)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == apperrors.ErrInvalidTransition
}

func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, fmt.Sprintf(format, args...))
}
