package services

import (
	"context"

	"github.com/SscSPs/timesheet_app/internal/core/domain"
)

// TimesheetTransitionSvc moves an employee's daily entry through its lifecycle.
// Every method returns the entry as persisted after the transition.
type TimesheetTransitionSvc interface {
	// ClockIn opens today's entry, creating it or reactivating a submitted one.
	// When another entry is still open it fails with *domain.AlreadyActiveError
	// unless opts.Force is set, in which case the stale entry is closed first.
	ClockIn(ctx context.Context, employeeID string, opts domain.ClockInOptions) (*domain.TimeEntry, error)

	// ClockOut submits the open entry. Only allowed while ACTIVE.
	ClockOut(ctx context.Context, employeeID string) (*domain.TimeEntry, error)

	StartBreak(ctx context.Context, employeeID string) (*domain.TimeEntry, error)
	EndBreak(ctx context.Context, employeeID string) (*domain.TimeEntry, error)

	// StartUnavailable records reason, or domain.DefaultUnavailableReason when empty.
	StartUnavailable(ctx context.Context, employeeID string, reason string) (*domain.TimeEntry, error)
	EndUnavailable(ctx context.Context, employeeID string) (*domain.TimeEntry, error)
}

// TimesheetStatusSvc answers read-only status questions.
type TimesheetStatusSvc interface {
	// GetStatus assembles the open entry, today's entry, recent history and hour totals.
	GetStatus(ctx context.Context, employeeID string) (*domain.StatusSnapshot, error)

	// GetLiveStatus is GetStatus without the history read, for polling clients.
	GetLiveStatus(ctx context.Context, employeeID string) (*domain.StatusSnapshot, error)

	// ListHistory pages through all of the employee's entries, newest first.
	ListHistory(ctx context.Context, employeeID string, pageToken string, limit int) (*domain.HistoryPage, error)
}

// TimesheetSvcFacade combines all timesheet service interfaces
type TimesheetSvcFacade interface {
	TimesheetTransitionSvc
	TimesheetStatusSvc
}
