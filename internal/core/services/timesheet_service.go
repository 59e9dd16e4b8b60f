package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/timesheet_app/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ForceClosePolicy decides which timestamp closes a stale entry on a forced clock-in.
type ForceClosePolicy string

const (
	// ForceCloseAtNow closes the stale entry at the time of the forced clock-in.
	ForceCloseAtNow ForceClosePolicy = "now"
	// ForceCloseAtLastActivity closes it at the entry's own last known timestamp.
	ForceCloseAtLastActivity ForceClosePolicy = "last_activity"
)

// ParseForceClosePolicy converts a configuration value into a ForceClosePolicy.
func ParseForceClosePolicy(s string) (ForceClosePolicy, error) {
	switch p := ForceClosePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ForceCloseAtNow:
		return ForceCloseAtNow, nil
	case ForceCloseAtLastActivity:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown force close policy %q", apperrors.ErrValidation, s)
	}
}

// TransitionEventPublisher receives every successfully persisted transition.
type TransitionEventPublisher interface {
	PublishTransition(ctx context.Context, employeeID string, action domain.Action, entry domain.TimeEntry)
}

// timesheetSettings is shared by the transition engine and the status service.
type timesheetSettings struct {
	now              func() time.Time
	location         *time.Location
	workdayHours     decimal.Decimal
	forceClosePolicy ForceClosePolicy
	staleAfter       time.Duration
	recentLimit      int
	newID            func() string
	events           TransitionEventPublisher
}

// TimesheetServiceOption configures the timesheet service.
type TimesheetServiceOption func(*timesheetSettings)

// WithClock injects the time source. Defaults to time.Now.
func WithClock(now func() time.Time) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that decides an employee's work day.
func WithLocation(loc *time.Location) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithWorkdayHours sets the reference day length used for remaining hours.
func WithWorkdayHours(hours decimal.Decimal) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if hours.IsPositive() {
			s.workdayHours = hours
		}
	}
}

// WithForceClosePolicy chooses how stale entries are closed.
func WithForceClosePolicy(p ForceClosePolicy) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if p != "" {
			s.forceClosePolicy = p
		}
	}
}

// WithStaleSessionAfter makes clock-in close open entries older than d without
// requiring force. Zero disables automatic closing.
func WithStaleSessionAfter(d time.Duration) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		s.staleAfter = d
	}
}

// WithRecentLimit sets how many entries GetStatus returns as history.
func WithRecentLimit(limit int) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

// WithIDGenerator replaces uuid.NewString for new entry IDs.
func WithIDGenerator(newID func() string) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithEventPublisher registers a sink for transition events.
func WithEventPublisher(p TransitionEventPublisher) TimesheetServiceOption {
	return func(s *timesheetSettings) {
		s.events = p
	}
}

// timesheetService implements the TimesheetSvcFacade interface
type timesheetService struct {
	*transitionEngine
	*statusService
}

// NewTimesheetService creates the timesheet service with the provided dependencies
func NewTimesheetService(entryRepo portsrepo.TimeEntryRepositoryWithTx, opts ...TimesheetServiceOption) portssvc.TimesheetSvcFacade {
	settings := &timesheetSettings{
		now:              time.Now,
		location:         time.UTC,
		workdayHours:     domain.DefaultWorkdayHours,
		forceClosePolicy: ForceCloseAtNow,
		recentLimit:      7,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(settings)
	}
	return &timesheetService{
		transitionEngine: &transitionEngine{
			timesheetSettings: settings,
			entryRepo:         entryRepo,
			locks:             newEmployeeLocks(),
		},
		statusService: &statusService{
			timesheetSettings: settings,
			entryRepo:         entryRepo,
		},
	}
}

// transitionEngine validates and applies lifecycle actions to time entries.
type transitionEngine struct {
	BaseService
	*timesheetSettings
	entryRepo portsrepo.TimeEntryRepositoryWithTx
	locks     *employeeLocks
}

// ClockIn opens today's entry, closing a stale open entry first when forced.
func (s *transitionEngine) ClockIn(ctx context.Context, employeeID string, opts domain.ClockInOptions) (*domain.TimeEntry, error) {
	return s.run(ctx, employeeID, domain.ActionClockIn, func(txCtx context.Context, employeeID string, now time.Time) (*domain.TimeEntry, error) {
		open, err := s.entryRepo.FindOpenEntry(txCtx, employeeID)
		if err != nil {
			return nil, fmt.Errorf("failed to find open entry for employee %s: %w", employeeID, err)
		}
		if open != nil {
			age := now.Sub(open.StartTime)
			if age < 0 {
				age = 0
			}
			autoClose := s.staleAfter > 0 && age >= s.staleAfter
			if !opts.Force && !autoClose {
				return nil, &domain.AlreadyActiveError{Entry: *open, Age: age}
			}
			if err := s.closeStaleEntry(txCtx, *open, now); err != nil {
				return nil, err
			}
		}

		date := domain.WorkDate(now, s.location)
		existing, err := s.entryRepo.FindByEmployeeAndDate(txCtx, employeeID, date)
		if err != nil {
			return nil, fmt.Errorf("failed to find entry for employee %s on %s: %w", employeeID, date.Format(time.DateOnly), err)
		}
		if existing == nil {
			entry := domain.NewTimeEntry(s.newID(), employeeID, date, now)
			created, err := s.entryRepo.CreateEntry(txCtx, entry)
			if err != nil {
				return nil, fmt.Errorf("failed to create entry for employee %s on %s: %w", employeeID, date.Format(time.DateOnly), err)
			}
			return created, nil
		}

		next, ok := domain.NextStatus(existing.Status, domain.ActionClockIn)
		if !ok {
			return nil, &domain.InvalidTransitionError{Status: existing.Status, Action: domain.ActionClockIn}
		}
		reactivated := *existing
		reactivated.Status = next
		reactivated.StartTime = now
		reactivated.EndTime = nil
		reactivated.LastBreakStart = nil
		reactivated.LastUnavailableStart = nil
		reactivated.UnavailableReason = nil
		reactivated.SessionBreakBase = reactivated.TotalBreakMinutes
		reactivated.SessionUnavailableBase = reactivated.TotalUnavailableMinutes
		return s.save(txCtx, reactivated, domain.ActionClockIn, now)
	})
}

// ClockOut submits the employee's open entry.
func (s *transitionEngine) ClockOut(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return s.applyToOpenEntry(ctx, employeeID, domain.ActionClockOut, func(e *domain.TimeEntry, now time.Time) error {
		e.HoursWorked = domain.ComputeWorkedHours(*e, now)
		e.EndTime = &now
		return nil
	})
}

// StartBreak puts the active entry on break.
func (s *transitionEngine) StartBreak(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return s.applyToOpenEntry(ctx, employeeID, domain.ActionStartBreak, func(e *domain.TimeEntry, now time.Time) error {
		e.LastBreakStart = &now
		return nil
	})
}

// EndBreak adds the finished break to the entry's break total.
func (s *transitionEngine) EndBreak(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return s.applyToOpenEntry(ctx, employeeID, domain.ActionEndBreak, func(e *domain.TimeEntry, now time.Time) error {
		if e.LastBreakStart == nil {
			return &domain.InvalidTransitionError{Status: e.Status, Action: domain.ActionEndBreak}
		}
		e.TotalBreakMinutes = e.TotalBreakMinutes.Add(domain.DurationMinutesSince(*e.LastBreakStart, now))
		e.LastBreakStart = nil
		return nil
	})
}

// StartUnavailable marks the active entry unavailable with the given reason.
func (s *transitionEngine) StartUnavailable(ctx context.Context, employeeID string, reason string) (*domain.TimeEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.DefaultUnavailableReason
	}
	return s.applyToOpenEntry(ctx, employeeID, domain.ActionStartUnavailable, func(e *domain.TimeEntry, now time.Time) error {
		e.LastUnavailableStart = &now
		e.UnavailableReason = &reason
		return nil
	})
}

// EndUnavailable adds the finished unavailable period to the entry's total.
func (s *transitionEngine) EndUnavailable(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return s.applyToOpenEntry(ctx, employeeID, domain.ActionEndUnavailable, func(e *domain.TimeEntry, now time.Time) error {
		if e.LastUnavailableStart == nil {
			return &domain.InvalidTransitionError{Status: e.Status, Action: domain.ActionEndUnavailable}
		}
		e.TotalUnavailableMinutes = e.TotalUnavailableMinutes.Add(domain.DurationMinutesSince(*e.LastUnavailableStart, now))
		e.LastUnavailableStart = nil
		e.UnavailableReason = nil
		return nil
	})
}

type transitionFunc func(txCtx context.Context, employeeID string, now time.Time) (*domain.TimeEntry, error)

// run validates the employee, serializes on it and executes fn as one unit of work.
// fn receives the normalized employee ID.
func (s *transitionEngine) run(ctx context.Context, employeeID string, action domain.Action, fn transitionFunc) (*domain.TimeEntry, error) {
	employeeID, err := normalizeEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(employeeID)
	defer unlock()

	var result *domain.TimeEntry
	err = s.entryRepo.WithTx(ctx, func(txCtx context.Context) error {
		entry, err := fn(txCtx, employeeID, s.now())
		if err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		attrs := []any{slog.String("employee_id", employeeID), slog.String("action", string(action))}
		switch {
		case errors.Is(err, apperrors.ErrAlreadyActive), errors.Is(err, apperrors.ErrInvalidTransition):
			s.LogWarn(ctx, err, "Timesheet transition rejected", attrs...)
		case apperrors.IsRetryable(err):
			s.LogWarn(ctx, err, "Timesheet transition lost a race", attrs...)
		default:
			s.LogError(ctx, err, "Timesheet transition failed", attrs...)
		}
		return nil, err
	}

	s.LogInfo(ctx, "Timesheet transition applied",
		slog.String("employee_id", employeeID),
		slog.String("action", string(action)),
		slog.String("entry_id", result.ID),
		slog.String("status", string(result.Status)))
	if s.events != nil {
		s.events.PublishTransition(ctx, employeeID, action, *result)
	}
	return result, nil
}

// normalizeEmployeeID trims surrounding whitespace and rejects blank IDs.
func normalizeEmployeeID(employeeID string) (string, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return "", apperrors.NewValidationFailedError("employee ID is required")
	}
	return employeeID, nil
}

// applyToOpenEntry runs a table-driven transition against the employee's open entry.
func (s *transitionEngine) applyToOpenEntry(ctx context.Context, employeeID string, action domain.Action, mutate func(e *domain.TimeEntry, now time.Time) error) (*domain.TimeEntry, error) {
	return s.run(ctx, employeeID, action, func(txCtx context.Context, employeeID string, now time.Time) (*domain.TimeEntry, error) {
		entry, err := s.entryRepo.FindOpenEntry(txCtx, employeeID)
		if err != nil {
			return nil, fmt.Errorf("failed to find open entry for employee %s: %w", employeeID, err)
		}
		if entry == nil {
			return nil, s.noOpenEntryError(txCtx, employeeID, action, now)
		}

		next, ok := domain.NextStatus(entry.Status, action)
		if !ok {
			return nil, &domain.InvalidTransitionError{Status: entry.Status, Action: action}
		}
		updated := *entry
		if err := mutate(&updated, now); err != nil {
			return nil, err
		}
		updated.Status = next
		return s.save(txCtx, updated, action, now)
	})
}

// noOpenEntryError names today's status (usually SUBMITTED) when there is one.
func (s *transitionEngine) noOpenEntryError(ctx context.Context, employeeID string, action domain.Action, now time.Time) error {
	today, err := s.entryRepo.FindByEmployeeAndDate(ctx, employeeID, domain.WorkDate(now, s.location))
	if err != nil {
		return fmt.Errorf("failed to find today's entry for employee %s: %w", employeeID, err)
	}
	if today != nil {
		return &domain.InvalidTransitionError{Status: today.Status, Action: action}
	}
	return &domain.InvalidTransitionError{Action: action}
}

// closeStaleEntry submits an entry that was never clocked out, folding any
// running break or unavailable period into its totals first.
func (s *transitionEngine) closeStaleEntry(ctx context.Context, entry domain.TimeEntry, now time.Time) error {
	closeAt := now
	if s.forceClosePolicy == ForceCloseAtLastActivity {
		if last := entry.LastActivityAt(); last.Before(now) {
			closeAt = last
		}
	}

	closed := entry
	if closed.LastBreakStart != nil {
		closed.TotalBreakMinutes = closed.TotalBreakMinutes.Add(domain.DurationMinutesSince(*closed.LastBreakStart, closeAt))
		closed.LastBreakStart = nil
	}
	if closed.LastUnavailableStart != nil {
		closed.TotalUnavailableMinutes = closed.TotalUnavailableMinutes.Add(domain.DurationMinutesSince(*closed.LastUnavailableStart, closeAt))
		closed.LastUnavailableStart = nil
		closed.UnavailableReason = nil
	}
	closed.HoursWorked = domain.ComputeWorkedHours(closed, closeAt)
	closed.Status = domain.StatusSubmitted
	closed.EndTime = &closeAt

	if _, err := s.save(ctx, closed, domain.ActionClockOut, now); err != nil {
		return err
	}
	s.LogInfo(ctx, "Closed stale time entry",
		slog.String("employee_id", entry.EmployeeID),
		slog.String("entry_id", entry.ID),
		slog.String("entry_date", entry.Date.Format(time.DateOnly)),
		slog.Time("closed_at", closeAt),
		slog.String("hours_worked", closed.HoursWorked.String()))
	return nil
}

// save writes the full new state of an entry or nothing.
func (s *transitionEngine) save(ctx context.Context, entry domain.TimeEntry, action domain.Action, now time.Time) (*domain.TimeEntry, error) {
	entry.LastUpdatedAt = now
	entry.LastUpdatedBy = entry.EmployeeID
	if err := entry.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("refusing to persist %s on entry %s: %w", action, entry.ID, err)
	}
	updated, err := s.entryRepo.UpdateEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to persist %s on entry %s for employee %s: %w", action, entry.ID, entry.EmployeeID, err)
	}
	return updated, nil
}
