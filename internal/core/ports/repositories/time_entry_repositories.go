package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/timesheet_app/internal/core/domain"
)

// TimeEntryReader defines read operations for time entries.
type TimeEntryReader interface {
	// FindOpenEntry returns the employee's single entry whose status is not SUBMITTED,
	// regardless of date. It returns nil, nil when there is none.
	FindOpenEntry(ctx context.Context, employeeID string) (*domain.TimeEntry, error)

	// FindByEmployeeAndDate returns the entry for the given work day, or nil, nil.
	FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.TimeEntry, error)

	// FindRecent returns up to limit entries ordered by date then start time, newest first.
	FindRecent(ctx context.Context, employeeID string, limit int) ([]domain.TimeEntry, error)

	// ListEntries pages through entries dated strictly before `before` (all when nil), newest first.
	ListEntries(ctx context.Context, employeeID string, before *time.Time, limit int) ([]domain.TimeEntry, error)
}

// TimeEntryWriter defines write operations for time entries.
type TimeEntryWriter interface {
	// CreateEntry inserts a new entry. A second row for the same (employee, date)
	// or a second open row for the employee fails with apperrors.ErrDuplicate.
	CreateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error)

	// UpdateEntry replaces the mutable fields of the entry with the same ID,
	// provided entry.Version still matches the stored version. It fails with
	// apperrors.ErrNotFound when the id is gone and apperrors.ErrConflict when the
	// row was changed in between. The returned entry carries the new version.
	UpdateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error)
}

// TimeEntryRepositoryFacade combines all time entry repository interfaces
type TimeEntryRepositoryFacade interface {
	TimeEntryReader
	TimeEntryWriter
}

// TimeEntryRepositoryWithTx extends TimeEntryRepositoryFacade with transaction capabilities
type TimeEntryRepositoryWithTx interface {
	TimeEntryRepositoryFacade
	TransactionManager
}
