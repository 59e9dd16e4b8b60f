package pgsql

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	"github.com/SscSPs/timesheet_app/internal/models"
	"github.com/SscSPs/timesheet_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxTimeEntryRepository struct {
	BaseRepository
}

// newPgxTimeEntryRepository creates a new repository for time entry data.
func newPgxTimeEntryRepository(pool *pgxpool.Pool) portsrepo.TimeEntryRepositoryWithTx {
	return &PgxTimeEntryRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxTimeEntryRepository implements portsrepo.TimeEntryRepositoryWithTx
var _ portsrepo.TimeEntryRepositoryWithTx = (*PgxTimeEntryRepository)(nil)

const fullTimeEntrySelectQuery = `
SELECT
	t.time_entry_id, t.employee_id, t.work_date, t.status, t.start_time, t.end_time,
	t.hours_worked, t.total_break_minutes, t.total_unavailable_minutes,
	t.session_break_base, t.session_unavailable_base,
	t.last_break_start, t.last_unavailable_start, t.unavailable_reason,
	t.created_at, t.created_by, t.last_updated_at, t.last_updated_by, t.version
FROM time_entries t
`

// getEntries runs the select with the given filter. Inside a transaction the
// selected rows are locked until commit.
func (r *PgxTimeEntryRepository) getEntries(ctx context.Context, filterQuery string, args ...any) ([]domain.TimeEntry, error) {
	query := fullTimeEntrySelectQuery + filterQuery
	if r.inTx(ctx) {
		query += " FOR UPDATE"
	}
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query time entries", err)
	}
	defer rows.Close()
	modelEntries, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.TimeEntry])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.TimeEntry{}, nil
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to collect time entry rows", err)
	}
	return mapping.ToDomainTimeEntrySlice(modelEntries), nil
}

func (r *PgxTimeEntryRepository) getOne(ctx context.Context, filterQuery string, args ...any) (*domain.TimeEntry, error) {
	entries, err := r.getEntries(ctx, filterQuery, args...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *PgxTimeEntryRepository) FindOpenEntry(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return r.getOne(ctx, `WHERE t.employee_id = $1 AND t.status <> 'SUBMITTED' ORDER BY t.work_date DESC LIMIT 1`, employeeID)
}

func (r *PgxTimeEntryRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.TimeEntry, error) {
	return r.getOne(ctx, `WHERE t.employee_id = $1 AND t.work_date = $2`, employeeID, date)
}

func (r *PgxTimeEntryRepository) FindRecent(ctx context.Context, employeeID string, limit int) ([]domain.TimeEntry, error) {
	return r.getEntries(ctx, `WHERE t.employee_id = $1 ORDER BY t.work_date DESC, t.start_time DESC LIMIT $2`, employeeID, limit)
}

func (r *PgxTimeEntryRepository) ListEntries(ctx context.Context, employeeID string, before *time.Time, limit int) ([]domain.TimeEntry, error) {
	if before == nil {
		return r.FindRecent(ctx, employeeID, limit)
	}
	return r.getEntries(ctx, `WHERE t.employee_id = $1 AND t.work_date < $2 ORDER BY t.work_date DESC, t.start_time DESC LIMIT $3`, employeeID, *before, limit)
}

func (r *PgxTimeEntryRepository) CreateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	m := mapping.ToModelTimeEntry(entry)
	m.Version = 1
	query := `
		INSERT INTO time_entries (
			time_entry_id, employee_id, work_date, status, start_time, end_time,
			hours_worked, total_break_minutes, total_unavailable_minutes,
			session_break_base, session_unavailable_base,
			last_break_start, last_unavailable_start, unavailable_reason,
			created_at, created_by, last_updated_at, last_updated_by, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		m.TimeEntryID, m.EmployeeID, m.WorkDate, m.Status, m.StartTime, m.EndTime,
		m.HoursWorked, m.TotalBreakMinutes, m.TotalUnavailableMinutes,
		m.SessionBreakBase, m.SessionUnavailableBase,
		m.LastBreakStart, m.LastUnavailableStart, m.UnavailableReason,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError("time entry for employee " + entry.EmployeeID + " on " + entry.Date.Format(time.DateOnly) + " or another open entry already exists")
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to create time entry "+entry.ID, err)
	}
	created := mapping.ToDomainTimeEntry(m)
	return &created, nil
}

func (r *PgxTimeEntryRepository) UpdateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	m := mapping.ToModelTimeEntry(entry)
	query := `
		UPDATE time_entries
		SET status = $1, start_time = $2, end_time = $3,
			hours_worked = $4, total_break_minutes = $5, total_unavailable_minutes = $6,
			session_break_base = $7, session_unavailable_base = $8,
			last_break_start = $9, last_unavailable_start = $10, unavailable_reason = $11,
			last_updated_at = $12, last_updated_by = $13, version = version + 1
		WHERE time_entry_id = $14 AND version = $15;
	`
	result, err := r.db(ctx).Exec(ctx, query,
		m.Status, m.StartTime, m.EndTime,
		m.HoursWorked, m.TotalBreakMinutes, m.TotalUnavailableMinutes,
		m.SessionBreakBase, m.SessionUnavailableBase,
		m.LastBreakStart, m.LastUnavailableStart, m.UnavailableReason,
		m.LastUpdatedAt, m.LastUpdatedBy,
		m.TimeEntryID, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError("employee " + entry.EmployeeID + " already has an open time entry")
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to update time entry "+entry.ID, err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_entries WHERE time_entry_id = $1)`, entry.ID).Scan(&exists); err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to check time entry "+entry.ID, err)
		}
		if !exists {
			return nil, apperrors.NewNotFoundError("time entry " + entry.ID + " not found")
		}
		return nil, apperrors.NewConflictError("time entry " + entry.ID + " was modified concurrently")
	}

	updated := entry
	updated.Version = entry.Version + 1
	return &updated, nil
}
