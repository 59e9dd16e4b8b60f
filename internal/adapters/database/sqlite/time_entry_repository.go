package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	"github.com/SscSPs/timesheet_app/internal/models"
	"github.com/SscSPs/timesheet_app/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

// Timestamps are stored in UTC with a fixed-width fraction so they sort as text.
const (
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout      = time.DateOnly
)

type SQLiteTimeEntryRepository struct {
	BaseRepository
}

// NewTimeEntryRepository creates a time entry repository on an opened database.
func NewTimeEntryRepository(db *sql.DB) portsrepo.TimeEntryRepositoryWithTx {
	return &SQLiteTimeEntryRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.TimeEntryRepositoryWithTx = (*SQLiteTimeEntryRepository)(nil)

const fullTimeEntrySelectQuery = `
SELECT
	time_entry_id, employee_id, work_date, status, start_time, end_time,
	hours_worked, total_break_minutes, total_unavailable_minutes,
	session_break_base, session_unavailable_base,
	last_break_start, last_unavailable_start, unavailable_reason,
	created_at, created_by, last_updated_at, last_updated_by, version
FROM time_entries
`

func (r *SQLiteTimeEntryRepository) getEntries(ctx context.Context, filterQuery string, args ...any) ([]domain.TimeEntry, error) {
	rows, err := r.db(ctx).QueryContext(ctx, fullTimeEntrySelectQuery+filterQuery, args...)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query time entries", err)
	}
	defer rows.Close()

	entries := []domain.TimeEntry{}
	for rows.Next() {
		m, err := scanTimeEntry(rows)
		if err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan time entry row", err)
		}
		entries = append(entries, mapping.ToDomainTimeEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to iterate time entry rows", err)
	}
	return entries, nil
}

func (r *SQLiteTimeEntryRepository) getOne(ctx context.Context, filterQuery string, args ...any) (*domain.TimeEntry, error) {
	entries, err := r.getEntries(ctx, filterQuery, args...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (r *SQLiteTimeEntryRepository) FindOpenEntry(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	return r.getOne(ctx, `WHERE employee_id = ? AND status <> 'SUBMITTED' ORDER BY work_date DESC LIMIT 1`, employeeID)
}

func (r *SQLiteTimeEntryRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.TimeEntry, error) {
	return r.getOne(ctx, `WHERE employee_id = ? AND work_date = ?`, employeeID, formatDate(date))
}

func (r *SQLiteTimeEntryRepository) FindRecent(ctx context.Context, employeeID string, limit int) ([]domain.TimeEntry, error) {
	return r.getEntries(ctx, `WHERE employee_id = ? ORDER BY work_date DESC, start_time DESC LIMIT ?`, employeeID, limit)
}

func (r *SQLiteTimeEntryRepository) ListEntries(ctx context.Context, employeeID string, before *time.Time, limit int) ([]domain.TimeEntry, error) {
	if before == nil {
		return r.FindRecent(ctx, employeeID, limit)
	}
	return r.getEntries(ctx, `WHERE employee_id = ? AND work_date < ? ORDER BY work_date DESC, start_time DESC LIMIT ?`, employeeID, formatDate(*before), limit)
}

func (r *SQLiteTimeEntryRepository) CreateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := r.db(ctx).ExecContext(ctx, query,
		m.TimeEntryID, m.EmployeeID, formatDate(m.WorkDate), m.Status, formatTimestamp(m.StartTime), formatNullTimestamp(m.EndTime),
		m.HoursWorked.String(), m.TotalBreakMinutes.String(), m.TotalUnavailableMinutes.String(),
		m.SessionBreakBase.String(), m.SessionUnavailableBase.String(),
		formatNullTimestamp(m.LastBreakStart), formatNullTimestamp(m.LastUnavailableStart), nullString(m.UnavailableReason),
		formatTimestamp(m.CreatedAt), m.CreatedBy, formatTimestamp(m.LastUpdatedAt), m.LastUpdatedBy, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError("time entry for employee " + entry.EmployeeID + " on " + formatDate(entry.Date) + " or another open entry already exists")
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to create time entry "+entry.ID, err)
	}
	created := mapping.ToDomainTimeEntry(m)
	return &created, nil
}

func (r *SQLiteTimeEntryRepository) UpdateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	m := mapping.ToModelTimeEntry(entry)
	query := `
		UPDATE time_entries
		SET status = ?, start_time = ?, end_time = ?,
			hours_worked = ?, total_break_minutes = ?, total_unavailable_minutes = ?,
			session_break_base = ?, session_unavailable_base = ?,
			last_break_start = ?, last_unavailable_start = ?, unavailable_reason = ?,
			last_updated_at = ?, last_updated_by = ?, version = version + 1
		WHERE time_entry_id = ? AND version = ?;
	`
	result, err := r.db(ctx).ExecContext(ctx, query,
		m.Status, formatTimestamp(m.StartTime), formatNullTimestamp(m.EndTime),
		m.HoursWorked.String(), m.TotalBreakMinutes.String(), m.TotalUnavailableMinutes.String(),
		m.SessionBreakBase.String(), m.SessionUnavailableBase.String(),
		formatNullTimestamp(m.LastBreakStart), formatNullTimestamp(m.LastUnavailableStart), nullString(m.UnavailableReason),
		formatTimestamp(m.LastUpdatedAt), m.LastUpdatedBy,
		m.TimeEntryID, m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateError("employee " + entry.EmployeeID + " already has an open time entry")
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to update time entry "+entry.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to read affected rows for time entry "+entry.ID, err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM time_entries WHERE time_entry_id = ?)`, entry.ID).Scan(&exists); err != nil {
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

func scanTimeEntry(rows *sql.Rows) (models.TimeEntry, error) {
	var (
		m                                                        models.TimeEntry
		workDate, startTime, createdAt, updatedAt                string
		hours, breakMin, unavailMin, breakBase, unavailBase      string
		endTime, lastBreakStart, lastUnavailStart, unavailReason sql.NullString
	)
	err := rows.Scan(
		&m.TimeEntryID, &m.EmployeeID, &workDate, &m.Status, &startTime, &endTime,
		&hours, &breakMin, &unavailMin, &breakBase, &unavailBase,
		&lastBreakStart, &lastUnavailStart, &unavailReason,
		&createdAt, &m.CreatedBy, &updatedAt, &m.LastUpdatedBy, &m.Version,
	)
	if err != nil {
		return m, err
	}

	p := &rowParser{}
	m.WorkDate = p.date(workDate)
	m.StartTime = p.timestamp(startTime)
	m.EndTime = p.nullTimestamp(endTime)
	m.HoursWorked = p.decimal(hours)
	m.TotalBreakMinutes = p.decimal(breakMin)
	m.TotalUnavailableMinutes = p.decimal(unavailMin)
	m.SessionBreakBase = p.decimal(breakBase)
	m.SessionUnavailableBase = p.decimal(unavailBase)
	m.LastBreakStart = p.nullTimestamp(lastBreakStart)
	m.LastUnavailableStart = p.nullTimestamp(lastUnavailStart)
	if unavailReason.Valid {
		reason := unavailReason.String
		m.UnavailableReason = &reason
	}
	m.CreatedAt = p.timestamp(createdAt)
	m.LastUpdatedAt = p.timestamp(updatedAt)
	return m, p.err
}

// rowParser keeps the first conversion error so a row is parsed in one pass.
type rowParser struct {
	err error
}

func (p *rowParser) date(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse date %q: %w", s, err)
	}
	return t
}

func (p *rowParser) timestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC()
}

func (p *rowParser) nullTimestamp(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := p.timestamp(s.String)
	return &t
}

func (p *rowParser) decimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatNullTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
