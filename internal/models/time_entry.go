package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeEntry is the persisted row of the time_entries table.
type TimeEntry struct {
	TimeEntryID             string          `db:"time_entry_id"`
	EmployeeID              string          `db:"employee_id"`
	WorkDate                time.Time       `db:"work_date"`
	Status                  string          `db:"status"`
	StartTime               time.Time       `db:"start_time"`
	EndTime                 *time.Time      `db:"end_time"`
	HoursWorked             decimal.Decimal `db:"hours_worked"`
	TotalBreakMinutes       decimal.Decimal `db:"total_break_minutes"`
	TotalUnavailableMinutes decimal.Decimal `db:"total_unavailable_minutes"`
	SessionBreakBase        decimal.Decimal `db:"session_break_base"`
	SessionUnavailableBase  decimal.Decimal `db:"session_unavailable_base"`
	LastBreakStart          *time.Time      `db:"last_break_start"`
	LastUnavailableStart    *time.Time      `db:"last_unavailable_start"`
	UnavailableReason       *string         `db:"unavailable_reason"`
	AuditFields
}
