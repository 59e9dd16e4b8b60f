package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClockInOptions tunes a clock-in request.
type ClockInOptions struct {
	// Force closes a stale open entry instead of failing with AlreadyActiveError.
	Force bool
}

// StatusSnapshot is a read-only view of an employee's timesheet at AsOf.
type StatusSnapshot struct {
	EmployeeID     string          `json:"employeeID"`
	OpenEntry      *TimeEntry      `json:"openEntry,omitempty"`
	TodayEntry     *TimeEntry      `json:"todayEntry,omitempty"`
	RecentEntries  []TimeEntry     `json:"recentEntries"`
	HoursWorked    decimal.Decimal `json:"hoursWorked"`
	RemainingHours decimal.Decimal `json:"remainingHours"`
	WorkdayHours   decimal.Decimal `json:"workdayHours"`
	AsOf           time.Time       `json:"asOf"`
}

// CurrentStatus returns the status the snapshot should display; the zero value means no entry.
func (s StatusSnapshot) CurrentStatus() EntryStatus {
	if s.OpenEntry != nil {
		return s.OpenEntry.Status
	}
	if s.TodayEntry != nil {
		return s.TodayEntry.Status
	}
	return ""
}

// HistoryPage is one page of an employee's entries, newest first.
type HistoryPage struct {
	Entries   []TimeEntry `json:"entries"`
	NextToken *string     `json:"nextToken,omitempty"`
}
