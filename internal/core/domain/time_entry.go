package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a daily time entry.
type EntryStatus string

const (
	StatusActive      EntryStatus = "ACTIVE"
	StatusOnBreak     EntryStatus = "ON_BREAK"
	StatusUnavailable EntryStatus = "UNAVAILABLE"
	StatusSubmitted   EntryStatus = "SUBMITTED" // Closed for the day unless reactivated
)

// IsOpen reports whether the work session for the entry has not been closed.
func (s EntryStatus) IsOpen() bool {
	return s != StatusSubmitted
}

// IsValid reports whether s is one of the known statuses.
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusOnBreak, StatusUnavailable, StatusSubmitted:
		return true
	}
	return false
}

// DefaultUnavailableReason is recorded when an employee goes unavailable without saying why.
const DefaultUnavailableReason = "Not specified"

// TimeEntry is one employee's work record for a single calendar day.
type TimeEntry struct {
	ID         string      `json:"id"`         // Primary Key (UUID)
	EmployeeID string      `json:"employeeID"` // Owner, immutable
	Date       time.Time   `json:"date"`       // Work day, UTC midnight; immutable
	Status     EntryStatus `json:"status"`

	StartTime time.Time  `json:"startTime"`         // Start of the current session (reset on reactivation)
	EndTime   *time.Time `json:"endTime,omitempty"` // Only set while SUBMITTED

	// HoursWorked is final once SUBMITTED. While a reactivated entry is open it
	// holds the hours banked by the earlier sessions of the day.
	HoursWorked             decimal.Decimal `json:"hoursWorked"`
	TotalBreakMinutes       decimal.Decimal `json:"totalBreakMinutes"`
	TotalUnavailableMinutes decimal.Decimal `json:"totalUnavailableMinutes"`

	// Accumulator values at the moment the current session started.
	SessionBreakBase       decimal.Decimal `json:"sessionBreakBase"`
	SessionUnavailableBase decimal.Decimal `json:"sessionUnavailableBase"`

	LastBreakStart       *time.Time `json:"lastBreakStart,omitempty"`
	LastUnavailableStart *time.Time `json:"lastUnavailableStart,omitempty"`
	UnavailableReason    *string    `json:"unavailableReason,omitempty"`

	AuditFields
}

// IsOpen reports whether the entry's session has not been closed.
func (e *TimeEntry) IsOpen() bool {
	return e.Status.IsOpen()
}

// LastActivityAt is the latest timestamp known for the entry, used when a
// stale session has to be closed without a real clock-out.
func (e *TimeEntry) LastActivityAt() time.Time {
	last := e.StartTime
	for _, t := range []*time.Time{e.LastBreakStart, e.LastUnavailableStart, e.EndTime} {
		if t != nil && t.After(last) {
			last = *t
		}
	}
	if e.LastUpdatedAt.After(last) {
		last = e.LastUpdatedAt
	}
	return last
}

// NewTimeEntry builds a fresh ACTIVE entry for the given work day.
func NewTimeEntry(id, employeeID string, date, now time.Time) TimeEntry {
	return TimeEntry{
		ID:                      id,
		EmployeeID:              employeeID,
		Date:                    date,
		Status:                  StatusActive,
		StartTime:               now,
		HoursWorked:             decimal.Zero,
		TotalBreakMinutes:       decimal.Zero,
		TotalUnavailableMinutes: decimal.Zero,
		SessionBreakBase:        decimal.Zero,
		SessionUnavailableBase:  decimal.Zero,
		AuditFields: AuditFields{
			CreatedAt:     now,
			CreatedBy:     employeeID,
			LastUpdatedAt: now,
			LastUpdatedBy: employeeID,
			Version:       1,
		},
	}
}

// CheckInvariants verifies the status/timestamp pairing rules of an entry.
func (e *TimeEntry) CheckInvariants() error {
	if !e.Status.IsValid() {
		return invariantError("unknown status %q", e.Status)
	}
	if (e.LastBreakStart != nil) != (e.Status == StatusOnBreak) {
		return invariantError("lastBreakStart set=%t with status %s", e.LastBreakStart != nil, e.Status)
	}
	if (e.LastUnavailableStart != nil) != (e.Status == StatusUnavailable) {
		return invariantError("lastUnavailableStart set=%t with status %s", e.LastUnavailableStart != nil, e.Status)
	}
	if (e.EndTime != nil) != (e.Status == StatusSubmitted) {
		return invariantError("endTime set=%t with status %s", e.EndTime != nil, e.Status)
	}
	if e.HoursWorked.IsNegative() || e.TotalBreakMinutes.IsNegative() || e.TotalUnavailableMinutes.IsNegative() {
		return invariantError("negative accumulator on entry %s", e.ID)
	}
	return nil
}
