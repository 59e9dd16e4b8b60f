package dto

import (
	"time"

	"github.com/SscSPs/timesheet_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ClockInRequest defines the optional body of a clock-in call.
type ClockInRequest struct {
	// Force closes a forgotten open entry instead of failing with 409.
	Force bool `json:"force"`
}

// StartUnavailableRequest defines the optional body of an unavailable-start call.
type StartUnavailableRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// ListHistoryParams defines query parameters for the history endpoint.
type ListHistoryParams struct {
	Limit     int    `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// TimeEntryResponse defines the data returned for a time entry.
// Mirrors domain.TimeEntry without the session bookkeeping fields.
type TimeEntryResponse struct {
	ID                      string             `json:"id"`
	EmployeeID              string             `json:"employeeID"`
	Date                    string             `json:"date"` // YYYY-MM-DD
	Status                  domain.EntryStatus `json:"status"`
	StartTime               time.Time          `json:"startTime"`
	EndTime                 *time.Time         `json:"endTime,omitempty"`
	HoursWorked             decimal.Decimal    `json:"hoursWorked"`
	TotalBreakMinutes       decimal.Decimal    `json:"totalBreakMinutes"`
	TotalUnavailableMinutes decimal.Decimal    `json:"totalUnavailableMinutes"`
	LastBreakStart          *time.Time         `json:"lastBreakStart,omitempty"`
	LastUnavailableStart    *time.Time         `json:"lastUnavailableStart,omitempty"`
	UnavailableReason       *string            `json:"unavailableReason,omitempty"`
	CreatedAt               time.Time          `json:"createdAt"`
	LastUpdatedAt           time.Time          `json:"lastUpdatedAt"`
	Version                 int64              `json:"version"`
}

// StatusResponse is the employee's current timesheet view.
type StatusResponse struct {
	Status         string              `json:"status"` // NO_ENTRY when there is nothing today
	OpenEntry      *TimeEntryResponse  `json:"openEntry,omitempty"`
	TodayEntry     *TimeEntryResponse  `json:"todayEntry,omitempty"`
	RecentEntries  []TimeEntryResponse `json:"recentEntries,omitempty"`
	HoursWorked    decimal.Decimal     `json:"hoursWorked"`
	RemainingHours decimal.Decimal     `json:"remainingHours"`
	WorkdayHours   decimal.Decimal     `json:"workdayHours"`
	AsOf           time.Time           `json:"asOf"`
}

// HistoryResponse is one page of past entries.
type HistoryResponse struct {
	Entries   []TimeEntryResponse `json:"entries"`
	NextToken *string             `json:"nextToken,omitempty"`
}

// ErrorResponse is the body of every failed timesheet call.
type ErrorResponse struct {
	Code           string             `json:"code"`
	Error          string             `json:"error"`
	Retryable      bool               `json:"retryable,omitempty"`
	ForceAvailable bool               `json:"forceAvailable,omitempty"`
	ActiveEntry    *TimeEntryResponse `json:"activeEntry,omitempty"`
	OpenForSeconds *int64             `json:"openForSeconds,omitempty"`
	Fields         map[string]string  `json:"fields,omitempty"`
}

// ToTimeEntryResponse converts a domain.TimeEntry to TimeEntryResponse DTO
func ToTimeEntryResponse(e *domain.TimeEntry) TimeEntryResponse {
	return TimeEntryResponse{
		ID:                      e.ID,
		EmployeeID:              e.EmployeeID,
		Date:                    e.Date.Format(time.DateOnly),
		Status:                  e.Status,
		StartTime:               e.StartTime,
		EndTime:                 e.EndTime,
		HoursWorked:             e.HoursWorked,
		TotalBreakMinutes:       e.TotalBreakMinutes,
		TotalUnavailableMinutes: e.TotalUnavailableMinutes,
		LastBreakStart:          e.LastBreakStart,
		LastUnavailableStart:    e.LastUnavailableStart,
		UnavailableReason:       e.UnavailableReason,
		CreatedAt:               e.CreatedAt,
		LastUpdatedAt:           e.LastUpdatedAt,
		Version:                 e.Version,
	}
}

func toTimeEntryResponsePtr(e *domain.TimeEntry) *TimeEntryResponse {
	if e == nil {
		return nil
	}
	res := ToTimeEntryResponse(e)
	return &res
}

// ToListTimeEntryResponse converts a slice of domain.TimeEntry to a slice of TimeEntryResponse DTOs
func ToListTimeEntryResponse(entries []domain.TimeEntry) []TimeEntryResponse {
	res := make([]TimeEntryResponse, len(entries))
	for i := range entries {
		res[i] = ToTimeEntryResponse(&entries[i])
	}
	return res
}

// ToStatusResponse converts a domain.StatusSnapshot to StatusResponse DTO
func ToStatusResponse(s *domain.StatusSnapshot) StatusResponse {
	status := string(s.CurrentStatus())
	if status == "" {
		status = "NO_ENTRY"
	}
	res := StatusResponse{
		Status:         status,
		OpenEntry:      toTimeEntryResponsePtr(s.OpenEntry),
		TodayEntry:     toTimeEntryResponsePtr(s.TodayEntry),
		HoursWorked:    s.HoursWorked,
		RemainingHours: s.RemainingHours,
		WorkdayHours:   s.WorkdayHours,
		AsOf:           s.AsOf,
	}
	if len(s.RecentEntries) > 0 {
		res.RecentEntries = ToListTimeEntryResponse(s.RecentEntries)
	}
	return res
}

// ToHistoryResponse converts a domain.HistoryPage to HistoryResponse DTO
func ToHistoryResponse(p *domain.HistoryPage) HistoryResponse {
	return HistoryResponse{
		Entries:   ToListTimeEntryResponse(p.Entries),
		NextToken: p.NextToken,
	}
}

// NewActiveEntryConflict builds the 409 body for a clock-in blocked by an open entry.
func NewActiveEntryConflict(err *domain.AlreadyActiveError) ErrorResponse {
	entry := ToTimeEntryResponse(&err.Entry)
	openFor := int64(err.Age / time.Second)
	return ErrorResponse{
		Code:           "AlreadyActive",
		Error:          err.Error(),
		ForceAvailable: true,
		ActiveEntry:    &entry,
		OpenForSeconds: &openFor,
	}
}
