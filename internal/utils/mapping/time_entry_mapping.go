package mapping

import (
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	"github.com/SscSPs/timesheet_app/internal/models"
)

// ToModelTimeEntry converts a domain TimeEntry to a model TimeEntry
func ToModelTimeEntry(d domain.TimeEntry) models.TimeEntry {
	return models.TimeEntry{
		TimeEntryID:             d.ID,
		EmployeeID:              d.EmployeeID,
		WorkDate:                d.Date,
		Status:                  string(d.Status),
		StartTime:               d.StartTime,
		EndTime:                 d.EndTime,
		HoursWorked:             d.HoursWorked,
		TotalBreakMinutes:       d.TotalBreakMinutes,
		TotalUnavailableMinutes: d.TotalUnavailableMinutes,
		SessionBreakBase:        d.SessionBreakBase,
		SessionUnavailableBase:  d.SessionUnavailableBase,
		LastBreakStart:          d.LastBreakStart,
		LastUnavailableStart:    d.LastUnavailableStart,
		UnavailableReason:       d.UnavailableReason,
		AuditFields:             ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTimeEntry converts a model TimeEntry to a domain TimeEntry
func ToDomainTimeEntry(m models.TimeEntry) domain.TimeEntry {
	return domain.TimeEntry{
		ID:                      m.TimeEntryID,
		EmployeeID:              m.EmployeeID,
		Date:                    m.WorkDate,
		Status:                  domain.EntryStatus(m.Status),
		StartTime:               m.StartTime,
		EndTime:                 m.EndTime,
		HoursWorked:             m.HoursWorked,
		TotalBreakMinutes:       m.TotalBreakMinutes,
		TotalUnavailableMinutes: m.TotalUnavailableMinutes,
		SessionBreakBase:        m.SessionBreakBase,
		SessionUnavailableBase:  m.SessionUnavailableBase,
		LastBreakStart:          m.LastBreakStart,
		LastUnavailableStart:    m.LastUnavailableStart,
		UnavailableReason:       m.UnavailableReason,
		AuditFields:             ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainTimeEntrySlice converts a slice of model TimeEntries to a slice of domain TimeEntries
func ToDomainTimeEntrySlice(ms []models.TimeEntry) []domain.TimeEntry {
	ds := make([]domain.TimeEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainTimeEntry(m)
	}
	return ds
}
