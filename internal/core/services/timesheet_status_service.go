package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	"github.com/SscSPs/timesheet_app/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// statusService composes repository reads with Clock Model projections.
// It never writes and never takes the per-employee transition lock.
type statusService struct {
	BaseService
	*timesheetSettings
	entryRepo portsrepo.TimeEntryReader
}

// GetStatus returns the full status snapshot including recent history.
func (s *statusService) GetStatus(ctx context.Context, employeeID string) (*domain.StatusSnapshot, error) {
	return s.snapshot(ctx, employeeID, true)
}

// GetLiveStatus returns the status snapshot without history.
func (s *statusService) GetLiveStatus(ctx context.Context, employeeID string) (*domain.StatusSnapshot, error) {
	return s.snapshot(ctx, employeeID, false)
}

func (s *statusService) snapshot(ctx context.Context, employeeID string, withHistory bool) (*domain.StatusSnapshot, error) {
	employeeID, err := normalizeEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	today := domain.WorkDate(now, s.location)

	open, err := s.entryRepo.FindOpenEntry(ctx, employeeID)
	if err != nil {
		s.LogError(ctx, err, "Failed to find open entry for status", slog.String("employee_id", employeeID))
		return nil, fmt.Errorf("failed to find open entry for employee %s: %w", employeeID, err)
	}

	// Reuse the open row when it is today's so both views come from one read.
	todayEntry := open
	if open == nil || !open.Date.Equal(today) {
		todayEntry, err = s.entryRepo.FindByEmployeeAndDate(ctx, employeeID, today)
		if err != nil {
			s.LogError(ctx, err, "Failed to find today's entry for status", slog.String("employee_id", employeeID))
			return nil, fmt.Errorf("failed to find today's entry for employee %s: %w", employeeID, err)
		}
	}

	snapshot := &domain.StatusSnapshot{
		EmployeeID:     employeeID,
		OpenEntry:      open,
		TodayEntry:     todayEntry,
		RecentEntries:  []domain.TimeEntry{},
		HoursWorked:    decimal.Zero,
		RemainingHours: s.workdayHours,
		WorkdayHours:   s.workdayHours,
		AsOf:           now,
	}

	basis := open
	if basis == nil {
		basis = todayEntry
	}
	if basis != nil {
		snapshot.HoursWorked = domain.ComputeLiveWorkedHours(*basis, now)
		snapshot.RemainingHours = domain.ComputeRemainingHours(*basis, now, s.workdayHours)
	}

	if withHistory {
		recent, err := s.entryRepo.FindRecent(ctx, employeeID, s.recentLimit)
		if err != nil {
			s.LogError(ctx, err, "Failed to list recent entries for status", slog.String("employee_id", employeeID))
			return nil, fmt.Errorf("failed to list recent entries for employee %s: %w", employeeID, err)
		}
		if recent != nil {
			snapshot.RecentEntries = recent
		}
	}

	s.LogDebug(ctx, "Timesheet status assembled",
		slog.String("employee_id", employeeID),
		slog.String("status", string(snapshot.CurrentStatus())),
		slog.String("hours_worked", snapshot.HoursWorked.String()))
	return snapshot, nil
}

// ListHistory pages through the employee's entries, newest first.
func (s *statusService) ListHistory(ctx context.Context, employeeID string, pageToken string, limit int) (*domain.HistoryPage, error) {
	employeeID, err := normalizeEmployeeID(employeeID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var before *time.Time
	if pageToken != "" {
		date, err := pagination.DecodeDateToken(employeeID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		before = &date
	}

	// Fetch one extra row to learn whether another page exists.
	entries, err := s.entryRepo.ListEntries(ctx, employeeID, before, limit+1)
	if err != nil {
		s.LogError(ctx, err, "Failed to list entry history", slog.String("employee_id", employeeID))
		return nil, fmt.Errorf("failed to list history for employee %s: %w", employeeID, err)
	}
	page := &domain.HistoryPage{Entries: []domain.TimeEntry{}}
	if len(entries) > limit {
		entries = entries[:limit]
		token := pagination.EncodeDateToken(employeeID, entries[len(entries)-1].Date)
		page.NextToken = &token
	}
	if entries != nil {
		page.Entries = entries
	}
	return page, nil
}
