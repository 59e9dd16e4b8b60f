package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	statuses := []domain.EntryStatus{domain.StatusActive, domain.StatusOnBreak, domain.StatusUnavailable, domain.StatusSubmitted}
	actions := []domain.Action{
		domain.ActionClockIn, domain.ActionClockOut,
		domain.ActionStartBreak, domain.ActionEndBreak,
		domain.ActionStartUnavailable, domain.ActionEndUnavailable,
	}
	allowed := map[domain.EntryStatus]map[domain.Action]domain.EntryStatus{
		domain.StatusActive: {
			domain.ActionClockOut:         domain.StatusSubmitted,
			domain.ActionStartBreak:       domain.StatusOnBreak,
			domain.ActionStartUnavailable: domain.StatusUnavailable,
		},
		domain.StatusOnBreak:     {domain.ActionEndBreak: domain.StatusActive},
		domain.StatusUnavailable: {domain.ActionEndUnavailable: domain.StatusActive},
		domain.StatusSubmitted:   {domain.ActionClockIn: domain.StatusActive},
	}

	for _, from := range statuses {
		for _, action := range actions {
			to, ok := domain.NextStatus(from, action)
			want, wantOK := allowed[from][action]
			assert.Equal(t, wantOK, ok, "%s + %s", from, action)
			assert.Equal(t, want, to, "%s + %s", from, action)
		}
	}
}

func TestEntryErrorsMatchSentinels(t *testing.T) {
	entry := domain.NewTimeEntry("e1", "emp", day, at(9, 0))

	var err error = &domain.AlreadyActiveError{Entry: entry, Age: 26 * time.Hour}
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyActive))
	assert.False(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "2024-03-11")

	err = &domain.InvalidTransitionError{Status: domain.StatusOnBreak, Action: domain.ActionClockOut}
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.Equal(t, "cannot CLOCK_OUT while ON_BREAK", err.Error())

	err = &domain.InvalidTransitionError{Action: domain.ActionEndBreak}
	assert.Equal(t, "cannot END_BREAK while NO_ENTRY", err.Error())
}

func TestTimeEntry_CheckInvariants(t *testing.T) {
	e := domain.NewTimeEntry("e1", "emp", day, at(9, 0))
	assert.NoError(t, e.CheckInvariants())

	e.Status = domain.StatusOnBreak
	assert.ErrorIs(t, e.CheckInvariants(), apperrors.ErrValidation)
	e.LastBreakStart = timePtr(at(10, 0))
	assert.NoError(t, e.CheckInvariants())

	e.Status = domain.StatusSubmitted
	e.LastBreakStart = nil
	assert.Error(t, e.CheckInvariants(), "submitted without end time")
	e.EndTime = timePtr(at(17, 0))
	assert.NoError(t, e.CheckInvariants())
}

func TestTimeEntry_LastActivityAt(t *testing.T) {
	e := domain.NewTimeEntry("e1", "emp", day, at(9, 0))
	assert.Equal(t, at(9, 0), e.LastActivityAt())

	e.Status = domain.StatusOnBreak
	e.LastBreakStart = timePtr(at(12, 0))
	e.LastUpdatedAt = at(12, 0)
	assert.Equal(t, at(12, 0), e.LastActivityAt())
}
