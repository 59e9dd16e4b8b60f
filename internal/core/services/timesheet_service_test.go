package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portssvc "github.com/SscSPs/timesheet_app/internal/core/ports/services"
	"github.com/SscSPs/timesheet_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TimesheetServiceTestSuite struct {
	suite.Suite
	repo      *MockTimeEntryRepository
	clock     *fakeClock
	publisher *recordingPublisher
	svc       portssvc.TimesheetSvcFacade
	ctx       context.Context
}

func (s *TimesheetServiceTestSuite) SetupTest() {
	s.repo = new(MockTimeEntryRepository)
	s.clock = newFakeClock(at(4, 9, 0))
	s.publisher = &recordingPublisher{}
	s.svc = services.NewTimesheetService(s.repo,
		services.WithClock(s.clock.Now),
		services.WithIDGenerator(func() string { return "entry-1" }),
		services.WithEventPublisher(s.publisher),
	)
	s.ctx = context.Background()
}

func TestTimesheetService(t *testing.T) {
	suite.Run(t, new(TimesheetServiceTestSuite))
}

// returnUpdated echoes the entry passed to UpdateEntry with a bumped version.
func returnUpdated(_ context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	entry.Version++
	return &entry, nil
}

func activeEntry(start time.Time) *domain.TimeEntry {
	e := domain.NewTimeEntry("entry-1", "emp-1", workDay(start.Day()), start)
	return &e
}

func (s *TimesheetServiceTestSuite) TestClockIn_CreatesEntry() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(nil, nil).Once()
	s.repo.On("FindByEmployeeAndDate", mock.Anything, "emp-1", workDay(4)).Return(nil, nil).Once()
	s.repo.On("CreateEntry", mock.Anything, mock.MatchedBy(func(e domain.TimeEntry) bool {
		return e.ID == "entry-1" && e.EmployeeID == "emp-1" && e.Status == domain.StatusActive &&
			e.StartTime.Equal(at(4, 9, 0)) && e.Date.Equal(workDay(4)) && e.HoursWorked.IsZero()
	})).Return(activeEntry(at(4, 9, 0)), nil).Once()

	entry, err := s.svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})

	s.Require().NoError(err)
	s.Equal(domain.StatusActive, entry.Status)
	s.repo.AssertExpectations(s.T())
	events := s.publisher.Events()
	s.Require().Len(events, 1)
	s.Equal(domain.ActionClockIn, events[0].Action)
	s.Equal("emp-1", events[0].EmployeeID)
}

func (s *TimesheetServiceTestSuite) TestClockIn_AlreadyActive() {
	open := activeEntry(at(3, 9, 0))
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(open, nil).Once()

	entry, err := s.svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})

	s.Nil(entry)
	s.Require().ErrorIs(err, apperrors.ErrAlreadyActive)
	var active *domain.AlreadyActiveError
	s.Require().True(errors.As(err, &active))
	s.Equal("entry-1", active.Entry.ID)
	s.Equal(24*time.Hour, active.Age)
	s.repo.AssertNotCalled(s.T(), "UpdateEntry", mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "CreateEntry", mock.Anything, mock.Anything)
	s.Empty(s.publisher.Events())
}

func (s *TimesheetServiceTestSuite) TestClockIn_RejectsBlankEmployee() {
	_, err := s.svc.ClockIn(s.ctx, "  ", domain.ClockInOptions{})
	s.ErrorIs(err, apperrors.ErrValidation)
	s.repo.AssertNotCalled(s.T(), "FindOpenEntry", mock.Anything, mock.Anything)
}

func (s *TimesheetServiceTestSuite) TestClockIn_CreateDuplicateIsRetryable() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(nil, nil).Once()
	s.repo.On("FindByEmployeeAndDate", mock.Anything, "emp-1", workDay(4)).Return(nil, nil).Once()
	s.repo.On("CreateEntry", mock.Anything, mock.Anything).Return(nil, apperrors.NewDuplicateError("exists")).Once()

	_, err := s.svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})

	s.ErrorIs(err, apperrors.ErrDuplicate)
	s.True(apperrors.IsRetryable(err))
	s.Empty(s.publisher.Events())
}

func (s *TimesheetServiceTestSuite) TestClockOut_ComputesHours() {
	s.clock.Set(at(4, 17, 0))
	open := activeEntry(at(4, 9, 0))
	open.TotalBreakMinutes = decimal.NewFromInt(30)
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(open, nil).Once()
	s.repo.On("UpdateEntry", mock.Anything, mock.Anything).Return(returnUpdated).Once()

	entry, err := s.svc.ClockOut(s.ctx, "emp-1")

	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, entry.Status)
	s.True(entry.HoursWorked.Equal(decimal.RequireFromString("7.5")), entry.HoursWorked.String())
	s.Require().NotNil(entry.EndTime)
	s.True(entry.EndTime.Equal(at(4, 17, 0)))
	s.Equal(int64(2), entry.Version)
	s.True(entry.LastUpdatedAt.Equal(at(4, 17, 0)))
}

func (s *TimesheetServiceTestSuite) TestEndBreak_NotOnBreakDoesNotWrite() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(activeEntry(at(4, 9, 0)), nil).Once()

	_, err := s.svc.EndBreak(s.ctx, "emp-1")

	s.Require().ErrorIs(err, apperrors.ErrInvalidTransition)
	var invalid *domain.InvalidTransitionError
	s.Require().True(errors.As(err, &invalid))
	s.Equal(domain.StatusActive, invalid.Status)
	s.Equal(domain.ActionEndBreak, invalid.Action)
	s.repo.AssertNotCalled(s.T(), "UpdateEntry", mock.Anything, mock.Anything)
}

func (s *TimesheetServiceTestSuite) TestStartBreak_NoEntryNamesTodaysStatus() {
	submitted := activeEntry(at(4, 9, 0))
	submitted.Status = domain.StatusSubmitted
	end := at(4, 12, 0)
	submitted.EndTime = &end
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(nil, nil).Once()
	s.repo.On("FindByEmployeeAndDate", mock.Anything, "emp-1", workDay(4)).Return(submitted, nil).Once()

	_, err := s.svc.StartBreak(s.ctx, "emp-1")

	var invalid *domain.InvalidTransitionError
	s.Require().True(errors.As(err, &invalid))
	s.Equal(domain.StatusSubmitted, invalid.Status)
}

func (s *TimesheetServiceTestSuite) TestStartBreak_NoEntryAtAll() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(nil, nil).Once()
	s.repo.On("FindByEmployeeAndDate", mock.Anything, "emp-1", workDay(4)).Return(nil, nil).Once()

	_, err := s.svc.StartBreak(s.ctx, "emp-1")

	s.ErrorIs(err, apperrors.ErrInvalidTransition)
	s.Contains(err.Error(), "NO_ENTRY")
}

func (s *TimesheetServiceTestSuite) TestStartUnavailable_DefaultsReason() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(activeEntry(at(4, 9, 0)), nil).Once()
	s.repo.On("UpdateEntry", mock.Anything, mock.Anything).Return(returnUpdated).Once()

	entry, err := s.svc.StartUnavailable(s.ctx, "emp-1", "   ")

	s.Require().NoError(err)
	s.Equal(domain.StatusUnavailable, entry.Status)
	s.Require().NotNil(entry.UnavailableReason)
	s.Equal(domain.DefaultUnavailableReason, *entry.UnavailableReason)
	s.Require().NotNil(entry.LastUnavailableStart)
}

func (s *TimesheetServiceTestSuite) TestRepositoryErrorsAreWrapped() {
	dbErr := errors.New("connection reset")
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(activeEntry(at(4, 9, 0)), nil).Once()
	s.repo.On("UpdateEntry", mock.Anything, mock.Anything).Return(nil, dbErr).Once()

	_, err := s.svc.StartBreak(s.ctx, "emp-1")

	s.Require().ErrorIs(err, dbErr)
	s.Contains(err.Error(), "emp-1")
	s.Contains(err.Error(), "entry-1")
	s.Contains(err.Error(), string(domain.ActionStartBreak))
	s.False(apperrors.IsRetryable(err))
}

func (s *TimesheetServiceTestSuite) TestUpdateConflictIsRetryable() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(activeEntry(at(4, 9, 0)), nil).Once()
	s.repo.On("UpdateEntry", mock.Anything, mock.Anything).Return(nil, apperrors.NewConflictError("moved")).Once()

	_, err := s.svc.ClockOut(s.ctx, "emp-1")

	s.ErrorIs(err, apperrors.ErrConflict)
	s.True(apperrors.IsRetryable(err))
}

func (s *TimesheetServiceTestSuite) TestGetStatus_NoEntries() {
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(nil, nil).Once()
	s.repo.On("FindByEmployeeAndDate", mock.Anything, "emp-1", workDay(4)).Return(nil, nil).Once()
	s.repo.On("FindRecent", mock.Anything, "emp-1", 7).Return(nil, nil).Once()

	snapshot, err := s.svc.GetStatus(s.ctx, "emp-1")

	s.Require().NoError(err)
	s.Nil(snapshot.OpenEntry)
	s.Nil(snapshot.TodayEntry)
	s.NotNil(snapshot.RecentEntries)
	s.Empty(snapshot.RecentEntries)
	s.True(snapshot.HoursWorked.IsZero())
	s.True(snapshot.RemainingHours.Equal(decimal.NewFromInt(8)))
	s.Equal(domain.EntryStatus(""), snapshot.CurrentStatus())
}

func (s *TimesheetServiceTestSuite) TestGetLiveStatus_ReusesOpenEntryAndSkipsHistory() {
	s.clock.Set(at(4, 12, 30))
	open := activeEntry(at(4, 9, 0))
	open.Status = domain.StatusOnBreak
	breakStart := at(4, 12, 0)
	open.LastBreakStart = &breakStart
	s.repo.On("FindOpenEntry", mock.Anything, "emp-1").Return(open, nil).Once()

	snapshot, err := s.svc.GetLiveStatus(s.ctx, "emp-1")

	s.Require().NoError(err)
	s.Equal(open, snapshot.TodayEntry)
	s.Equal(domain.StatusOnBreak, snapshot.CurrentStatus())
	// 3h before the running break started.
	s.True(snapshot.HoursWorked.Equal(decimal.NewFromInt(3)), snapshot.HoursWorked.String())
	s.True(snapshot.RemainingHours.Equal(decimal.NewFromInt(5)), snapshot.RemainingHours.String())
	s.repo.AssertNotCalled(s.T(), "FindByEmployeeAndDate", mock.Anything, mock.Anything, mock.Anything)
	s.repo.AssertNotCalled(s.T(), "FindRecent", mock.Anything, mock.Anything, mock.Anything)
}

func (s *TimesheetServiceTestSuite) TestListHistory_InvalidToken() {
	_, err := s.svc.ListHistory(s.ctx, "emp-1", "not-a-token", 10)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TimesheetServiceTestSuite) TestListHistory_ClampsLimit() {
	s.repo.On("ListEntries", mock.Anything, "emp-1", (*time.Time)(nil), 101).Return([]domain.TimeEntry{}, nil).Once()

	page, err := s.svc.ListHistory(s.ctx, "emp-1", "", 5000)

	s.Require().NoError(err)
	s.Empty(page.Entries)
	s.Nil(page.NextToken)
	s.repo.AssertExpectations(s.T())
}

func TestParseForceClosePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    services.ForceClosePolicy
		wantErr bool
	}{
		{"", services.ForceCloseAtNow, false},
		{"now", services.ForceCloseAtNow, false},
		{" LAST_ACTIVITY ", services.ForceCloseAtLastActivity, false},
		{"yesterday", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := services.ParseForceClosePolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
