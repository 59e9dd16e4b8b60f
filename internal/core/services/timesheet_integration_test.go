package services_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/timesheet_app/internal/adapters/database/sqlite"
	"github.com/SscSPs/timesheet_app/internal/apperrors"
	"github.com/SscSPs/timesheet_app/internal/core/domain"
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/timesheet_app/internal/core/ports/services"
	"github.com/SscSPs/timesheet_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// TimesheetLifecycleTestSuite drives the service against a real sqlite store.
type TimesheetLifecycleTestSuite struct {
	suite.Suite
	db    *sql.DB
	repo  portsrepo.TimeEntryRepositoryWithTx
	clock *fakeClock
	ctx   context.Context
}

func TestTimesheetLifecycle(t *testing.T) {
	suite.Run(t, new(TimesheetLifecycleTestSuite))
}

func (s *TimesheetLifecycleTestSuite) SetupTest() {
	db, err := sqlite.Open(":memory:")
	s.Require().NoError(err)
	s.db = db
	s.repo = sqlite.NewTimeEntryRepository(db)
	s.clock = newFakeClock(at(4, 9, 0))
	s.ctx = context.Background()
}

func (s *TimesheetLifecycleTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *TimesheetLifecycleTestSuite) newService(opts ...services.TimesheetServiceOption) portssvc.TimesheetSvcFacade {
	opts = append([]services.TimesheetServiceOption{services.WithClock(s.clock.Now)}, opts...)
	return services.NewTimesheetService(s.repo, opts...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (s *TimesheetLifecycleTestSuite) TestFullDayWithLunchBreak() {
	svc := s.newService()

	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(4, 12, 0))
	onBreak, err := svc.StartBreak(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusOnBreak, onBreak.Status)

	s.clock.Set(at(4, 12, 30))
	back, err := svc.EndBreak(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusActive, back.Status)
	s.Nil(back.LastBreakStart)
	s.True(back.TotalBreakMinutes.Equal(dec("30")), back.TotalBreakMinutes.String())

	s.clock.Set(at(4, 17, 0))
	done, err := svc.ClockOut(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, done.Status)
	s.True(done.TotalBreakMinutes.Equal(dec("30")))
	s.True(done.HoursWorked.Equal(dec("7.5")), done.HoursWorked.String())

	stored, err := s.repo.FindByEmployeeAndDate(s.ctx, "emp-1", workDay(4))
	s.Require().NoError(err)
	s.True(stored.HoursWorked.Equal(dec("7.5")))
	s.Require().NotNil(stored.EndTime)
	s.True(stored.EndTime.Equal(at(4, 17, 0)))
}

func (s *TimesheetLifecycleTestSuite) TestEndBreakWhileActiveLeavesEntryUntouched() {
	svc := s.newService()
	created, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(4, 10, 0))
	_, err = svc.EndBreak(s.ctx, "emp-1")
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	stored, err := s.repo.FindOpenEntry(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Equal(created.Version, stored.Version)
	s.Equal(domain.StatusActive, stored.Status)
	s.True(stored.TotalBreakMinutes.IsZero())
}

func (s *TimesheetLifecycleTestSuite) TestUnavailableRoundTrip() {
	svc := s.newService()
	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(4, 10, 0))
	away, err := svc.StartUnavailable(s.ctx, "emp-1", "")
	s.Require().NoError(err)
	s.Equal(domain.StatusUnavailable, away.Status)
	s.Require().NotNil(away.UnavailableReason)
	s.Equal("Not specified", *away.UnavailableReason)

	// A break cannot start while unavailable.
	_, err = svc.StartBreak(s.ctx, "emp-1")
	s.ErrorIs(err, apperrors.ErrInvalidTransition)

	s.clock.Set(at(4, 10, 45))
	back, err := svc.EndUnavailable(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusActive, back.Status)
	s.Nil(back.LastUnavailableStart)
	s.Nil(back.UnavailableReason)
	s.True(back.TotalUnavailableMinutes.Equal(dec("45")))

	s.clock.Set(at(4, 11, 0))
	reasoned, err := svc.StartUnavailable(s.ctx, "emp-1", "Doctor appointment")
	s.Require().NoError(err)
	s.Equal("Doctor appointment", *reasoned.UnavailableReason)
}

func (s *TimesheetLifecycleTestSuite) TestReactivationPreservesAccumulators() {
	svc := s.newService()
	first, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(4, 10, 0))
	_, err = svc.StartBreak(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.clock.Set(at(4, 10, 15))
	_, err = svc.EndBreak(s.ctx, "emp-1")
	s.Require().NoError(err)

	s.clock.Set(at(4, 12, 0))
	closed, err := svc.ClockOut(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.True(closed.HoursWorked.Equal(dec("2.75")), closed.HoursWorked.String())

	s.clock.Set(at(4, 13, 0))
	reopened, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.Equal(first.ID, reopened.ID)
	s.Equal(domain.StatusActive, reopened.Status)
	s.Nil(reopened.EndTime)
	s.True(reopened.StartTime.Equal(at(4, 13, 0)))
	s.True(reopened.TotalBreakMinutes.Equal(dec("15")))
	s.True(reopened.HoursWorked.Equal(dec("2.75")))

	s.clock.Set(at(4, 15, 0))
	final, err := svc.ClockOut(s.ctx, "emp-1")
	s.Require().NoError(err)
	// 2.75 banked plus two uninterrupted hours; the morning break is not subtracted twice.
	s.True(final.HoursWorked.Equal(dec("4.75")), final.HoursWorked.String())
	s.True(final.TotalBreakMinutes.Equal(dec("15")))

	recent, err := s.repo.FindRecent(s.ctx, "emp-1", 10)
	s.Require().NoError(err)
	s.Len(recent, 1)
}

func (s *TimesheetLifecycleTestSuite) TestForcedClockInClosesYesterday() {
	svc := s.newService()
	yesterday, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(5, 8, 0))
	_, err = svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	var active *domain.AlreadyActiveError
	s.Require().True(errors.As(err, &active))
	s.Equal(yesterday.ID, active.Entry.ID)
	s.Equal(23*time.Hour, active.Age)

	today, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{Force: true})
	s.Require().NoError(err)
	s.NotEqual(yesterday.ID, today.ID)
	s.True(today.Date.Equal(workDay(5)))
	s.Equal(domain.StatusActive, today.Status)

	old, err := s.repo.FindByEmployeeAndDate(s.ctx, "emp-1", workDay(4))
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, old.Status)
	s.Require().NotNil(old.EndTime)
	s.True(old.EndTime.Equal(at(5, 8, 0)))
	s.True(old.HoursWorked.Equal(dec("23")), old.HoursWorked.String())
}

func (s *TimesheetLifecycleTestSuite) TestForcedClockInAtLastActivityFoldsRunningBreak() {
	svc := s.newService(services.WithForceClosePolicy(services.ForceCloseAtLastActivity))
	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.clock.Set(at(4, 12, 0))
	_, err = svc.StartBreak(s.ctx, "emp-1")
	s.Require().NoError(err)

	s.clock.Set(at(5, 9, 0))
	_, err = svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{Force: true})
	s.Require().NoError(err)

	old, err := s.repo.FindByEmployeeAndDate(s.ctx, "emp-1", workDay(4))
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, old.Status)
	s.Nil(old.LastBreakStart)
	s.True(old.EndTime.Equal(at(4, 12, 0)))
	s.True(old.TotalBreakMinutes.IsZero())
	s.True(old.HoursWorked.Equal(dec("3")), old.HoursWorked.String())
}

func (s *TimesheetLifecycleTestSuite) TestStaleSessionClosesWithoutForce() {
	svc := s.newService(services.WithStaleSessionAfter(16 * time.Hour))
	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)

	s.clock.Set(at(4, 20, 0))
	_, err = svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.ErrorIs(err, apperrors.ErrAlreadyActive)

	s.clock.Set(at(5, 9, 0))
	today, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.True(today.Date.Equal(workDay(5)))
}

func (s *TimesheetLifecycleTestSuite) TestWorkDateFollowsConfiguredZone() {
	berlin, err := time.LoadLocation("Europe/Berlin")
	s.Require().NoError(err)
	svc := s.newService(services.WithLocation(berlin))

	// 23:30 UTC on the 4th is already the 5th in Berlin.
	s.clock.Set(at(4, 23, 30))
	entry, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.True(entry.Date.Equal(workDay(5)))
}

func (s *TimesheetLifecycleTestSuite) TestStatusAndHistory() {
	pub := &recordingPublisher{}
	svc := s.newService(services.WithRecentLimit(2), services.WithEventPublisher(pub))

	for d := 1; d <= 3; d++ {
		s.clock.Set(at(d, 9, 0))
		_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
		s.Require().NoError(err)
		s.clock.Set(at(d, 17, 0))
		_, err = svc.ClockOut(s.ctx, "emp-1")
		s.Require().NoError(err)
	}
	s.Len(pub.Events(), 6)

	s.clock.Set(at(4, 9, 0))
	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.clock.Set(at(4, 11, 0))

	snapshot, err := svc.GetStatus(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Require().NotNil(snapshot.OpenEntry)
	s.Equal(domain.StatusActive, snapshot.CurrentStatus())
	s.True(snapshot.HoursWorked.Equal(dec("2")))
	s.True(snapshot.RemainingHours.Equal(dec("6")))
	s.Require().Len(snapshot.RecentEntries, 2)
	s.True(snapshot.RecentEntries[0].Date.Equal(workDay(4)))

	page, err := svc.ListHistory(s.ctx, "emp-1", "", 3)
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 3)
	s.Require().NotNil(page.NextToken)

	next, err := svc.ListHistory(s.ctx, "emp-1", *page.NextToken, 3)
	s.Require().NoError(err)
	s.Require().Len(next.Entries, 1)
	s.True(next.Entries[0].Date.Equal(workDay(1)))
	s.Nil(next.NextToken)

	_, err = svc.ListHistory(s.ctx, "emp-2", *page.NextToken, 3)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TimesheetLifecycleTestSuite) TestStatusAfterClockOutUsesStoredHours() {
	svc := s.newService()
	_, err := svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.clock.Set(at(4, 15, 0))
	_, err = svc.ClockOut(s.ctx, "emp-1")
	s.Require().NoError(err)

	s.clock.Set(at(4, 20, 0))
	snapshot, err := svc.GetLiveStatus(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.Nil(snapshot.OpenEntry)
	s.Equal(domain.StatusSubmitted, snapshot.CurrentStatus())
	s.True(snapshot.HoursWorked.Equal(dec("6")))
	s.True(snapshot.RemainingHours.Equal(dec("2")))
}

func (s *TimesheetLifecycleTestSuite) TestEmployeeIDIsTrimmed() {
	svc := s.newService()
	created, err := svc.ClockIn(s.ctx, "  emp-1 ", domain.ClockInOptions{})
	s.Require().NoError(err)
	s.Equal("emp-1", created.EmployeeID)

	_, err = svc.ClockIn(s.ctx, "emp-1", domain.ClockInOptions{})
	s.ErrorIs(err, apperrors.ErrAlreadyActive)

	snapshot, err := svc.GetLiveStatus(s.ctx, "emp-1\t")
	s.Require().NoError(err)
	s.Require().NotNil(snapshot.OpenEntry)
	s.Equal(created.ID, snapshot.OpenEntry.ID)

	s.clock.Set(at(4, 10, 0))
	closed, err := svc.ClockOut(s.ctx, " emp-1")
	s.Require().NoError(err)
	s.Equal(domain.StatusSubmitted, closed.Status)

	page, err := svc.ListHistory(s.ctx, "emp-1 ", "", 10)
	s.Require().NoError(err)
	s.Len(page.Entries, 1)
}

// TestRandomInterleavingsKeepInvariants fires random actions from several
// goroutines through two independent services sharing one store, so
// contention between them is only resolved by the store itself. The stored
// state is checked after every action.
func (s *TimesheetLifecycleTestSuite) TestRandomInterleavingsKeepInvariants() {
	svcs := []portssvc.TimesheetSvcFacade{s.newService(), s.newService()}
	employees := []string{"emp-a", "emp-b", "emp-c"}
	actions := []func(svc portssvc.TimesheetSvcFacade, rng *rand.Rand, employeeID string) error{
		func(svc portssvc.TimesheetSvcFacade, rng *rand.Rand, id string) error {
			_, err := svc.ClockIn(s.ctx, id, domain.ClockInOptions{Force: rng.IntN(3) == 0})
			return err
		},
		func(svc portssvc.TimesheetSvcFacade, _ *rand.Rand, id string) error {
			_, err := svc.ClockOut(s.ctx, id)
			return err
		},
		func(svc portssvc.TimesheetSvcFacade, _ *rand.Rand, id string) error {
			_, err := svc.StartBreak(s.ctx, id)
			return err
		},
		func(svc portssvc.TimesheetSvcFacade, _ *rand.Rand, id string) error {
			_, err := svc.EndBreak(s.ctx, id)
			return err
		},
		func(svc portssvc.TimesheetSvcFacade, _ *rand.Rand, id string) error {
			_, err := svc.StartUnavailable(s.ctx, id, "")
			return err
		},
		func(svc portssvc.TimesheetSvcFacade, _ *rand.Rand, id string) error {
			_, err := svc.EndUnavailable(s.ctx, id)
			return err
		},
	}

	// checkEmployee returns a description of every broken invariant for id.
	checkEmployee := func(id string) []string {
		entries, err := s.repo.FindRecent(s.ctx, id, 10000)
		if err != nil {
			return []string{fmt.Sprintf("%s: list entries: %v", id, err)}
		}
		var problems []string
		open := 0
		now := s.clock.Now()
		for _, e := range entries {
			if e.IsOpen() {
				open++
			}
			if err := e.CheckInvariants(); err != nil {
				problems = append(problems, fmt.Sprintf("%s: entry %s: %v", id, e.ID, err))
			}
			if e.HoursWorked.IsNegative() || domain.ComputeWorkedHours(e, now).IsNegative() {
				problems = append(problems, fmt.Sprintf("%s: entry %s has negative hours", id, e.ID))
			}
		}
		if open > 1 {
			problems = append(problems, fmt.Sprintf("%s: %d open entries", id, open))
		}
		return problems
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		unexpected []error
		violations []string
	)
	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			seed := uint64(worker + 1)
			rng := rand.New(rand.NewPCG(seed, seed*31+7))
			svc := svcs[worker%len(svcs)]
			for i := 0; i < 150; i++ {
				s.clock.Advance(time.Duration(rng.IntN(90)) * time.Minute)
				id := employees[rng.IntN(len(employees))]
				err := actions[rng.IntN(len(actions))](svc, rng, id)
				problems := checkEmployee(id)

				mu.Lock()
				violations = append(violations, problems...)
				if err != nil && !errors.Is(err, apperrors.ErrAlreadyActive) &&
					!errors.Is(err, apperrors.ErrInvalidTransition) && !apperrors.IsRetryable(err) {
					unexpected = append(unexpected, fmt.Errorf("%s: %w", id, err))
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	s.Empty(unexpected)
	s.Empty(violations)

	for _, id := range employees {
		s.Empty(checkEmployee(id))
	}
}
