package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/timesheet_app/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// fakeClock is a manually advanced time source shared by a test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordedEvent is what the publisher saw for one transition.
type recordedEvent struct {
	EmployeeID string
	Action     domain.Action
	Entry      domain.TimeEntry
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishTransition(_ context.Context, employeeID string, action domain.Action, entry domain.TimeEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{EmployeeID: employeeID, Action: action, Entry: entry})
}

func (p *recordingPublisher) Events() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

// --- Mock TimeEntryRepository ---
type MockTimeEntryRepository struct {
	mock.Mock
}

func (m *MockTimeEntryRepository) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func (m *MockTimeEntryRepository) FindOpenEntry(ctx context.Context, employeeID string) (*domain.TimeEntry, error) {
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*domain.TimeEntry, error) {
	args := m.Called(ctx, employeeID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) FindRecent(ctx context.Context, employeeID string, limit int) ([]domain.TimeEntry, error) {
	args := m.Called(ctx, employeeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) ListEntries(ctx context.Context, employeeID string, before *time.Time, limit int) ([]domain.TimeEntry, error) {
	args := m.Called(ctx, employeeID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) CreateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimeEntry), args.Error(1)
}

func (m *MockTimeEntryRepository) UpdateEntry(ctx context.Context, entry domain.TimeEntry) (*domain.TimeEntry, error) {
	args := m.Called(ctx, entry)
	if fn, ok := args.Get(0).(func(context.Context, domain.TimeEntry) (*domain.TimeEntry, error)); ok {
		return fn(ctx, entry)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimeEntry), args.Error(1)
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, time.UTC)
}

func workDay(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}
