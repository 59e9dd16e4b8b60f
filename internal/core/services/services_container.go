package services

import (
	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/timesheet_app/internal/core/ports/services"
	"github.com/SscSPs/timesheet_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, opts ...TimesheetServiceOption) (*portssvc.ServiceContainer, error) {
	policy, err := ParseForceClosePolicy(cfg.ForceClosePolicy)
	if err != nil {
		return nil, err
	}

	timesheetOpts := []TimesheetServiceOption{
		WithLocation(cfg.WorkdayLocation),
		WithWorkdayHours(cfg.WorkdayHours),
		WithForceClosePolicy(policy),
		WithStaleSessionAfter(cfg.StaleSessionAfter),
		WithRecentLimit(cfg.RecentEntriesLimit),
	}
	// Caller options (clock, event publisher) win over configuration.
	timesheetOpts = append(timesheetOpts, opts...)

	return &portssvc.ServiceContainer{
		Timesheet: NewTimesheetService(repos.TimeEntryRepo, timesheetOpts...),
	}, nil
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.TimesheetSvcFacade = (*timesheetService)(nil)
)
