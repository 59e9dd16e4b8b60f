package sqlite

import (
	"database/sql"

	portsrepo "github.com/SscSPs/timesheet_app/internal/core/ports/repositories"
)

func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TimeEntryRepo: NewTimeEntryRepository(db),
	}
}
