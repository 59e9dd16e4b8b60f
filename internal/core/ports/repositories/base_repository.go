package repositories

import (
	"context"
)

// TransactionManager runs a unit of work atomically.
// fn receives a context bound to the transaction; repository calls made with
// that context participate in it. Returning an error rolls everything back.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// RepositoryWithTx is a marker interface for repositories that support transactions
type RepositoryWithTx interface {
	TransactionManager
}
