package shared

import "context"

// Transactor runs fn inside one database transaction. Repositories called
// with the context handed to fn take part in it; an error rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTransaction runs fn directly; used where no database is involved
type NoTransaction struct{}

// WithinTransaction calls fn with ctx
func (NoTransaction) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
