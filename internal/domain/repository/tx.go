package repository

import "context"

// Transactor runs fn inside one database transaction. Repository calls
// made with the context passed to fn join that transaction, so a
// multi-statement operation (number allocation + document insert, payment
// row + balance credit) commits or rolls back as a unit.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
