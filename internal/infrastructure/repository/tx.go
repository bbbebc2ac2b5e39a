package repository

import (
	"context"

	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"gorm.io/gorm"
)

type txKey struct{}

// Transactor runs closures inside one gorm transaction. The transaction
// handle travels in the context, so repositories created from the same
// *gorm.DB automatically join it through dbFrom.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a new Transactor
func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &Transactor{db: db}
}

// RunInTx executes fn inside a single database transaction. Nested calls
// reuse the outer transaction.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transaction handle carried by ctx, falling back to
// the repository's own connection.
func dbFrom(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return fallback.WithContext(ctx)
}
