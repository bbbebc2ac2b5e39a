package repository

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/google/uuid"
)

// SequenceRepository allocates document numbers. NextNumber must perform
// the read-increment as one atomic statement; two concurrent allocations
// for the same tenant and kind must never return the same value.
type SequenceRepository interface {
	// NextNumber returns the formatted next number for the tenant and
	// kind, seeding the counter row with the given prefix on first use.
	NextNumber(ctx context.Context, tenantID uuid.UUID, kind enum.DocumentKind, prefix string) (string, error)
}
