package repository

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	domainRepo "github.com/finledger/billable-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *gorm.DB) domainRepo.SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextNumber allocates the next document number. The counter advance is a
// single UPDATE .. RETURNING, so the read and the increment cannot be
// interleaved by a concurrent allocation: two racing calls serialize on
// the row lock and each sees a distinct value.
func (r *sequenceRepository) NextNumber(ctx context.Context, tenantID uuid.UUID, kind enum.DocumentKind, prefix string) (string, error) {
	db := dbFrom(ctx, r.db)

	// Seed the counter row on first use; a concurrent seeder loses the
	// conflict and both proceed to the atomic update below.
	seed := &entity.DocumentSequence{
		TenantID:   tenantID,
		Kind:       kind,
		Prefix:     prefix,
		NextNumber: 1,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "kind"}},
		DoNothing: true,
	}).Create(seed).Error; err != nil {
		return "", err
	}

	var allocated struct {
		Value  int64
		Prefix string
	}
	err := db.Raw(`
		UPDATE document_sequences
		SET next_number = next_number + 1, updated_at = NOW()
		WHERE tenant_id = ? AND kind = ?
		RETURNING next_number - 1 AS value, prefix`,
		tenantID, kind,
	).Scan(&allocated).Error
	if err != nil {
		return "", err
	}

	return entity.FormatNumber(allocated.Prefix, allocated.Value), nil
}
