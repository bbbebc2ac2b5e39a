package service

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/apperror"
)

// ProfileService manages the tenant's business profile, the issuer
// identity printed on outgoing documents.
type ProfileService struct {
	profileRepo repository.BusinessProfileRepository
	tenantRepo  repository.TenantRepository
}

// NewProfileService creates a new profile service
func NewProfileService(
	profileRepo repository.BusinessProfileRepository,
	tenantRepo repository.TenantRepository,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		tenantRepo:  tenantRepo,
	}
}

// UpsertProfileInput represents the business profile input
type UpsertProfileInput struct {
	Name    string
	Email   *string
	Phone   *string
	Address *string
	TaxID   *string
	LogoURL *string
	Website *string
}

// GetProfile returns the tenant's business profile
func (s *ProfileService) GetProfile(ctx context.Context) (*entity.BusinessProfile, error) {
	profile, err := s.profileRepo.GetByTenant(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NewNotFoundError("Business profile")
	}
	return profile, nil
}

// UpsertProfile creates or replaces the tenant's business profile
func (s *ProfileService) UpsertProfile(ctx context.Context, input *UpsertProfileInput) (*entity.BusinessProfile, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if input.Name == "" {
		return nil, apperror.NewBadRequestError("Business name is required")
	}

	profile := &entity.BusinessProfile{
		TenantID: tenantID,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		TaxID:    input.TaxID,
		LogoURL:  input.LogoURL,
		Website:  input.Website,
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	return s.profileRepo.GetByTenant(ctx)
}

// GetTenantSettings returns the tenant's billing settings
func (s *ProfileService) GetTenantSettings(ctx context.Context) (*entity.TenantSettings, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperror.NewNotFoundError("Tenant")
	}
	return &tenant.Settings, nil
}

// UpdateTenantSettings replaces the tenant's billing settings
func (s *ProfileService) UpdateTenantSettings(ctx context.Context, settings entity.TenantSettings) (*entity.TenantSettings, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperror.NewNotFoundError("Tenant")
	}

	if settings.PaymentTermsDays < 0 {
		return nil, apperror.NewBadRequestError("Payment terms cannot be negative")
	}
	if settings.DefaultTaxRate < 0 || settings.DefaultTaxRate > 100 {
		return nil, apperror.NewBadRequestError("Default tax rate must be between 0 and 100")
	}

	tenant.Settings = settings
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return &tenant.Settings, nil
}
