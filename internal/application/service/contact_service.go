package service

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/apperror"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/google/uuid"
)

// ContactService handles billing contact operations
type ContactService struct {
	contactRepo repository.ContactRepository
}

// NewContactService creates a new contact service
func NewContactService(contactRepo repository.ContactRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo}
}

// CreateContactInput represents the create contact input
type CreateContactInput struct {
	UserID      uuid.UUID
	Name        string
	CompanyName *string
	Email       *string
	Phone       *string
	TaxID       *string
	Address     *string
}

// UpdateContactInput represents the update contact input
type UpdateContactInput struct {
	Name        *string
	CompanyName *string
	Email       *string
	Phone       *string
	TaxID       *string
	Address     *string
}

// CreateContact creates a new contact
func (s *ContactService) CreateContact(ctx context.Context, input *CreateContactInput) (*entity.Contact, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	if input.Name == "" {
		return nil, apperror.NewBadRequestError("Contact name is required")
	}

	if input.Email != nil && *input.Email != "" {
		existing, err := s.contactRepo.GetByEmail(ctx, *input.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperror.NewConflictError("A contact with this email already exists")
		}
	}

	contact := &entity.Contact{
		TenantID:    tenantID,
		UserID:      input.UserID,
		Name:        input.Name,
		CompanyName: input.CompanyName,
		Email:       input.Email,
		Phone:       input.Phone,
		TaxID:       input.TaxID,
		Address:     input.Address,
	}

	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// GetContact retrieves a contact by ID
func (s *ContactService) GetContact(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperror.NewNotFoundError("Contact")
	}
	return contact, nil
}

// ListContacts lists contacts with search
func (s *ContactService) ListContacts(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Contact], error) {
	contacts, total, err := s.contactRepo.List(ctx, params, search)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(contacts, pag), nil
}

// UpdateContact updates an existing contact
func (s *ContactService) UpdateContact(ctx context.Context, id uuid.UUID, input *UpdateContactInput) (*entity.Contact, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperror.NewNotFoundError("Contact")
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperror.NewBadRequestError("Contact name cannot be empty")
		}
		contact.Name = *input.Name
	}
	if input.Email != nil && (contact.Email == nil || *input.Email != *contact.Email) {
		if *input.Email != "" {
			existing, err := s.contactRepo.GetByEmail(ctx, *input.Email)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != contact.ID {
				return nil, apperror.NewConflictError("A contact with this email already exists")
			}
		}
		contact.Email = input.Email
	}
	if input.CompanyName != nil {
		contact.CompanyName = input.CompanyName
	}
	if input.Phone != nil {
		contact.Phone = input.Phone
	}
	if input.TaxID != nil {
		contact.TaxID = input.TaxID
	}
	if input.Address != nil {
		contact.Address = input.Address
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// DeleteContact deletes a contact. Documents keep their contact_id, so
// history survives through the soft delete.
func (s *ContactService) DeleteContact(ctx context.Context, id uuid.UUID) error {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if contact == nil {
		return apperror.NewNotFoundError("Contact")
	}

	return s.contactRepo.Delete(ctx, id)
}
