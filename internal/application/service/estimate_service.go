package service

import (
	"context"
	"fmt"
	"time"

	"github.com/finledger/billable-api/internal/domain/billing"
	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/apperror"
	"github.com/finledger/billable-api/pkg/email"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/finledger/billable-api/pkg/renderer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstimateService handles estimate lifecycle and one-shot conversion into
// invoices
type EstimateService struct {
	estimateRepo repository.EstimateRepository
	invoiceRepo  repository.InvoiceRepository
	contactRepo  repository.ContactRepository
	profileRepo  repository.BusinessProfileRepository
	tenantRepo   repository.TenantRepository
	sequenceRepo repository.SequenceRepository
	tx           repository.Transactor
	renderer     renderer.DocumentRenderer
	emailService *email.EmailService
}

// NewEstimateService creates a new estimate service
func NewEstimateService(
	estimateRepo repository.EstimateRepository,
	invoiceRepo repository.InvoiceRepository,
	contactRepo repository.ContactRepository,
	profileRepo repository.BusinessProfileRepository,
	tenantRepo repository.TenantRepository,
	sequenceRepo repository.SequenceRepository,
	tx repository.Transactor,
	docRenderer renderer.DocumentRenderer,
	emailService *email.EmailService,
) *EstimateService {
	return &EstimateService{
		estimateRepo: estimateRepo,
		invoiceRepo:  invoiceRepo,
		contactRepo:  contactRepo,
		profileRepo:  profileRepo,
		tenantRepo:   tenantRepo,
		sequenceRepo: sequenceRepo,
		tx:           tx,
		renderer:     docRenderer,
		emailService: emailService,
	}
}

// CreateEstimateInput represents the create estimate input
type CreateEstimateInput struct {
	UserID        uuid.UUID
	ContactID     *uuid.UUID
	Currency      string
	TaxRate       *decimal.Decimal
	DiscountType  enum.DiscountType
	DiscountValue decimal.Decimal
	IssueDate     *time.Time
	ValidUntil    *time.Time
	Notes         *string
	Items         []DocumentItemInput
}

// UpdateEstimateInput represents the update estimate input
type UpdateEstimateInput struct {
	ContactID     *uuid.UUID
	TaxRate       *decimal.Decimal
	DiscountType  *enum.DiscountType
	DiscountValue *decimal.Decimal
	IssueDate     *time.Time
	ValidUntil    *time.Time
	Notes         *string
	Items         []DocumentItemInput
}

func toEstimateItems(lines []billing.LineTotal) []entity.EstimateItem {
	items := make([]entity.EstimateItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, entity.EstimateItem{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TaxRate:     line.TaxRate,
			TaxAmount:   line.TaxAmount,
			Total:       line.Total,
			SortOrder:   line.SortOrder,
		})
	}
	return items
}

// CreateEstimate creates a new draft estimate, allocating its number from
// the estimate sequence.
func (s *EstimateService) CreateEstimate(ctx context.Context, input *CreateEstimateInput) (*entity.Estimate, error) {
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

	if input.ContactID != nil {
		contact, err := s.contactRepo.GetByID(ctx, *input.ContactID)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, apperror.NewNotFoundError("Contact")
		}
	}

	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	taxRate := decimal.NewFromFloat(tenant.Settings.DefaultTaxRate)
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}
	discountType := input.DiscountType
	if discountType == "" {
		discountType = enum.DiscountTypePercent
	}
	if err := validateDocumentFinancials(taxRate, discountType, input.DiscountValue); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = tenant.Currency()
	}
	issueDate := time.Now()
	if input.IssueDate != nil {
		issueDate = *input.IssueDate
	}
	validUntil := issueDate.AddDate(0, 0, tenant.PaymentTermsDays())
	if input.ValidUntil != nil {
		validUntil = *input.ValidUntil
	}
	if validUntil.Before(issueDate) {
		return nil, apperror.NewBadRequestError("Valid-until date cannot be before issue date")
	}

	lines := make([]billing.LineInput, 0, len(input.Items))
	for i, item := range input.Items {
		lines = append(lines, billing.LineInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			SortOrder:   i,
		})
	}
	totals := billing.Calculate(lines, taxRate, discountType, input.DiscountValue)

	prefix := tenant.Settings.EstimatePrefix
	if prefix == "" {
		prefix = enum.DocumentKindEstimate.DefaultPrefix()
	}

	estimate := &entity.Estimate{
		TenantID:       tenantID,
		UserID:         input.UserID,
		ContactID:      input.ContactID,
		Status:         enum.EstimateStatusDraft,
		Currency:       currency,
		Subtotal:       totals.Subtotal,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.TaxAmount,
		DiscountType:   discountType,
		DiscountValue:  input.DiscountValue,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		IssueDate:      issueDate,
		ValidUntil:     validUntil,
		Notes:          input.Notes,
		Items:          toEstimateItems(totals.Lines),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		number, err := s.sequenceRepo.NextNumber(ctx, tenantID, enum.DocumentKindEstimate, prefix)
		if err != nil {
			return err
		}
		estimate.EstimateNumber = number
		return s.estimateRepo.Create(ctx, estimate)
	})
	if err != nil {
		return nil, err
	}

	return s.estimateRepo.GetWithItems(ctx, estimate.ID)
}

// GetEstimate retrieves an estimate with its items
func (s *EstimateService) GetEstimate(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	estimate, err := s.estimateRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, apperror.NewNotFoundError("Estimate")
	}
	return estimate, nil
}

// ListEstimates lists estimates with filtering
func (s *EstimateService) ListEstimates(ctx context.Context, params *repository.EstimateFilterParams) (*pagination.PaginatedResult[entity.Estimate], error) {
	estimates, total, err := s.estimateRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(estimates, pag), nil
}

// UpdateEstimate updates an estimate, recomputing totals when financial
// inputs changed. Accepted, declined or converted estimates are frozen.
func (s *EstimateService) UpdateEstimate(ctx context.Context, id uuid.UUID, input *UpdateEstimateInput) (*entity.Estimate, error) {
	estimate, err := s.estimateRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, apperror.NewNotFoundError("Estimate")
	}

	if estimate.IsConverted() {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Estimate %s has been converted and is frozen", estimate.EstimateNumber))
	}
	financialChange := input.Items != nil || input.TaxRate != nil ||
		input.DiscountType != nil || input.DiscountValue != nil
	if financialChange &&
		estimate.Status != enum.EstimateStatusDraft && estimate.Status != enum.EstimateStatusSent {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Estimate in status %s can no longer be edited", estimate.Status))
	}

	if input.ContactID != nil {
		contact, err := s.contactRepo.GetByID(ctx, *input.ContactID)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, apperror.NewNotFoundError("Contact")
		}
		estimate.ContactID = input.ContactID
	}
	if input.IssueDate != nil {
		estimate.IssueDate = *input.IssueDate
	}
	if input.ValidUntil != nil {
		estimate.ValidUntil = *input.ValidUntil
	}
	if estimate.ValidUntil.Before(estimate.IssueDate) {
		return nil, apperror.NewBadRequestError("Valid-until date cannot be before issue date")
	}
	if input.Notes != nil {
		estimate.Notes = input.Notes
	}

	var newItems []entity.EstimateItem
	if financialChange {
		if input.TaxRate != nil {
			estimate.TaxRate = *input.TaxRate
		}
		if input.DiscountType != nil {
			estimate.DiscountType = *input.DiscountType
		}
		if input.DiscountValue != nil {
			estimate.DiscountValue = *input.DiscountValue
		}
		if err := validateDocumentFinancials(estimate.TaxRate, estimate.DiscountType, estimate.DiscountValue); err != nil {
			return nil, err
		}

		itemInputs := input.Items
		if itemInputs == nil {
			itemInputs = make([]DocumentItemInput, 0, len(estimate.Items))
			for _, item := range estimate.Items {
				itemInputs = append(itemInputs, DocumentItemInput{
					Description: item.Description,
					Quantity:    item.Quantity,
					UnitPrice:   item.UnitPrice,
				})
			}
		}
		if err := validateItems(itemInputs); err != nil {
			return nil, err
		}

		lines := make([]billing.LineInput, 0, len(itemInputs))
		for i, item := range itemInputs {
			lines = append(lines, billing.LineInput{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				SortOrder:   i,
			})
		}
		totals := billing.Calculate(lines, estimate.TaxRate, estimate.DiscountType, estimate.DiscountValue)

		estimate.Subtotal = totals.Subtotal
		estimate.TaxAmount = totals.TaxAmount
		estimate.DiscountAmount = totals.DiscountAmount
		estimate.Total = totals.Total
		newItems = toEstimateItems(totals.Lines)
		for i := range newItems {
			newItems[i].EstimateID = estimate.ID
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if newItems != nil {
			if err := s.estimateRepo.ReplaceItems(ctx, estimate.ID, newItems); err != nil {
				return err
			}
		}
		estimate.Items = nil
		return s.estimateRepo.Update(ctx, estimate)
	})
	if err != nil {
		return nil, err
	}

	return s.estimateRepo.GetWithItems(ctx, estimate.ID)
}

// DeleteEstimate deletes a draft estimate
func (s *EstimateService) DeleteEstimate(ctx context.Context, id uuid.UUID) error {
	estimate, err := s.estimateRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if estimate == nil {
		return apperror.NewNotFoundError("Estimate")
	}

	if estimate.Status != enum.EstimateStatusDraft {
		return apperror.NewConflictError("Only draft estimates can be deleted")
	}

	return s.estimateRepo.Delete(ctx, id)
}

// SendEstimate marks the estimate sent and emails it to the contact.
// Like invoices, the email is best-effort after the transition commits.
func (s *EstimateService) SendEstimate(ctx context.Context, id uuid.UUID, input *SendInvoiceInput) (*SendEstimateResult, error) {
	estimate, err := s.estimateRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, apperror.NewNotFoundError("Estimate")
	}

	switch estimate.Status {
	case enum.EstimateStatusDraft, enum.EstimateStatusSent:
	default:
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Estimate in status %s cannot be sent", estimate.Status))
	}

	to := input.To
	if to == "" && estimate.Contact != nil && estimate.Contact.HasEmail() {
		to = *estimate.Contact.Email
	}
	if to == "" {
		return nil, apperror.NewBadRequestError("No recipient email: set one on the contact or in the request")
	}

	if estimate.Status == enum.EstimateStatusDraft {
		if err := s.estimateRepo.UpdateStatus(ctx, id, enum.EstimateStatusSent); err != nil {
			return nil, err
		}
		estimate, err = s.estimateRepo.GetWithItems(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	result := &SendEstimateResult{Estimate: estimate}

	profile, businessName := s.resolveProfile(ctx)

	var attachment []byte
	var attachmentName string
	if input.AttachDocument {
		data := s.buildEstimateDocument(estimate, profile)
		attachment, attachmentName, err = s.renderer.Render(data)
		if err != nil {
			attachment = nil
		}
	}

	subject := input.Subject
	if subject == "" {
		subject = fmt.Sprintf("Estimate %s from %s", estimate.EstimateNumber, businessName)
	}
	message := input.Message
	if message == "" {
		message = fmt.Sprintf("Please find estimate %s attached. Total: %s %s. Valid until %s.",
			estimate.EstimateNumber, estimate.Total.StringFixed(2), estimate.Currency,
			estimate.ValidUntil.Format("2006-01-02"))
	}

	sendErr := s.emailService.SendDocumentEmail(email.DocumentEmail{
		To:             to,
		CC:             input.CC,
		Subject:        subject,
		Message:        message,
		DocumentNumber: estimate.EstimateNumber,
		BusinessName:   businessName,
		Attachment:     attachment,
		AttachmentName: attachmentName,
	})
	if sendErr != nil {
		result.EmailSent = false
		result.EmailError = sendErr.Error()
	} else {
		result.EmailSent = true
	}

	return result, nil
}

// SendEstimateResult reports the estimate send outcome
type SendEstimateResult struct {
	Estimate   *entity.Estimate `json:"estimate"`
	EmailSent  bool             `json:"email_sent"`
	EmailError string           `json:"email_error,omitempty"`
}

// AcceptEstimate marks a sent estimate accepted
func (s *EstimateService) AcceptEstimate(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	return s.transition(ctx, id, enum.EstimateStatusAccepted)
}

// DeclineEstimate marks a sent estimate declined
func (s *EstimateService) DeclineEstimate(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	return s.transition(ctx, id, enum.EstimateStatusDeclined)
}

func (s *EstimateService) transition(ctx context.Context, id uuid.UUID, to enum.EstimateStatus) (*entity.Estimate, error) {
	estimate, err := s.estimateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, apperror.NewNotFoundError("Estimate")
	}

	if estimate.Status != enum.EstimateStatusSent {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Only sent estimates can be %s", to))
	}

	if err := s.estimateRepo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	return s.estimateRepo.GetWithItems(ctx, id)
}

// ConvertToInvoice converts the estimate into a draft invoice exactly
// once. The new invoice copies the estimate's financial facts verbatim;
// the conversion stamp and the invoice insert commit together, and a
// concurrent second conversion loses on the stamp and gets a conflict.
func (s *EstimateService) ConvertToInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	tenantID, ok := infraRepo.GetTenantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Tenant context required")
	}

	estimate, err := s.estimateRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, apperror.NewNotFoundError("Estimate")
	}

	if estimate.IsConverted() {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Estimate %s has already been converted", estimate.EstimateNumber))
	}
	if estimate.Status == enum.EstimateStatusDeclined || estimate.Status == enum.EstimateStatusExpired {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Estimate in status %s cannot be converted", estimate.Status))
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperror.NewNotFoundError("Tenant")
	}

	prefix := tenant.Settings.InvoicePrefix
	if prefix == "" {
		prefix = enum.DocumentKindInvoice.DefaultPrefix()
	}

	issueDate := time.Now()
	invoice := &entity.Invoice{
		TenantID:          tenantID,
		UserID:            estimate.UserID,
		ContactID:         estimate.ContactID,
		BusinessProfileID: estimate.BusinessProfileID,
		Status:            enum.InvoiceStatusDraft,
		Currency:          estimate.Currency,
		Subtotal:          estimate.Subtotal,
		TaxRate:           estimate.TaxRate,
		TaxAmount:         estimate.TaxAmount,
		DiscountType:      estimate.DiscountType,
		DiscountValue:     estimate.DiscountValue,
		DiscountAmount:    estimate.DiscountAmount,
		Total:             estimate.Total,
		AmountPaid:        decimal.Zero,
		AmountDue:         estimate.Total,
		IssueDate:         issueDate,
		DueDate:           issueDate.AddDate(0, 0, tenant.PaymentTermsDays()),
		Notes:             estimate.Notes,
	}
	for _, item := range estimate.Items {
		invoice.Items = append(invoice.Items, entity.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			TaxAmount:   item.TaxAmount,
			Total:       item.Total,
			SortOrder:   item.SortOrder,
		})
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		number, err := s.sequenceRepo.NextNumber(ctx, tenantID, enum.DocumentKindInvoice, prefix)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
			return err
		}

		converted, err := s.estimateRepo.MarkConverted(ctx, estimate.ID, invoice.ID)
		if err != nil {
			return err
		}
		if !converted {
			return apperror.NewConflictError(
				fmt.Sprintf("Estimate %s has already been converted", estimate.EstimateNumber))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.invoiceRepo.GetWithItems(ctx, invoice.ID)
}

func (s *EstimateService) resolveProfile(ctx context.Context) (*entity.BusinessProfile, string) {
	profile, err := s.profileRepo.GetByTenant(ctx)
	if err != nil || profile == nil {
		return nil, "Billing"
	}
	return profile, profile.Name
}

func (s *EstimateService) buildEstimateDocument(estimate *entity.Estimate, profile *entity.BusinessProfile) renderer.DocumentData {
	data := renderer.DocumentData{
		Kind:           "Estimate",
		Number:         estimate.EstimateNumber,
		Status:         estimate.Status.String(),
		Currency:       estimate.Currency,
		IssueDate:      estimate.IssueDate.Format("2006-01-02"),
		DueDate:        estimate.ValidUntil.Format("2006-01-02"),
		Subtotal:       estimate.Subtotal,
		TaxRate:        estimate.TaxRate,
		TaxAmount:      estimate.TaxAmount,
		DiscountAmount: estimate.DiscountAmount,
		Total:          estimate.Total,
	}
	if estimate.Notes != nil {
		data.Notes = *estimate.Notes
	}
	if profile != nil {
		data.BusinessName = profile.Name
		if profile.Email != nil {
			data.BusinessEmail = *profile.Email
		}
		if profile.Phone != nil {
			data.BusinessPhone = *profile.Phone
		}
		if profile.Address != nil {
			data.BusinessAddr = *profile.Address
		}
	} else {
		data.BusinessName = "Billing"
	}
	if estimate.Contact != nil {
		data.ContactName = estimate.Contact.Name
		if estimate.Contact.Email != nil {
			data.ContactEmail = *estimate.Contact.Email
		}
		if estimate.Contact.Address != nil {
			data.ContactAddr = *estimate.Contact.Address
		}
	}
	for _, item := range estimate.Items {
		data.Items = append(data.Items, renderer.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	return data
}
