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

// PaymentLinker creates (or reuses) a hosted checkout link for an invoice.
// Implemented by ReconcilerService; the indirection keeps the send flow
// from depending on the provider wiring directly.
type PaymentLinker interface {
	CreatePaymentLink(ctx context.Context, invoiceID uuid.UUID) (*PaymentLink, error)
}

// InvoiceService handles invoice lifecycle and document operations
type InvoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	contactRepo  repository.ContactRepository
	profileRepo  repository.BusinessProfileRepository
	tenantRepo   repository.TenantRepository
	sequenceRepo repository.SequenceRepository
	tx           repository.Transactor
	renderer     renderer.DocumentRenderer
	emailService *email.EmailService
	linker       PaymentLinker
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	contactRepo repository.ContactRepository,
	profileRepo repository.BusinessProfileRepository,
	tenantRepo repository.TenantRepository,
	sequenceRepo repository.SequenceRepository,
	tx repository.Transactor,
	docRenderer renderer.DocumentRenderer,
	emailService *email.EmailService,
	linker PaymentLinker,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		contactRepo:  contactRepo,
		profileRepo:  profileRepo,
		tenantRepo:   tenantRepo,
		sequenceRepo: sequenceRepo,
		tx:           tx,
		renderer:     docRenderer,
		emailService: emailService,
		linker:       linker,
	}
}

// DocumentItemInput represents one line item as submitted by the client
type DocumentItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateInvoiceInput represents the create invoice input
type CreateInvoiceInput struct {
	UserID        uuid.UUID
	ContactID     *uuid.UUID
	Currency      string
	TaxRate       *decimal.Decimal
	DiscountType  enum.DiscountType
	DiscountValue decimal.Decimal
	IssueDate     *time.Time
	DueDate       *time.Time
	Notes         *string
	Terms         *string
	Items         []DocumentItemInput
}

// UpdateInvoiceInput represents the update invoice input. Nil fields are
// left unchanged; a non-nil Items slice replaces the whole item set.
type UpdateInvoiceInput struct {
	ContactID     *uuid.UUID
	TaxRate       *decimal.Decimal
	DiscountType  *enum.DiscountType
	DiscountValue *decimal.Decimal
	IssueDate     *time.Time
	DueDate       *time.Time
	Notes         *string
	Terms         *string
	Items         []DocumentItemInput
}

func validateItems(items []DocumentItemInput) error {
	if len(items) == 0 {
		return apperror.NewBadRequestError("At least one line item is required")
	}
	for i, item := range items {
		if item.Description == "" {
			return apperror.NewBadRequestError(fmt.Sprintf("Item %d: description is required", i+1))
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewBadRequestError(fmt.Sprintf("Item %d: quantity must be positive", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewBadRequestError(fmt.Sprintf("Item %d: unit price cannot be negative", i+1))
		}
	}
	return nil
}

func validateDocumentFinancials(taxRate decimal.Decimal, discountType enum.DiscountType, discountValue decimal.Decimal) error {
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewBadRequestError("Tax rate must be between 0 and 100")
	}
	if !discountType.Valid() {
		return apperror.NewBadRequestError("Discount type must be percent or fixed")
	}
	if discountValue.IsNegative() {
		return apperror.NewBadRequestError("Discount value cannot be negative")
	}
	return nil
}

func toInvoiceItems(lines []billing.LineTotal) []entity.InvoiceItem {
	items := make([]entity.InvoiceItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, entity.InvoiceItem{
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

// CreateInvoice creates a new draft invoice, allocating its number and
// computing its totals in one transaction.
func (s *InvoiceService) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*entity.Invoice, error) {
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

	// Tenant defaults fill anything the caller left out
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
	dueDate := issueDate.AddDate(0, 0, tenant.PaymentTermsDays())
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}
	if dueDate.Before(issueDate) {
		return nil, apperror.NewBadRequestError("Due date cannot be before issue date")
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

	prefix := tenant.Settings.InvoicePrefix
	if prefix == "" {
		prefix = enum.DocumentKindInvoice.DefaultPrefix()
	}

	invoice := &entity.Invoice{
		TenantID:       tenantID,
		UserID:         input.UserID,
		ContactID:      input.ContactID,
		Status:         enum.InvoiceStatusDraft,
		Currency:       currency,
		Subtotal:       totals.Subtotal,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.TaxAmount,
		DiscountType:   discountType,
		DiscountValue:  input.DiscountValue,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		AmountPaid:     decimal.Zero,
		AmountDue:      totals.Total,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Notes:          input.Notes,
		Terms:          input.Terms,
		Items:          toInvoiceItems(totals.Lines),
	}

	// Number allocation and insert commit together so a failed insert
	// does not burn a number outside the gap-free guarantee
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		number, err := s.sequenceRepo.NextNumber(ctx, tenantID, enum.DocumentKindInvoice, prefix)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return s.invoiceRepo.Create(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.invoiceRepo.GetWithItems(ctx, invoice.ID)
}

// GetInvoice retrieves an invoice with its items
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, params *repository.InvoiceFilterParams) (*pagination.PaginatedResult[entity.Invoice], error) {
	invoices, total, err := s.invoiceRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Pagination.Page, params.Pagination.PerPage, total)
	return pagination.NewPaginatedResult(invoices, pag), nil
}

// UpdateInvoice updates an editable invoice, recomputing totals when any
// financial input changed. Items, rates, discounts and dates are locked
// once the invoice has payments or is terminal; notes and terms stay
// mutable throughout.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, input *UpdateInvoiceInput) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	financialChange := input.Items != nil || input.TaxRate != nil ||
		input.DiscountType != nil || input.DiscountValue != nil
	dateChange := input.IssueDate != nil || input.DueDate != nil
	if (financialChange || dateChange) && !billing.CanEdit(invoice.Status) {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Invoice %s can no longer be edited", invoice.InvoiceNumber))
	}

	if input.ContactID != nil {
		contact, err := s.contactRepo.GetByID(ctx, *input.ContactID)
		if err != nil {
			return nil, err
		}
		if contact == nil {
			return nil, apperror.NewNotFoundError("Contact")
		}
		invoice.ContactID = input.ContactID
	}
	if input.IssueDate != nil {
		invoice.IssueDate = *input.IssueDate
	}
	if input.DueDate != nil {
		invoice.DueDate = *input.DueDate
	}
	if invoice.DueDate.Before(invoice.IssueDate) {
		return nil, apperror.NewBadRequestError("Due date cannot be before issue date")
	}
	if input.Notes != nil {
		invoice.Notes = input.Notes
	}
	if input.Terms != nil {
		invoice.Terms = input.Terms
	}

	var newItems []entity.InvoiceItem
	if financialChange {
		if input.TaxRate != nil {
			invoice.TaxRate = *input.TaxRate
		}
		if input.DiscountType != nil {
			invoice.DiscountType = *input.DiscountType
		}
		if input.DiscountValue != nil {
			invoice.DiscountValue = *input.DiscountValue
		}
		if err := validateDocumentFinancials(invoice.TaxRate, invoice.DiscountType, invoice.DiscountValue); err != nil {
			return nil, err
		}

		itemInputs := input.Items
		if itemInputs == nil {
			// Rate or discount changed but items did not; recompute from
			// the stored item set
			itemInputs = make([]DocumentItemInput, 0, len(invoice.Items))
			for _, item := range invoice.Items {
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
		totals := billing.Calculate(lines, invoice.TaxRate, invoice.DiscountType, invoice.DiscountValue)

		invoice.Subtotal = totals.Subtotal
		invoice.TaxAmount = totals.TaxAmount
		invoice.DiscountAmount = totals.DiscountAmount
		invoice.Total = totals.Total
		invoice.AmountDue = billing.AmountDue(totals.Total, invoice.AmountPaid)
		newItems = toInvoiceItems(totals.Lines)
		for i := range newItems {
			newItems[i].InvoiceID = invoice.ID
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if newItems != nil {
			if err := s.invoiceRepo.ReplaceItems(ctx, invoice.ID, newItems); err != nil {
				return err
			}
		}
		invoice.Items = nil
		return s.invoiceRepo.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	return s.invoiceRepo.GetWithItems(ctx, invoice.ID)
}

// DeleteInvoice deletes a draft invoice. Issued or paid invoices are kept
// for the audit trail.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if invoice == nil {
		return apperror.NewNotFoundError("Invoice")
	}

	if !billing.CanDelete(invoice.Status, invoice.HasPayments()) {
		return apperror.NewConflictError("Only draft invoices without payments can be deleted")
	}

	return s.invoiceRepo.Delete(ctx, id)
}

// CancelInvoice cancels a non-terminal invoice. Applied payments remain on
// the ledger.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	if !billing.CanCancel(invoice.Status) {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Invoice in status %s cannot be cancelled", invoice.Status))
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, id, enum.InvoiceStatusCancelled); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetWithItems(ctx, id)
}

// MarkViewed flips a sent invoice to viewed; any other status is a no-op
// so repeated open-tracking pings stay idempotent.
func (s *InvoiceService) MarkViewed(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	if billing.CanMarkViewed(invoice.Status) {
		if err := s.invoiceRepo.UpdateStatus(ctx, id, enum.InvoiceStatusViewed); err != nil {
			return nil, err
		}
	}
	return s.invoiceRepo.GetWithItems(ctx, id)
}

// MarkOverdue sweeps sent and viewed invoices past their due date into
// overdue and returns how many were flipped.
func (s *InvoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	return s.invoiceRepo.MarkOverdue(ctx, time.Now())
}

// GetDueInvoices returns invoices with an open balance
func (s *InvoiceService) GetDueInvoices(ctx context.Context, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Invoice], error) {
	invoices, total, err := s.invoiceRepo.GetDueInvoices(ctx, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(invoices, pag), nil
}

// SendInvoiceInput represents the send invoice input
type SendInvoiceInput struct {
	To                 string
	CC                 []string
	Subject            string
	Message            string
	Resend             bool
	AttachDocument     bool
	IncludePaymentLink bool
}

// SendResult reports what the send flow accomplished. Email and payment
// link failures are soft: the status transition still stands and the
// caller sees what went wrong.
type SendResult struct {
	Invoice     *entity.Invoice `json:"invoice"`
	EmailSent   bool            `json:"email_sent"`
	EmailError  string          `json:"email_error,omitempty"`
	PaymentLink string          `json:"payment_link,omitempty"`
}

// SendInvoice transitions the invoice to sent (first send only) and emails
// it to the contact. The transition is committed before the email goes
// out; a failed delivery reports emailSent=false without rolling back.
func (s *InvoiceService) SendInvoice(ctx context.Context, id uuid.UUID, input *SendInvoiceInput) (*SendResult, error) {
	invoice, err := s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	if !billing.CanSend(invoice.Status, input.Resend) {
		return nil, apperror.NewConflictError(
			fmt.Sprintf("Invoice in status %s cannot be sent", invoice.Status))
	}

	to := input.To
	if to == "" && invoice.Contact != nil && invoice.Contact.HasEmail() {
		to = *invoice.Contact.Email
	}
	if to == "" {
		return nil, apperror.NewBadRequestError("No recipient email: set one on the contact or in the request")
	}

	if err := s.invoiceRepo.MarkSent(ctx, id, time.Now()); err != nil {
		return nil, err
	}
	invoice, err = s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &SendResult{Invoice: invoice}

	if input.IncludePaymentLink && invoice.AmountDue.IsPositive() {
		link, err := s.linker.CreatePaymentLink(ctx, id)
		if err != nil {
			result.EmailError = fmt.Sprintf("payment link unavailable: %v", err)
		} else {
			result.PaymentLink = link.URL
		}
	}

	profile, businessName := s.resolveProfile(ctx)

	var attachment []byte
	var attachmentName string
	if input.AttachDocument {
		data := s.buildInvoiceDocument(invoice, profile)
		attachment, attachmentName, err = s.renderer.Render(data)
		if err != nil {
			attachment = nil
		}
	}

	subject := input.Subject
	if subject == "" {
		subject = fmt.Sprintf("Invoice %s from %s", invoice.InvoiceNumber, businessName)
	}
	message := input.Message
	if message == "" {
		message = fmt.Sprintf("Please find invoice %s attached. Amount due: %s %s.",
			invoice.InvoiceNumber, invoice.AmountDue.StringFixed(2), invoice.Currency)
	}

	sendErr := s.emailService.SendDocumentEmail(email.DocumentEmail{
		To:             to,
		CC:             input.CC,
		Subject:        subject,
		Message:        message,
		DocumentNumber: invoice.InvoiceNumber,
		BusinessName:   businessName,
		PaymentLink:    result.PaymentLink,
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

// RenderInvoice renders the invoice as a downloadable document
func (s *InvoiceService) RenderInvoice(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	invoice, err := s.invoiceRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if invoice == nil {
		return nil, "", apperror.NewNotFoundError("Invoice")
	}

	profile, _ := s.resolveProfile(ctx)
	return s.renderer.Render(s.buildInvoiceDocument(invoice, profile))
}

func (s *InvoiceService) resolveProfile(ctx context.Context) (*entity.BusinessProfile, string) {
	profile, err := s.profileRepo.GetByTenant(ctx)
	if err != nil || profile == nil {
		return nil, "Billing"
	}
	return profile, profile.Name
}

func (s *InvoiceService) buildInvoiceDocument(invoice *entity.Invoice, profile *entity.BusinessProfile) renderer.DocumentData {
	data := renderer.DocumentData{
		Kind:           "Invoice",
		Number:         invoice.InvoiceNumber,
		Status:         invoice.Status.String(),
		Currency:       invoice.Currency,
		IssueDate:      invoice.IssueDate.Format("2006-01-02"),
		DueDate:        invoice.DueDate.Format("2006-01-02"),
		Subtotal:       invoice.Subtotal,
		TaxRate:        invoice.TaxRate,
		TaxAmount:      invoice.TaxAmount,
		DiscountAmount: invoice.DiscountAmount,
		Total:          invoice.Total,
		AmountPaid:     invoice.AmountPaid,
		AmountDue:      invoice.AmountDue,
	}
	if invoice.Notes != nil {
		data.Notes = *invoice.Notes
	}
	if invoice.Terms != nil {
		data.Terms = *invoice.Terms
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
	if invoice.Contact != nil {
		data.ContactName = invoice.Contact.Name
		if invoice.Contact.Email != nil {
			data.ContactEmail = *invoice.Contact.Email
		}
		if invoice.Contact.Address != nil {
			data.ContactAddr = *invoice.Contact.Address
		}
	}
	for _, item := range invoice.Items {
		data.Items = append(data.Items, renderer.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	return data
}
