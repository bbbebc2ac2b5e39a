package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentItemRequest represents one line item on an invoice or estimate
type DocumentItemRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest represents an invoice creation request. Dates use
// the YYYY-MM-DD form; omitted fields fall back to tenant defaults.
type CreateInvoiceRequest struct {
	ContactID     *uuid.UUID            `json:"contact_id"`
	Currency      string                `json:"currency" binding:"omitempty,len=3"`
	TaxRate       *decimal.Decimal      `json:"tax_rate"`
	DiscountType  string                `json:"discount_type" binding:"omitempty,oneof=percent fixed"`
	DiscountValue decimal.Decimal       `json:"discount_value"`
	IssueDate     *string               `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate       *string               `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Notes         *string               `json:"notes"`
	Terms         *string               `json:"terms"`
	Items         []DocumentItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateInvoiceRequest represents an invoice update request. Nil fields
// stay unchanged; a present items array replaces the whole item set.
type UpdateInvoiceRequest struct {
	ContactID     *uuid.UUID            `json:"contact_id"`
	TaxRate       *decimal.Decimal      `json:"tax_rate"`
	DiscountType  *string               `json:"discount_type" binding:"omitempty,oneof=percent fixed"`
	DiscountValue *decimal.Decimal      `json:"discount_value"`
	IssueDate     *string               `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	DueDate       *string               `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Notes         *string               `json:"notes"`
	Terms         *string               `json:"terms"`
	Items         []DocumentItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// SendDocumentRequest represents a send request for an invoice or
// estimate. With no recipient the contact's email is used.
type SendDocumentRequest struct {
	To                 string   `json:"to" binding:"omitempty,email"`
	CC                 []string `json:"cc" binding:"omitempty,dive,email"`
	Subject            string   `json:"subject" binding:"omitempty,max=255"`
	Message            string   `json:"message"`
	Resend             bool     `json:"resend"`
	AttachDocument     bool     `json:"attach_document"`
	IncludePaymentLink bool     `json:"include_payment_link"`
}

// RecordPaymentRequest represents a manual payment entry against an
// invoice
type RecordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,max=50"`
	Reference     *string         `json:"reference" binding:"omitempty,max=255"`
	Notes         *string         `json:"notes"`
	PaidAt        *string         `json:"paid_at" binding:"omitempty,datetime=2006-01-02"`
}

// CreateEstimateRequest represents an estimate creation request
type CreateEstimateRequest struct {
	ContactID     *uuid.UUID            `json:"contact_id"`
	Currency      string                `json:"currency" binding:"omitempty,len=3"`
	TaxRate       *decimal.Decimal      `json:"tax_rate"`
	DiscountType  string                `json:"discount_type" binding:"omitempty,oneof=percent fixed"`
	DiscountValue decimal.Decimal       `json:"discount_value"`
	IssueDate     *string               `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	ValidUntil    *string               `json:"valid_until" binding:"omitempty,datetime=2006-01-02"`
	Notes         *string               `json:"notes"`
	Items         []DocumentItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateEstimateRequest represents an estimate update request
type UpdateEstimateRequest struct {
	ContactID     *uuid.UUID            `json:"contact_id"`
	TaxRate       *decimal.Decimal      `json:"tax_rate"`
	DiscountType  *string               `json:"discount_type" binding:"omitempty,oneof=percent fixed"`
	DiscountValue *decimal.Decimal      `json:"discount_value"`
	IssueDate     *string               `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	ValidUntil    *string               `json:"valid_until" binding:"omitempty,datetime=2006-01-02"`
	Notes         *string               `json:"notes"`
	Items         []DocumentItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// CreateContactRequest represents a contact creation request
type CreateContactRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=255"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	TaxID       *string `json:"tax_id" binding:"omitempty,max=50"`
	Address     *string `json:"address"`
}

// UpdateContactRequest represents a contact update request
type UpdateContactRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=255"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	TaxID       *string `json:"tax_id" binding:"omitempty,max=50"`
	Address     *string `json:"address"`
}

// UpsertBusinessProfileRequest represents the issuer identity shown on
// documents
type UpsertBusinessProfileRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=255"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	Address *string `json:"address"`
	TaxID   *string `json:"tax_id" binding:"omitempty,max=50"`
	LogoURL *string `json:"logo_url" binding:"omitempty,url"`
	Website *string `json:"website" binding:"omitempty,url"`
}

// UpdateTenantSettingsRequest represents a tenant settings update
type UpdateTenantSettingsRequest struct {
	Currency           string  `json:"currency" binding:"omitempty,len=3"`
	Timezone           string  `json:"timezone" binding:"omitempty,max=64"`
	DateFormat         string  `json:"date_format" binding:"omitempty,max=20"`
	DefaultTaxRate     float64 `json:"default_tax_rate" binding:"min=0,max=100"`
	TaxLabel           string  `json:"tax_label" binding:"omitempty,max=50"`
	PaymentTermsDays   int     `json:"payment_terms_days" binding:"min=0"`
	InvoicePrefix      string  `json:"invoice_prefix" binding:"omitempty,max=20"`
	EstimatePrefix     string  `json:"estimate_prefix" binding:"omitempty,max=20"`
	InvoiceFooter      string  `json:"invoice_footer" binding:"omitempty,max=500"`
	EmailNotifications bool    `json:"email_notifications"`
}

// InvoiceFilterRequest represents invoice list filter parameters
type InvoiceFilterRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	ContactID string `form:"contact_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

// EstimateFilterRequest represents estimate list filter parameters
type EstimateFilterRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status"`
	ContactID string `form:"contact_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}
