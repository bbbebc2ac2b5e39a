package handler

import (
	"strconv"
	"time"

	"github.com/finledger/billable-api/internal/application/service"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/internal/presentation/http/dto/request"
	"github.com/finledger/billable-api/internal/presentation/http/dto/response"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	ledgerService  *service.LedgerService
	reconciler     *service.ReconcilerService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(
	invoiceService *service.InvoiceService,
	ledgerService *service.LedgerService,
	reconciler *service.ReconcilerService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		ledgerService:  ledgerService,
		reconciler:     reconciler,
	}
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func toItemInputs(items []request.DocumentItemRequest) []service.DocumentItemInput {
	out := make([]service.DocumentItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, service.DocumentItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

// List handles listing invoices with filtering
func (h *InvoiceHandler) List(c *gin.Context) {
	var req request.InvoiceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid filter parameters")
		return
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PerPage == 0 {
		req.PerPage = 15
	}

	params := &repository.InvoiceFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	if req.Status != "" {
		status := enum.InvoiceStatus(req.Status)
		if !status.Valid() {
			response.BadRequest(c, "Unknown invoice status")
			return
		}
		params.Status = &status
	}
	if req.ContactID != "" {
		if contactID, err := uuid.Parse(req.ContactID); err == nil {
			params.ContactID = &contactID
		}
	}
	if startDate := parseDate(&req.StartDate); startDate != nil {
		params.StartDate = startDate
	}
	if endDate := parseDate(&req.EndDate); endDate != nil {
		params.EndDate = endDate
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Invoices retrieved successfully", result)
}

// Create handles creating a draft invoice
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input := &service.CreateInvoiceInput{
		UserID:        *userID,
		ContactID:     req.ContactID,
		Currency:      req.Currency,
		TaxRate:       req.TaxRate,
		DiscountType:  enum.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		IssueDate:     parseDate(req.IssueDate),
		DueDate:       parseDate(req.DueDate),
		Notes:         req.Notes,
		Terms:         req.Terms,
		Items:         toItemInputs(req.Items),
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Invoice created successfully", invoice)
}

// Get handles retrieving a single invoice with its items
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice retrieved successfully", invoice)
}

// Update handles updating an editable invoice
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req request.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input := &service.UpdateInvoiceInput{
		ContactID:     req.ContactID,
		TaxRate:       req.TaxRate,
		DiscountValue: req.DiscountValue,
		IssueDate:     parseDate(req.IssueDate),
		DueDate:       parseDate(req.DueDate),
		Notes:         req.Notes,
		Terms:         req.Terms,
	}
	if req.DiscountType != nil {
		discountType := enum.DiscountType(*req.DiscountType)
		input.DiscountType = &discountType
	}
	if req.Items != nil {
		input.Items = toItemInputs(req.Items)
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice updated successfully", invoice)
}

// Delete handles deleting a draft invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Send handles sending an invoice to its contact
func (h *InvoiceHandler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	// The request body is optional; an empty send uses the contact email
	var req request.SendDocumentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.invoiceService.SendInvoice(c.Request.Context(), id, &service.SendInvoiceInput{
		To:                 req.To,
		CC:                 req.CC,
		Subject:            req.Subject,
		Message:            req.Message,
		Resend:             req.Resend,
		AttachDocument:     req.AttachDocument,
		IncludePaymentLink: req.IncludePaymentLink,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice sent", result)
}

// Cancel handles cancelling a non-terminal invoice
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice cancelled", invoice)
}

// MarkViewed handles the open-tracking ping for a sent invoice
func (h *InvoiceHandler) MarkViewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.MarkViewed(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice marked as viewed", invoice)
}

// MarkOverdue sweeps sent and viewed invoices past their due date
func (h *InvoiceHandler) MarkOverdue(c *gin.Context) {
	flipped, err := h.invoiceService.MarkOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Overdue sweep completed", gin.H{"marked_overdue": flipped})
}

// Due handles listing invoices with an open balance
func (h *InvoiceHandler) Due(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))

	result, err := h.invoiceService.GetDueInvoices(c.Request.Context(), &pagination.PaginationParams{
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Due invoices retrieved successfully", result)
}

// RecordPayment handles recording a manual payment against an invoice
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req request.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	applied, err := h.ledgerService.ApplyPayment(c.Request.Context(), &service.ApplyPaymentInput{
		InvoiceID:         id,
		Amount:            req.Amount,
		Currency:          req.Currency,
		PaymentMethod:     req.PaymentMethod,
		Notes:             req.Notes,
		ProviderReference: req.Reference,
		PaidAt:            parseDate(req.PaidAt),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Payment recorded successfully", applied)
}

// ListPayments handles listing the payment history of an invoice
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	payments, err := h.ledgerService.ListInvoicePayments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payments retrieved successfully", payments)
}

// CreatePaymentLink handles creating (or reusing) a hosted checkout link
func (h *InvoiceHandler) CreatePaymentLink(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	link, err := h.reconciler.CreatePaymentLink(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment link created", link)
}

// Render handles downloading the invoice as a document
func (h *InvoiceHandler) Render(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid invoice ID")
		return
	}

	body, filename, err := h.invoiceService.RenderInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "text/html; charset=utf-8", body)
}
