package handler

import (
	"github.com/finledger/billable-api/internal/application/service"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/internal/presentation/http/dto/request"
	"github.com/finledger/billable-api/internal/presentation/http/dto/response"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EstimateHandler handles estimate-related HTTP requests
type EstimateHandler struct {
	estimateService *service.EstimateService
}

// NewEstimateHandler creates a new estimate handler
func NewEstimateHandler(estimateService *service.EstimateService) *EstimateHandler {
	return &EstimateHandler{estimateService: estimateService}
}

// List handles listing estimates with filtering
func (h *EstimateHandler) List(c *gin.Context) {
	var req request.EstimateFilterRequest
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

	params := &repository.EstimateFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    req.Page,
			PerPage: req.PerPage,
		},
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	if req.Status != "" {
		status := enum.EstimateStatus(req.Status)
		if !status.Valid() {
			response.BadRequest(c, "Unknown estimate status")
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

	result, err := h.estimateService.ListEstimates(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Estimates retrieved successfully", result)
}

// Create handles creating a draft estimate
func (h *EstimateHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.CreateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input := &service.CreateEstimateInput{
		UserID:        *userID,
		ContactID:     req.ContactID,
		Currency:      req.Currency,
		TaxRate:       req.TaxRate,
		DiscountType:  enum.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		IssueDate:     parseDate(req.IssueDate),
		ValidUntil:    parseDate(req.ValidUntil),
		Notes:         req.Notes,
		Items:         toItemInputs(req.Items),
	}

	estimate, err := h.estimateService.CreateEstimate(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Estimate created successfully", estimate)
}

// Get handles retrieving a single estimate with its items
func (h *EstimateHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	estimate, err := h.estimateService.GetEstimate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Estimate retrieved successfully", estimate)
}

// Update handles updating an unconverted estimate
func (h *EstimateHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	var req request.UpdateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input := &service.UpdateEstimateInput{
		ContactID:     req.ContactID,
		TaxRate:       req.TaxRate,
		DiscountValue: req.DiscountValue,
		IssueDate:     parseDate(req.IssueDate),
		ValidUntil:    parseDate(req.ValidUntil),
		Notes:         req.Notes,
	}
	if req.DiscountType != nil {
		discountType := enum.DiscountType(*req.DiscountType)
		input.DiscountType = &discountType
	}
	if req.Items != nil {
		input.Items = toItemInputs(req.Items)
	}

	estimate, err := h.estimateService.UpdateEstimate(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Estimate updated successfully", estimate)
}

// Delete handles deleting a draft estimate
func (h *EstimateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	if err := h.estimateService.DeleteEstimate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Send handles sending an estimate to its contact
func (h *EstimateHandler) Send(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
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

	result, err := h.estimateService.SendEstimate(c.Request.Context(), id, &service.SendInvoiceInput{
		To:             req.To,
		CC:             req.CC,
		Subject:        req.Subject,
		Message:        req.Message,
		AttachDocument: req.AttachDocument,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Estimate sent", result)
}

// Accept handles marking a sent estimate accepted
func (h *EstimateHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	estimate, err := h.estimateService.AcceptEstimate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Estimate accepted", estimate)
}

// Decline handles marking a sent estimate declined
func (h *EstimateHandler) Decline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	estimate, err := h.estimateService.DeclineEstimate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Estimate declined", estimate)
}

// Convert handles the one-shot conversion into a draft invoice
func (h *EstimateHandler) Convert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid estimate ID")
		return
	}

	invoice, err := h.estimateService.ConvertToInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Estimate converted to invoice", invoice)
}
