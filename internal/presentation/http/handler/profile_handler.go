package handler

import (
	"github.com/finledger/billable-api/internal/application/service"
	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/presentation/http/dto/request"
	"github.com/finledger/billable-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles business profile and tenant settings requests
type ProfileHandler struct {
	profileService *service.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Get handles retrieving the tenant's business profile
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profileService.GetProfile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Business profile retrieved successfully", profile)
}

// Upsert handles creating or replacing the tenant's business profile
func (h *ProfileHandler) Upsert(c *gin.Context) {
	var req request.UpsertBusinessProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.profileService.UpsertProfile(c.Request.Context(), &service.UpsertProfileInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		TaxID:   req.TaxID,
		LogoURL: req.LogoURL,
		Website: req.Website,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Business profile saved", profile)
}

// GetSettings handles retrieving the tenant's billing settings
func (h *ProfileHandler) GetSettings(c *gin.Context) {
	settings, err := h.profileService.GetTenantSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings retrieved successfully", settings)
}

// UpdateSettings handles replacing the tenant's billing settings
func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	var req request.UpdateTenantSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	settings, err := h.profileService.UpdateTenantSettings(c.Request.Context(), entity.TenantSettings{
		Currency:           req.Currency,
		Timezone:           req.Timezone,
		DateFormat:         req.DateFormat,
		DefaultTaxRate:     req.DefaultTaxRate,
		TaxLabel:           req.TaxLabel,
		PaymentTermsDays:   req.PaymentTermsDays,
		InvoicePrefix:      req.InvoicePrefix,
		EstimatePrefix:     req.EstimatePrefix,
		InvoiceFooter:      req.InvoiceFooter,
		EmailNotifications: req.EmailNotifications,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings updated successfully", settings)
}
