package handler

import (
	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SubmissionHandler handles inventory form submission endpoints
type SubmissionHandler struct {
	BaseHandler
	submissionService *inventoryapp.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(submissionService *inventoryapp.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

// SubmitInventoryRequest represents one inventory count form submission
// @Description Request body for submitting an inventory count
type SubmitInventoryRequest struct {
	AssetID   string            `json:"asset_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	FormID    string            `json:"form_id" binding:"required,uuid" example:"660e8400-e29b-41d4-a716-446655440000"`
	EventType string            `json:"event_type" binding:"omitempty,max=32" example:"monthly_count"`
	Values    map[string]string `json:"values" binding:"required"`
	Notes     string            `json:"notes" binding:"max=2000"`
}

// Submit godoc
// @Summary      Submit an inventory count
// @Description  Process a filled inventory form: evaluate its formulas, apply the quantity change, and run anomaly detection
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        request body SubmitInventoryRequest true "Inventory submission"
// @Success      200 {object} dto.Response{data=inventoryapp.ReconciliationResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SubmitInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		h.BadRequest(c, "Invalid asset ID format")
		return
	}
	formID, err := uuid.Parse(req.FormID)
	if err != nil {
		h.BadRequest(c, "Invalid form ID format")
		return
	}

	appReq := inventoryapp.SubmitInventoryRequest{
		TenantID:  tenantID,
		AssetID:   assetID,
		FormID:    formID,
		EventType: req.EventType,
		Values:    req.Values,
		Notes:     req.Notes,
	}
	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		appReq.ActorID = &userID
	}

	result, err := h.submissionService.Process(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
