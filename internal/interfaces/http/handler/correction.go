package handler

import (
	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CorrectionHandler handles reviewed quantity correction endpoints
type CorrectionHandler struct {
	BaseHandler
	correctionService *inventoryapp.CorrectionService
}

// NewCorrectionHandler creates a new CorrectionHandler
func NewCorrectionHandler(correctionService *inventoryapp.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{
		correctionService: correctionService,
	}
}

// ApplyCorrectionRequest represents a reviewed quantity correction,
// typically accepting an anomaly's suggested fix
// @Description Request body for applying a quantity correction
type ApplyCorrectionRequest struct {
	Quantity *float64 `json:"quantity" binding:"required,min=0" example:"42"`
	Reason   string   `json:"reason" binding:"required,min=1,max=2000" example:"Digit transposition confirmed by recount"`
}

// Apply godoc
// @Summary      Apply a quantity correction
// @Description  Set an asset's quantity to a reviewed value and record the adjustment
// @Tags         corrections
// @Accept       json
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        request body ApplyCorrectionRequest true "Correction request"
// @Success      200 {object} dto.Response{data=inventoryapp.CorrectionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets/{id}/corrections [post]
func (h *CorrectionHandler) Apply(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid asset ID format")
		return
	}

	var req ApplyCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	appReq := inventoryapp.ApplyCorrectionRequest{
		TenantID: tenantID,
		AssetID:  assetID,
		Quantity: decimal.NewFromFloat(*req.Quantity),
		Reason:   req.Reason,
	}
	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		appReq.ActorID = &userID
	}

	result, err := h.correctionService.Apply(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
