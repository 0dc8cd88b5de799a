package handler

import (
	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/assettrack/backend/internal/domain/shared"
	"github.com/assettrack/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetHandler handles asset-related API endpoints
type AssetHandler struct {
	BaseHandler
	assetService *inventoryapp.AssetService
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(assetService *inventoryapp.AssetService) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
	}
}

// CreateAssetRequest represents a request to register a tracked asset
// @Description Request body for registering a new asset
type CreateAssetRequest struct {
	Name            string            `json:"name" binding:"required,min=1,max=200" example:"Forklift Battery"`
	Category        string            `json:"category" binding:"max=64" example:"equipment"`
	Unit            string            `json:"unit" binding:"max=32" example:"pcs"`
	InitialQuantity *float64          `json:"initial_quantity" example:"12"`
	Metadata        map[string]string `json:"metadata"`
}

// UpdateAssetRequest represents a request to update an asset's attributes.
// Quantity is not accepted here; it only moves through submissions and
// corrections.
// @Description Request body for updating an asset
type UpdateAssetRequest struct {
	Name     *string           `json:"name" binding:"omitempty,min=1,max=200" example:"Forklift Battery v2"`
	Unit     *string           `json:"unit" binding:"omitempty,max=32" example:"pcs"`
	Metadata map[string]string `json:"metadata"`
}

// Create godoc
// @Summary      Register a new asset
// @Description  Register a new tracked asset with an optional starting quantity
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        request body CreateAssetRequest true "Asset creation request"
// @Success      201 {object} dto.Response{data=inventoryapp.AssetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	appReq := inventoryapp.CreateAssetRequest{
		TenantID: tenantID,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Metadata: req.Metadata,
	}
	if req.InitialQuantity != nil {
		appReq.InitialQuantity = decimal.NewFromFloat(*req.InitialQuantity)
	}

	asset, err := h.assetService.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, asset)
}

// GetByID godoc
// @Summary      Get asset by ID
// @Description  Retrieve a tracked asset by its ID
// @Tags         assets
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.AssetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets/{id} [get]
func (h *AssetHandler) GetByID(c *gin.Context) {
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

	asset, err := h.assetService.Get(c.Request.Context(), tenantID, assetID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, asset)
}

// List godoc
// @Summary      List assets
// @Description  Retrieve a paginated list of tracked assets
// @Tags         assets
// @Produce      json
// @Param        search query string false "Search term (name, category)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]inventoryapp.AssetResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindError(c, err)
		return
	}

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Search:   listReq.Search,
	}

	assets, total, err := h.assetService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, assets, total, filter.Page, filter.PageSize)
}

// Update godoc
// @Summary      Update an asset
// @Description  Update an asset's descriptive attributes
// @Tags         assets
// @Accept       json
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        request body UpdateAssetRequest true "Asset update request"
// @Success      200 {object} dto.Response{data=inventoryapp.AssetResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
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

	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	asset, err := h.assetService.Update(c.Request.Context(), inventoryapp.UpdateAssetRequest{
		TenantID: tenantID,
		AssetID:  assetID,
		Name:     req.Name,
		Unit:     req.Unit,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, asset)
}

// Deactivate godoc
// @Summary      Deactivate an asset
// @Description  Retire an asset from tracking while keeping its history
// @Tags         assets
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets/{id} [delete]
func (h *AssetHandler) Deactivate(c *gin.Context) {
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

	if err := h.assetService.Deactivate(c.Request.Context(), tenantID, assetID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// History godoc
// @Summary      Get asset quantity history
// @Description  Retrieve the most recent quantity records for an asset, newest first
// @Tags         assets
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        limit query int false "Maximum records to return" default(6)
// @Success      200 {object} dto.Response{data=[]inventoryapp.RecordResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assets/{id}/history [get]
func (h *AssetHandler) History(c *gin.Context) {
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

	var query struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	records, err := h.assetService.History(c.Request.Context(), tenantID, assetID, query.Limit)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, records)
}
