package handler

import (
	"time"

	inventoryapp "github.com/assettrack/backend/internal/application/inventory"
	"github.com/assettrack/backend/internal/domain/history"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler handles historical reporting endpoints
type ReportHandler struct {
	BaseHandler
	reportingService *inventoryapp.ReportingService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportingService *inventoryapp.ReportingService) *ReportHandler {
	return &ReportHandler{
		reportingService: reportingService,
	}
}

// monthParam parses the month query parameter in YYYY-MM form, falling
// back to the current month when absent
func monthParam(c *gin.Context) (history.Month, bool) {
	raw := c.Query("month")
	if raw == "" {
		return history.MonthOf(time.Now()), true
	}
	month, err := history.ParseMonth(raw)
	if err != nil {
		return history.Month{}, false
	}
	return month, true
}

// LastMonthTotal godoc
// @Summary      Get last month's total
// @Description  Resolve the previous month's closing total for an asset, preferring validated submissions over raw records
// @Tags         reports
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        month query string false "Reference month (YYYY-MM), defaults to current"
// @Success      200 {object} dto.Response{data=history.HistoricalTotal}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/assets/{id}/last-month-total [get]
func (h *ReportHandler) LastMonthTotal(c *gin.Context) {
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

	month, ok := monthParam(c)
	if !ok {
		h.BadRequest(c, "Invalid month format, expected YYYY-MM")
		return
	}

	total, err := h.reportingService.LastMonthTotal(c.Request.Context(), tenantID, assetID, month)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, total)
}

// MonthlyTotals godoc
// @Summary      Get monthly totals
// @Description  Resolve a series of month-end totals for an asset, oldest first, with a next-month prediction and a quality grade
// @Tags         reports
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        month query string false "Reference month (YYYY-MM), defaults to current"
// @Param        months query int false "Number of months to resolve" default(6)
// @Success      200 {object} dto.Response{data=inventoryapp.MonthlyTotalsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/assets/{id}/monthly-totals [get]
func (h *ReportHandler) MonthlyTotals(c *gin.Context) {
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

	month, ok := monthParam(c)
	if !ok {
		h.BadRequest(c, "Invalid month format, expected YYYY-MM")
		return
	}

	var query struct {
		Months int `form:"months" binding:"omitempty,min=1,max=24"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	if query.Months <= 0 {
		query.Months = 6
	}

	totals, err := h.reportingService.MonthlyTotals(c.Request.Context(), tenantID, assetID, month, query.Months)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, totals)
}

// CheckConsistency godoc
// @Summary      Audit a month's inventory consistency
// @Description  Compare the live quantity against the month's submitted total and report every record whose previous-quantity link disagrees with its predecessor
// @Tags         reports
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Param        month query string false "Month to check (YYYY-MM), defaults to current"
// @Success      200 {object} dto.Response{data=inventoryapp.ConsistencyReport}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/assets/{id}/consistency [get]
func (h *ReportHandler) CheckConsistency(c *gin.Context) {
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

	month, ok := monthParam(c)
	if !ok {
		h.BadRequest(c, "Invalid month format, expected YYYY-MM")
		return
	}

	report, err := h.reportingService.CheckConsistency(c.Request.Context(), tenantID, assetID, month)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// UsageForecast godoc
// @Summary      Forecast asset consumption
// @Description  Project daily usage, days until empty and the reorder point from the asset's recent quantity history
// @Tags         reports
// @Produce      json
// @Param        id path string true "Asset ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.UsageForecastResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/assets/{id}/usage-forecast [get]
func (h *ReportHandler) UsageForecast(c *gin.Context) {
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

	forecast, err := h.reportingService.PredictUsage(c.Request.Context(), tenantID, assetID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, forecast)
}
