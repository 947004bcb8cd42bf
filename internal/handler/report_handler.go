package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/api/reports", auth, h.GetReport)
}

// GetReport aggregates settled appraisal facts
// @Summary      Get report
// @Description  Counts by status, top vehicle makes, wins per wholesaler and profit/loss
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        dealership_id  query     string  false  "Limit to one dealership"
// @Success      200            {object}  response.Response{data=model.ReportResponse}
// @Failure      403            {object}  response.Response
// @Router       /api/reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.GetReport(c.Request.Context(), middleware.CurrentActor(c), c.Query("dealership_id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
