package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/pagination"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/api/audit-logs", auth, h.GetAuditLogs)
}

// GetAuditLogs pages through management-side changes at the caller's dealerships
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        dealership_id  query     string  false  "Limit to one dealership"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Number of items per page (default 20)"
// @Success      200            {object}  response.Response{data=[]service.AuditLogResponse}
// @Failure      403            {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), middleware.CurrentActor(c), c.Query("dealership_id"), params.Page, params.Limit)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, params.Page, params.Limit, total))
}
