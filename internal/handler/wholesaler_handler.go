package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type WholesalerHandler struct {
	wholesalerService service.WholesalerService
}

func NewWholesalerHandler(wholesalerService service.WholesalerService) *WholesalerHandler {
	return &WholesalerHandler{wholesalerService: wholesalerService}
}

func (h *WholesalerHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	group := router.Group("/api/wholesalers", auth)
	{
		group.GET("", h.Search)
		group.GET("/:id", h.GetProfile)
		group.PUT("/:id", h.UpdateProfile)
		group.DELETE("/:id", h.DeactivateProfile)
	}
}

// Search
// @Summary      Search wholesalers
// @Tags         wholesalers
// @Produce      json
// @Security     BearerAuth
// @Param        keyword  query     string  false  "Name or suburb"
// @Success      200      {object}  response.Response{data=[]service.WholesalerResponse}
// @Router       /api/wholesalers [get]
func (h *WholesalerHandler) Search(c *gin.Context) {
	res, err := h.wholesalerService.Search(c.Request.Context(), middleware.CurrentActor(c), c.Query("keyword"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetProfile
// @Summary      Get wholesaler profile
// @Tags         wholesalers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Wholesaler profile ID"
// @Success      200  {object}  response.Response{data=service.WholesalerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/wholesalers/{id} [get]
func (h *WholesalerHandler) GetProfile(c *gin.Context) {
	res, err := h.wholesalerService.GetProfile(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdateProfile lets a wholesaler edit their own profile
// @Summary      Update wholesaler profile
// @Tags         wholesalers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Wholesaler profile ID"
// @Param        payload  body      service.UpdateWholesalerRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.WholesalerResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/wholesalers/{id} [put]
func (h *WholesalerHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateWholesalerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.wholesalerService.UpdateProfile(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeactivateProfile
// @Summary      Deactivate wholesaler profile
// @Tags         wholesalers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Wholesaler profile ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/wholesalers/{id} [delete]
func (h *WholesalerHandler) DeactivateProfile(c *gin.Context) {
	if err := h.wholesalerService.DeactivateProfile(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
