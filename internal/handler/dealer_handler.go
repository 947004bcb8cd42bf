package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DealerHandler struct {
	dealerService service.DealerService
}

func NewDealerHandler(dealerService service.DealerService) *DealerHandler {
	return &DealerHandler{dealerService: dealerService}
}

func (h *DealerHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	dealerships := router.Group("/api/dealerships", auth)
	{
		dealerships.GET("", h.ListDealerships)
		dealerships.POST("", h.CreateDealership)
		dealerships.GET("/search", h.SearchDealerships)
		dealerships.DELETE("/:id", h.DeactivateDealership)
		dealerships.GET("/:id/dealers", h.ListDealers)
		dealerships.GET("/:id/wholesalers", h.ListWholesalers)
	}

	dealers := router.Group("/api/dealers", auth)
	{
		dealers.POST("", h.CreateStaff)
		dealers.PUT("/:id/dealerships", h.AssignDealer)
		dealers.PUT("/:id/role", h.ChangeRole)
		dealers.DELETE("/:id", h.DeactivateDealer)
	}
}

// ListDealerships returns the dealerships the caller belongs to or has been granted
// @Summary      List own dealerships
// @Tags         dealerships
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.DealershipResponse}
// @Router       /api/dealerships [get]
func (h *DealerHandler) ListDealerships(c *gin.Context) {
	res, err := h.dealerService.ListDealerships(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreateDealership creates a dealership the calling manager joins
// @Summary      Create dealership
// @Tags         dealerships
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDealershipRequest  true  "Dealership"
// @Success      201      {object}  response.Response{data=service.DealershipResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/dealerships [post]
func (h *DealerHandler) CreateDealership(c *gin.Context) {
	var req service.CreateDealershipRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.dealerService.CreateDealership(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// SearchDealerships finds active dealerships a wholesaler can send a request to
// @Summary      Search dealerships
// @Tags         dealerships
// @Produce      json
// @Security     BearerAuth
// @Param        keyword  query     string  false  "Name, suburb or slug"
// @Success      200      {object}  response.Response{data=[]service.DealershipResponse}
// @Router       /api/dealerships/search [get]
func (h *DealerHandler) SearchDealerships(c *gin.Context) {
	res, err := h.dealerService.SearchDealerships(c.Request.Context(), middleware.CurrentActor(c), c.Query("keyword"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeactivateDealership
// @Summary      Deactivate dealership
// @Tags         dealerships
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Dealership ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/dealerships/{id} [delete]
func (h *DealerHandler) DeactivateDealership(c *gin.Context) {
	if err := h.dealerService.DeactivateDealership(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// ListDealers
// @Summary      List dealers at a dealership
// @Tags         dealerships
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Dealership ID"
// @Success      200  {object}  response.Response{data=[]service.DealerResponse}
// @Router       /api/dealerships/{id}/dealers [get]
func (h *DealerHandler) ListDealers(c *gin.Context) {
	res, err := h.dealerService.ListDealers(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListWholesalers
// @Summary      List wholesalers granted access to a dealership
// @Tags         dealerships
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Dealership ID"
// @Success      200  {object}  response.Response{data=[]service.WholesalerResponse}
// @Router       /api/dealerships/{id}/wholesalers [get]
func (h *DealerHandler) ListWholesalers(c *gin.Context) {
	res, err := h.dealerService.ListDealershipWholesalers(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreateStaff registers a new dealer account at one of the manager's dealerships
// @Summary      Create staff
// @Tags         dealers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateStaffRequest  true  "Staff account"
// @Success      201      {object}  response.Response{data=service.DealerResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/dealers [post]
func (h *DealerHandler) CreateStaff(c *gin.Context) {
	var req service.CreateStaffRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.dealerService.CreateStaff(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// AssignDealer
// @Summary      Add a dealer to another dealership
// @Tags         dealers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Dealer profile ID"
// @Param        payload  body      service.AssignDealerRequest  true  "Dealership"
// @Success      200      {object}  response.Response{data=service.DealerResponse}
// @Router       /api/dealers/{id}/dealerships [put]
func (h *DealerHandler) AssignDealer(c *gin.Context) {
	var req service.AssignDealerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.dealerService.AssignDealer(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ChangeRole promotes or demotes a dealer
// @Summary      Change dealer role
// @Tags         dealers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Dealer profile ID"
// @Param        payload  body      service.ChangeRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.DealerResponse}
// @Failure      403      {object}  response.Response
// @Router       /api/dealers/{id}/role [put]
func (h *DealerHandler) ChangeRole(c *gin.Context) {
	var req service.ChangeRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.dealerService.ChangeRole(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeactivateDealer
// @Summary      Deactivate dealer
// @Tags         dealers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Dealer profile ID"
// @Success      200  {object}  response.Response
// @Router       /api/dealers/{id} [delete]
func (h *DealerHandler) DeactivateDealer(c *gin.Context) {
	if err := h.dealerService.DeactivateDealer(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
