package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/pagination"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AppraisalHandler struct {
	appraisalService service.AppraisalService
}

func NewAppraisalHandler(appraisalService service.AppraisalService) *AppraisalHandler {
	return &AppraisalHandler{appraisalService: appraisalService}
}

func (h *AppraisalHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	group := router.Group("/api/appraisals", auth)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Deactivate)
		group.POST("/:id/submit", h.Submit)
		group.POST("/:id/duplicate", h.Duplicate)
		group.POST("/:id/comments", h.AddComment)
		group.POST("/:id/damages", h.AddDamage)
		group.POST("/:id/photos", h.AddPhoto)
	}
}

// List returns the appraisals visible to the caller, each with the status as the caller sees it
// @Summary      List appraisals
// @Description  Filters by keyword (dealership name, VIN, registration, make, model), dealership and dealer
// @Tags         appraisals
// @Produce      json
// @Security     BearerAuth
// @Param        keyword        query     string  false  "Keyword"
// @Param        dealership_id  query     string  false  "Dealership ID"
// @Param        dealer_id      query     string  false  "Initiating or last updating dealer account ID"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=[]service.AppraisalResponse}
// @Router       /api/appraisals [get]
func (h *AppraisalHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	res, total, err := h.appraisalService.List(c.Request.Context(), middleware.CurrentActor(c), service.ListAppraisalsQuery{
		Keyword:      params.Keyword,
		DealershipID: c.Query("dealership_id"),
		DealerID:     c.Query("dealer_id"),
		Page:         params.Page,
		Limit:        params.Limit,
	})
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, res, params.Page, params.Limit, total))
}

// Create
// @Summary      Create appraisal
// @Tags         appraisals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateAppraisalRequest  true  "Appraisal"
// @Success      201      {object}  response.Response{data=service.AppraisalResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/appraisals [post]
func (h *AppraisalHandler) Create(c *gin.Context) {
	var req service.CreateAppraisalRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.appraisalService.Create(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Get
// @Summary      Get appraisal
// @Tags         appraisals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appraisal ID"
// @Success      200  {object}  response.Response{data=service.AppraisalResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/appraisals/{id} [get]
func (h *AppraisalHandler) Get(c *gin.Context) {
	res, err := h.appraisalService.Get(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Update is management only
// @Summary      Update appraisal
// @Tags         appraisals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                          true  "Appraisal ID"
// @Param        payload  body      service.UpdateAppraisalRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.AppraisalResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/appraisals/{id} [put]
func (h *AppraisalHandler) Update(c *gin.Context) {
	var req service.UpdateAppraisalRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.appraisalService.Update(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Deactivate moves an appraisal to the trash
// @Summary      Deactivate appraisal
// @Tags         appraisals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appraisal ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/appraisals/{id} [delete]
func (h *AppraisalHandler) Deactivate(c *gin.Context) {
	if err := h.appraisalService.Deactivate(c.Request.Context(), middleware.CurrentActor(c), c.Param("id")); err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// Submit hands a sales appraisal over to management
// @Summary      Submit appraisal to management
// @Tags         appraisals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appraisal ID"
// @Success      200  {object}  response.Response{data=service.AppraisalResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/appraisals/{id}/submit [post]
func (h *AppraisalHandler) Submit(c *gin.Context) {
	res, err := h.appraisalService.Submit(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Duplicate
// @Summary      Duplicate appraisal
// @Description  Copies vehicle, customer, damages and photos into a new active appraisal
// @Tags         appraisals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appraisal ID"
// @Success      201  {object}  response.Response{data=service.AppraisalResponse}
// @Router       /api/appraisals/{id}/duplicate [post]
func (h *AppraisalHandler) Duplicate(c *gin.Context) {
	res, err := h.appraisalService.Duplicate(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// AddComment
// @Summary      Comment on appraisal
// @Tags         appraisals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Appraisal ID"
// @Param        payload  body      service.CommentRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=service.CommentResponse}
// @Router       /api/appraisals/{id}/comments [post]
func (h *AppraisalHandler) AddComment(c *gin.Context) {
	var req service.CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.appraisalService.AddComment(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// AddDamage
// @Summary      Record damage
// @Tags         appraisals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Appraisal ID"
// @Param        payload  body      service.DamagePayload  true  "Damage"
// @Success      201      {object}  response.Response{data=service.DamageResponse}
// @Router       /api/appraisals/{id}/damages [post]
func (h *AppraisalHandler) AddDamage(c *gin.Context) {
	var req service.DamagePayload
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.appraisalService.AddDamage(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// AddPhoto
// @Summary      Attach photo reference
// @Tags         appraisals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Appraisal ID"
// @Param        payload  body      service.PhotoPayload  true  "Photo"
// @Success      201      {object}  response.Response{data=service.PhotoResponse}
// @Router       /api/appraisals/{id}/photos [post]
func (h *AppraisalHandler) AddPhoto(c *gin.Context) {
	var req service.PhotoPayload
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.appraisalService.AddPhoto(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
