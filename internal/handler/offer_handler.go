package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	offerService service.OfferService
}

func NewOfferHandler(offerService service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

func (h *OfferHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	appraisals := router.Group("/api/appraisals", auth)
	{
		appraisals.GET("/:id/offers", h.ListOffers)
		appraisals.POST("/:id/invites", h.Invite)
		appraisals.POST("/:id/offer", h.MakeOffer)
		appraisals.POST("/:id/pass", h.PassOffer)
		appraisals.POST("/:id/winner", h.SelectWinner)
	}
	router.PUT("/api/offers/:id/amount", auth, h.AdjustAmount)
}

// ListOffers separates silent invites from offers that have been answered
// @Summary      List offers
// @Tags         offers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Appraisal ID"
// @Success      200  {object}  response.Response{data=service.OfferListResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/appraisals/{id}/offers [get]
func (h *OfferHandler) ListOffers(c *gin.Context) {
	res, err := h.offerService.ListOffers(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Invite asks wholesalers for an offer
// @Summary      Invite wholesalers
// @Description  Each id is reported as invited, already invited or rejected
// @Tags         offers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Appraisal ID"
// @Param        payload  body      service.InviteRequest  true  "Wholesaler profile IDs"
// @Success      200      {object}  response.Response{data=service.InviteResult}
// @Failure      409      {object}  response.Response
// @Router       /api/appraisals/{id}/invites [post]
func (h *OfferHandler) Invite(c *gin.Context) {
	var req service.InviteRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.offerService.Invite(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// MakeOffer records or replaces the caller's bid
// @Summary      Make offer
// @Tags         offers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Appraisal ID"
// @Param        payload  body      service.MakeOfferRequest  true  "Amount"
// @Success      200      {object}  response.Response{data=service.OwnOfferResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/appraisals/{id}/offer [post]
func (h *OfferHandler) MakeOffer(c *gin.Context) {
	var req service.MakeOfferRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.offerService.MakeOffer(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// PassOffer
// @Summary      Pass on appraisal
// @Tags         offers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true   "Appraisal ID"
// @Param        payload  body      service.PassOfferRequest  false  "Wholesaler"
// @Success      200      {object}  response.Response{data=service.OwnOfferResponse}
// @Router       /api/appraisals/{id}/pass [post]
func (h *OfferHandler) PassOffer(c *gin.Context) {
	var req service.PassOfferRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	res, err := h.offerService.PassOffer(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SelectWinner closes the appraisal on one bid
// @Summary      Select winner
// @Tags         offers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Appraisal ID"
// @Param        payload  body      service.SelectWinnerRequest  true  "Offer"
// @Success      200      {object}  response.Response{data=service.OfferResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/appraisals/{id}/winner [post]
func (h *OfferHandler) SelectWinner(c *gin.Context) {
	var req service.SelectWinnerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.offerService.SelectWinner(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AdjustAmount sets or clears the management-side adjusted amount
// @Summary      Adjust offer amount
// @Tags         offers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Offer ID"
// @Param        payload  body      service.AdjustOfferRequest  true  "Adjusted amount, null to clear"
// @Success      200      {object}  response.Response{data=service.OfferResponse}
// @Router       /api/offers/{id}/amount [put]
func (h *OfferHandler) AdjustAmount(c *gin.Context) {
	var req service.AdjustOfferRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.offerService.AdjustAmount(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
