package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NetworkHandler struct {
	networkService service.NetworkService
}

func NewNetworkHandler(networkService service.NetworkService) *NetworkHandler {
	return &NetworkHandler{networkService: networkService}
}

func (h *NetworkHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	group := router.Group("/api/friend-requests", auth)
	{
		group.GET("", h.ListFriendRequests)
		group.POST("", h.SendFriendRequest)
		group.PUT("/:id", h.RespondToFriendRequest)
	}
	router.GET("/api/friends", auth, h.ListFriends)
}

// ListFriendRequests
// @Summary      List friend requests
// @Tags         network
// @Produce      json
// @Security     BearerAuth
// @Param        box  query     string  false  "sent or received (default received)"
// @Success      200  {object}  response.Response{data=[]service.FriendRequestResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/friend-requests [get]
func (h *NetworkHandler) ListFriendRequests(c *gin.Context) {
	res, err := h.networkService.ListFriendRequests(c.Request.Context(), middleware.CurrentActor(c), c.DefaultQuery("box", service.BoxReceived))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SendFriendRequest asks a dealership or another wholesaler for access
// @Summary      Send friend request
// @Description  Exactly one of dealership_id and wholesaler_id must be set
// @Tags         network
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SendFriendRequestRequest  true  "Recipient"
// @Success      201      {object}  response.Response{data=service.FriendRequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/friend-requests [post]
func (h *NetworkHandler) SendFriendRequest(c *gin.Context) {
	var req service.SendFriendRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.networkService.SendFriendRequest(c.Request.Context(), middleware.CurrentActor(c), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// RespondToFriendRequest accepts or rejects a pending request
// @Summary      Respond to friend request
// @Tags         network
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                               true  "Friend request ID"
// @Param        payload  body      service.RespondFriendRequestRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=service.FriendRequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/friend-requests/{id} [put]
func (h *NetworkHandler) RespondToFriendRequest(c *gin.Context) {
	var req service.RespondFriendRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.networkService.RespondToFriendRequest(c.Request.Context(), middleware.CurrentActor(c), c.Param("id"), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListFriends
// @Summary      List wholesaler friends
// @Tags         network
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.WholesalerResponse}
// @Router       /api/friends [get]
func (h *NetworkHandler) ListFriends(c *gin.Context) {
	res, err := h.networkService.ListFriends(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
