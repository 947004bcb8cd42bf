package handler

import (
	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/websocket"

	"github.com/gin-gonic/gin"
)

// WSHandler upgrades authenticated requests onto the event hub.
type WSHandler struct {
	hub *websocket.Hub
}

func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/ws", auth, h.Serve)
}

// Serve
// @Summary      Subscribe to appraisal events
// @Description  Upgrades to a websocket; the token may be passed as the token query parameter
// @Tags         events
// @Security     BearerAuth
// @Param        token  query  string  false  "Access token"
// @Router       /ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	websocket.ServeWs(h.hub, c, middleware.CurrentActor(c).AccountID)
}
