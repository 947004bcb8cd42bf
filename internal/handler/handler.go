package handler

import (
	"net/http"

	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a handler's routes. auth guards every route that needs an actor.
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc)
}

// bindJSON writes a 400 and returns false when the body does not decode into req.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}
