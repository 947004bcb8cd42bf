package handler

import (
	"net/http"

	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/apperror"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	group := router.Group("/api/auth")
	{
		group.POST("/register/dealer", h.RegisterDealer)
		group.POST("/register/wholesaler", h.RegisterWholesaler)
		group.POST("/login", h.Login)
		group.POST("/logout", h.Logout)
	}
	router.GET("/api/me", auth, h.GetMe)
}

// RegisterDealer creates an account with a management profile
// @Summary      Register dealer
// @Description  Creates an account acting as a management dealer with no dealership yet
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterAccountRequest  true  "Account"
// @Success      201      {object}  response.Response{data=service.MeResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register/dealer [post]
func (h *AccountHandler) RegisterDealer(c *gin.Context) {
	var req service.RegisterAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	me, err := h.accountService.RegisterDealer(c.Request.Context(), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, me))
}

// RegisterWholesaler creates an account with a wholesaler profile
// @Summary      Register wholesaler
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterWholesalerRequest  true  "Account and wholesaler profile"
// @Success      201      {object}  response.Response{data=service.MeResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register/wholesaler [post]
func (h *AccountHandler) RegisterWholesaler(c *gin.Context) {
	var req service.RegisterWholesalerRequest
	if !bindJSON(c, &req) {
		return
	}
	me, err := h.accountService.RegisterWholesaler(c.Request.Context(), req)
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, me))
}

// Login handles POST /api/auth/login to authenticate and return a JWT token
// @Summary      Login
// @Description  Authenticates by username and password; the token is also set as an HttpOnly cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AccountHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.accountService.Login(c.Request.Context(), req)
	if err != nil {
		if apperror.HTTPStatus(err) == http.StatusInternalServerError {
			response.Abort(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid username or password"))
		return
	}

	middleware.SetTokenCookie(c, token.Token, token.ExpiresAt)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, token))
}

// Logout clears the token cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *AccountHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetMe returns the actor behind the current token
// @Summary      Get current actor
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *AccountHandler) GetMe(c *gin.Context) {
	me, err := h.accountService.Me(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		response.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}
