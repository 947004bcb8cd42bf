package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	actorKey        = "actor"
	accessTokenName = "access_token"
)

// TokenParser returns the account id a signed token was issued for.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// ActorResolver maps an account onto the profile it acts through.
type ActorResolver interface {
	ResolveActor(ctx context.Context, accountID uuid.UUID) (authz.Actor, error)
}

func cookieSecurity() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure
	if gin.Mode() == gin.ReleaseMode {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookie stores the access token as an HttpOnly cookie that expires with the token.
func SetTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	sameSite, secure := cookieSecurity()
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = -1
	}
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenName, token, maxAge, "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie.
func ClearTokenCookie(c *gin.Context) {
	sameSite, secure := cookieSecurity()
	c.SetSameSite(sameSite)
	c.SetCookie(accessTokenName, "", -1, "/", "", secure, true)
}

// tokenFrom tries the cookie first, then the Authorization header, then the token query
// parameter browsers use for websocket upgrades.
func tokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenName); err == nil && token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// Authenticate validates the token and resolves the actor behind it. Tokens whose account
// no longer maps onto exactly one active profile are rejected like invalid tokens.
func Authenticate(tokens TokenParser, resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFrom(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		accountID, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		actor, err := resolver.ResolveActor(c.Request.Context(), accountID)
		if err != nil {
			slog.Error("Fail to resolve actor", slog.String("account", accountID.String()), slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
			return
		}
		if !actor.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Account has no active profile"))
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// CurrentActor returns the actor Authenticate stored, or authz.Anonymous.
func CurrentActor(c *gin.Context) authz.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(authz.Actor); ok {
			return actor
		}
	}
	return authz.Anonymous
}
