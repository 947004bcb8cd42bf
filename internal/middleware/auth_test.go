package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"appraisal-backend/internal/authz"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubTokens map[string]uuid.UUID

func (s stubTokens) Parse(token string) (uuid.UUID, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

type stubResolver map[uuid.UUID]authz.Actor

func (s stubResolver) ResolveActor(_ context.Context, accountID uuid.UUID) (authz.Actor, error) {
	return s[accountID], nil
}

func newTestRouter(tokens TokenParser, resolver ActorResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", Authenticate(tokens, resolver), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentActor(c).Kind.String())
	})
	return router
}

func TestAuthenticate(t *testing.T) {
	manager := uuid.New()
	orphan := uuid.New()
	tokens := stubTokens{"manager-token": manager, "orphan-token": orphan}
	resolver := stubResolver{manager: {AccountID: manager, Kind: authz.KindManagement, ProfileID: uuid.New()}}
	router := newTestRouter(tokens, resolver)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantBody string
	}{
		{"missing token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer manager-token") }, http.StatusOK, "management"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: accessTokenName, Value: "manager-token"})
		}, http.StatusOK, "management"},
		{"query parameter", func(r *http.Request) { r.URL.RawQuery = "token=manager-token" }, http.StatusOK, "management"},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "manager-token") }, http.StatusUnauthorized, ""},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") }, http.StatusUnauthorized, ""},
		{"account without profile", func(r *http.Request) { r.Header.Set("Authorization", "Bearer orphan-token") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestCurrentActorDefaultsToAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.False(t, CurrentActor(c).IsAuthenticated())
}

func TestTokenCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	SetTokenCookie(c, "abc", time.Now().Add(time.Hour))

	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, accessTokenName, cookies[0].Name)
		assert.Equal(t, "abc", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Greater(t, cookies[0].MaxAge, 3500)
	}

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	ClearTokenCookie(c)
	cookies = rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.Equal(t, -1, cookies[0].MaxAge)
	}
}
