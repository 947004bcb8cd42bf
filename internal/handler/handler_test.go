package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"appraisal-backend/internal/config"
	"appraisal-backend/internal/database"
	"appraisal-backend/internal/handler"
	"appraisal-backend/internal/lifecycle"
	"appraisal-backend/internal/middleware"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Meta       *response.Meta  `json:"meta"`
	Error      string          `json:"error"`
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	services *service.Services
	seq      int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	tokens := service.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}
	services := service.New(db, tokens, service.DiscardEvents)
	router := handler.NewRouter([]string{"http://localhost:5173"}, middleware.Authenticate(tokens, services.Accounts),
		handler.NewAccountHandler(services.Accounts),
		handler.NewDealerHandler(services.Dealers),
		handler.NewWholesalerHandler(services.Wholesalers),
		handler.NewAppraisalHandler(services.Appraisals),
		handler.NewOfferHandler(services.Offers),
		handler.NewNetworkHandler(services.Network),
		handler.NewReportHandler(services.Reports),
		handler.NewAuditHandler(services.Audits),
	)
	return &testServer{t: t, router: router, services: services}
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/auth/login", "", service.LoginRequest{Username: username, Password: "password123"})
	require.Equal(s.t, http.StatusOK, rec.Code, env.Error)
	var token service.TokenResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &token))
	return token.Token
}

func (s *testServer) account(prefix string) service.RegisterAccountRequest {
	s.seq++
	username := fmt.Sprintf("%s%d", prefix, s.seq)
	return service.RegisterAccountRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	}
}

// dealership registers a manager, creates a dealership over HTTP and returns both.
func (s *testServer) dealership(name string) (string, string) {
	s.t.Helper()
	req := s.account("manager")
	rec, env := s.do(http.MethodPost, "/api/auth/register/dealer", "", req)
	require.Equal(s.t, http.StatusCreated, rec.Code, env.Error)
	token := s.login(req.Username)

	rec, env = s.do(http.MethodPost, "/api/dealerships", token, service.CreateDealershipRequest{Name: name, State: "NSW"})
	require.Equal(s.t, http.StatusCreated, rec.Code, env.Error)
	var dealership service.DealershipResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &dealership))
	return dealership.ID.String(), token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSetsCookieAndResolvesMe(t *testing.T) {
	s := newTestServer(t)
	req := s.account("manager")
	rec, _ := s.do(http.MethodPost, "/api/auth/register/dealer", "", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := s.do(http.MethodPost, "/api/auth/login", "", service.LoginRequest{Username: req.Username, Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, decode[service.TokenResponse](t, env).Token, cookie.Value)

	meReq := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	meReq.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	s.router.ServeHTTP(meRec, meReq)
	require.Equal(t, http.StatusOK, meRec.Code)
	var meEnv envelope
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &meEnv))
	me := decode[service.MeResponse](t, meEnv)
	assert.Equal(t, req.Username, me.Username)
	assert.Equal(t, "management", me.Kind)
	assert.Empty(t, me.DealershipIDs)

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", service.LoginRequest{Username: req.Username, Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", env.Status)

	rec, _ = s.do(http.MethodPost, "/api/auth/register/dealer", "", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/me", "/api/appraisals", "/api/reports", "/api/audit-logs", "/api/friends"} {
		rec, _ := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		rec, _ = s.do(http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAppraisalRoutesMapErrorKinds(t *testing.T) {
	s := newTestServer(t)
	dealershipID, managerToken := s.dealership("Harbour Motors")

	staff := s.account("sales")
	rec, env := s.do(http.MethodPost, "/api/dealers", managerToken, service.CreateStaffRequest{
		RegisterAccountRequest: staff,
		DealershipID:           dealershipID,
		Role:                   model.DealerRoleSales,
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	salesToken := s.login(staff.Username)

	wholesaler := s.account("wholesaler")
	rec, env = s.do(http.MethodPost, "/api/auth/register/wholesaler", "", service.RegisterWholesalerRequest{
		RegisterAccountRequest: wholesaler,
		WholesalerName:         "Trade Cars",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	wholesalerToken := s.login(wholesaler.Username)

	rec, env = s.do(http.MethodPost, "/api/appraisals", salesToken, map[string]any{
		"vehicle_make":         "Toyota",
		"vehicle_model":        "Corolla",
		"vehicle_year":         2018,
		"vehicle_registration": "abc123",
		"reserve_price":        "5000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	appraisal := decode[service.AppraisalResponse](t, env)
	path := "/api/appraisals/" + appraisal.ID.String()

	t.Run("list is paginated", func(t *testing.T) {
		rec, env := s.do(http.MethodGet, "/api/appraisals?keyword=COROLLA&limit=5", managerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(1), env.Meta.Total)
		assert.Equal(t, 5, env.Meta.Limit)
		assert.Len(t, decode[[]service.AppraisalResponse](t, env), 1)
	})

	t.Run("wholesaler list is filtered not rejected", func(t *testing.T) {
		rec, env := s.do(http.MethodGet, "/api/appraisals", wholesalerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]service.AppraisalResponse](t, env))
	})

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		body     any
		wantCode int
	}{
		{"invisible to wholesaler", http.MethodGet, path, wholesalerToken, nil, http.StatusNotFound},
		{"unknown id", http.MethodGet, "/api/appraisals/" + uuid.NewString(), managerToken, nil, http.StatusNotFound},
		{"sales cannot update", http.MethodPut, path, salesToken, map[string]any{"color": "red"}, http.StatusForbidden},
		{"malformed body", http.MethodPut, path, managerToken, "{", http.StatusBadRequest},
		{"winner needs an offer id", http.MethodPost, path + "/winner", managerToken, map[string]any{"offer_id": "nope"}, http.StatusBadRequest},
		{"sales cannot read reports", http.MethodGet, "/api/reports", salesToken, nil, http.StatusForbidden},
		{"bad friend request box", http.MethodGet, "/api/friend-requests?box=outbox", managerToken, nil, http.StatusBadRequest},
		{"manager updates", http.MethodPut, path, managerToken, map[string]any{"color": "red"}, http.StatusOK},
		{"submit", http.MethodPost, path + "/submit", salesToken, nil, http.StatusOK},
		{"deactivate", http.MethodDelete, path, managerToken, nil, http.StatusOK},
		{"update after trash", http.MethodPut, path, managerToken, map[string]any{"color": "blue"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, env.Error)
			assert.Equal(t, tt.wantCode, env.StatusCode)
		})
	}
}

func TestOfferFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	dealershipID, managerToken := s.dealership("Harbour Motors")

	wholesaler := s.account("wholesaler")
	rec, env := s.do(http.MethodPost, "/api/auth/register/wholesaler", "", service.RegisterWholesalerRequest{
		RegisterAccountRequest: wholesaler,
		WholesalerName:         "Trade Cars",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	profileID := decode[service.MeResponse](t, env).ProfileID.String()
	wholesalerToken := s.login(wholesaler.Username)

	rec, env = s.do(http.MethodPost, "/api/friend-requests", wholesalerToken, service.SendFriendRequestRequest{DealershipID: dealershipID})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	request := decode[service.FriendRequestResponse](t, env)
	rec, env = s.do(http.MethodPut, "/api/friend-requests/"+request.ID.String(), managerToken, service.RespondFriendRequestRequest{Decision: service.DecisionAccept})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, env = s.do(http.MethodPost, "/api/appraisals", managerToken, map[string]any{
		"vehicle_make":  "Mazda",
		"vehicle_model": "CX-5",
		"reserve_price": "20000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Error)
	appraisalPath := "/api/appraisals/" + decode[service.AppraisalResponse](t, env).ID.String()

	rec, env = s.do(http.MethodPost, appraisalPath+"/invites", managerToken, service.InviteRequest{WholesalerIDs: []string{profileID, uuid.NewString()}})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	invites := decode[service.InviteResult](t, env)
	assert.Len(t, invites.Invited, 1)
	assert.Len(t, invites.Rejected, 1)

	rec, env = s.do(http.MethodPost, appraisalPath+"/offer", wholesalerToken, map[string]any{"amount": "21500"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	own := decode[service.OwnOfferResponse](t, env)

	rec, _ = s.do(http.MethodGet, appraisalPath+"/offers", wholesalerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(http.MethodPut, "/api/offers/"+own.ID.String()+"/amount", managerToken, map[string]any{"adjusted_amount": "21000"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	adjusted := decode[service.OfferResponse](t, env)
	assert.True(t, adjusted.EffectiveAmount.Decimal.Equal(decimal.NewFromInt(21000)))

	rec, env = s.do(http.MethodPost, appraisalPath+"/winner", managerToken, service.SelectWinnerRequest{OfferID: own.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	rec, _ = s.do(http.MethodPost, appraisalPath+"/pass", wholesalerToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = s.do(http.MethodGet, appraisalPath, wholesalerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[service.AppraisalResponse](t, env)
	assert.Equal(t, lifecycle.StatusComplete, view.Status)
	assert.Nil(t, view.ReservePrice)

	rec, env = s.do(http.MethodGet, "/api/reports", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	report := decode[model.ReportResponse](t, env)
	assert.Equal(t, int64(1), report.CompleteCount)
	assert.True(t, report.ProfitLoss.Equal(decimal.NewFromInt(1000)), report.ProfitLoss.String())

	rec, env = s.do(http.MethodGet, "/api/audit-logs?limit=2", managerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	require.NotNil(t, env.Meta)
	assert.GreaterOrEqual(t, env.Meta.Total, int64(4))
	assert.Len(t, decode[[]service.AuditLogResponse](t, env), 2)
}
