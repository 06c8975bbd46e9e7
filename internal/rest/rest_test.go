package rest

import (
	"blockRewards/business/user"
	"blockRewards/domain"
	"blockRewards/internal/middleware"
	"blockRewards/pkg/utils"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var testSecret = []byte("test-secret")

type stubUsers struct {
	profiles map[string]domain.UserProfile
	password string
	signups  []user.SignupRequest
}

func (s *stubUsers) Signup(_ context.Context, req user.SignupRequest) (domain.SignupConfirmation, error) {
	if _, ok := s.profiles[req.Email]; ok {
		return domain.SignupConfirmation{}, domain.ErrDuplicateEmail
	}
	s.signups = append(s.signups, req)
	return domain.SignupConfirmation{UserID: "u-new", Message: user.SignupSuccessMessage}, nil
}

func (s *stubUsers) Login(_ context.Context, email, password string) (domain.UserProfile, error) {
	p, ok := s.profiles[email]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	if password != s.password {
		return domain.UserProfile{}, domain.ErrInvalidPassword
	}
	return p, nil
}

func (s *stubUsers) GetProfile(_ context.Context, email string) (domain.UserProfile, error) {
	p, ok := s.profiles[email]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubUsers) UpdateWalletAddress(_ context.Context, email, address string) (domain.UserProfile, error) {
	p := s.profiles[email]
	p.WalletAddress = address
	return p, nil
}

func (s *stubUsers) GetMirroredProfile(_ context.Context, email string) (domain.MirrorProfile, error) {
	p, ok := s.profiles[email]
	if !ok || p.ExternalRef == "" {
		return domain.MirrorProfile{}, domain.ErrNotFound
	}
	if p.ExternalRef == "QmDown" {
		return domain.MirrorProfile{}, domain.ErrExternalServiceUnavailable
	}
	return domain.MirrorProfile{ID: p.ID, Email: p.Email}, nil
}

type stubLedger struct {
	redeemErr error
	credited  map[string]int64
	category  domain.TransactionCategory
}

func (s *stubLedger) Mode() string { return domain.ModeDemo }

func (s *stubLedger) Register(_ context.Context, email string) (domain.RegisterResult, error) {
	return domain.RegisterResult{BonusPoints: 50}, nil
}

func (s *stubLedger) Redeem(_ context.Context, email string, rewardID int64) (domain.Transaction, error) {
	if s.redeemErr != nil {
		return domain.Transaction{}, s.redeemErr
	}
	return domain.Transaction{Description: fmt.Sprintf("Redeemed %d", rewardID), PointsDelta: -100}, nil
}

func (s *stubLedger) AddReward(_ context.Context, name, description string, cost, stock int64) (domain.Reward, error) {
	return domain.Reward{ID: 1, Name: name, Cost: cost, Stock: stock, IsActive: true}, nil
}

func (s *stubLedger) CreditPoints(_ context.Context, email string, amount int64, _ string) (domain.Transaction, error) {
	s.credited[email] += amount
	return domain.Transaction{PointsDelta: amount}, nil
}

func (s *stubLedger) DebitPoints(_ context.Context, email string, amount int64, _ string) (domain.Transaction, error) {
	return domain.Transaction{}, domain.ErrInsufficientPoints
}

func (s *stubLedger) ApplyReferral(context.Context, string, string) ([]domain.Transaction, error) {
	return nil, domain.ErrAlreadyReferred
}

func (s *stubLedger) Rewards(context.Context) ([]domain.Reward, error) {
	return []domain.Reward{{ID: 1, Name: "Coffee", Cost: 100, Stock: 1, IsActive: true}}, nil
}

func (s *stubLedger) Transactions(_ context.Context, _ string, category domain.TransactionCategory) ([]domain.Transaction, error) {
	s.category = category
	return []domain.Transaction{}, nil
}

func (s *stubLedger) Balance(context.Context, string) (domain.BalanceView, error) {
	return domain.BalanceView{Points: 2450, Tier: domain.TierFor(2450)}, nil
}

func (s *stubLedger) Audit(_ context.Context, email string) (domain.AuditReport, error) {
	return domain.AuditReport{UserID: email}, nil
}

func newTestServer(users *stubUsers, ledgerSvc *stubLedger) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler

	uh := NewUserHandler(users, TokenConfig{Secret: testSecret, TTL: time.Hour, AdminEmails: []string{"admin@x.com"}}, time.Second)
	lh := NewLedgerHandler(ledgerSvc, time.Second)
	auth := middleware.AuthMiddleware(testSecret)
	admin := middleware.AdminOnly()

	api := e.Group("/api/v1")
	api.POST("/users/signup", uh.Signup)
	api.POST("/users/login", uh.Login)
	api.GET("/users/me", uh.Me, auth)
	api.GET("/users/me/mirror", uh.Mirror, auth)
	api.POST("/ledger/register", lh.Register, auth)
	api.POST("/ledger/redeem/:id", lh.Redeem, auth)
	api.GET("/ledger/transactions", lh.GetTransactions, auth)
	api.GET("/ledger/balance", lh.GetBalance, auth)
	api.POST("/ledger/referral", lh.ApplyReferral, auth)
	api.POST("/ledger/points/credit", lh.CreditPoints, auth, admin)
	api.POST("/ledger/points/debit", lh.DebitPoints, auth, admin)
	return e
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, email, role string) string {
	t.Helper()
	token, err := utils.GenerateJWT(testSecret, "id-"+email, email, role, time.Hour)
	require.NoError(t, err)
	return token
}

func fixtures() (*stubUsers, *stubLedger) {
	return &stubUsers{
			password: "secret1",
			profiles: map[string]domain.UserProfile{
				"a@x.com":     {ID: "1", Email: "a@x.com", ExternalRef: "QmA"},
				"admin@x.com": {ID: "2", Email: "admin@x.com"},
				"down@x.com":  {ID: "3", Email: "down@x.com", ExternalRef: "QmDown"},
			},
		}, &stubLedger{
			credited: map[string]int64{},
		}
}

func TestSignup(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodPost, "/api/v1/users/signup", `{"email":"new@x.com","password":"secret1","first_name":"Ana"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, users.signups, 1)
	assert.False(t, users.signups[0].RequireConfirmation)

	rec = do(e, http.MethodPost, "/api/v1/users/signup", `{"email":"a@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.ErrDuplicateEmail.Error(), gjson.Get(rec.Body.String(), "message").String())
}

func TestLoginIssuesToken(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodPost, "/api/v1/users/login", `{"email":"admin@x.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token := gjson.Get(rec.Body.String(), "token").String()
	claims, err := utils.ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@x.com", claims.Email)
	assert.Equal(t, middleware.RoleAdmin, claims.Role)

	rec = do(e, http.MethodPost, "/api/v1/users/login", `{"email":"a@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/v1/users/login", `{"email":"ghost@x.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/users/me", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/users/me", "", tokenFor(t, "a@x.com", "USER"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLedgerErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: have 1, need 100", domain.ErrInsufficientPoints), http.StatusUnprocessableEntity},
		{domain.ErrOutOfStock, http.StatusConflict},
		{domain.ErrNotRegistered, http.StatusForbidden},
		{domain.ErrRewardInactive, http.StatusNotFound},
		{domain.ErrChainTxFailed, http.StatusBadGateway},
		{domain.ErrChainTxAbandoned, http.StatusGatewayTimeout},
		{domain.ErrChainTxUnconfirmed, http.StatusAccepted},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)
	token := tokenFor(t, "a@x.com", "USER")

	for _, tc := range cases {
		ledgerSvc.redeemErr = tc.err
		rec := do(e, http.MethodPost, "/api/v1/ledger/redeem/1", "", token)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}

	rec := do(e, http.MethodPost, "/api/v1/ledger/redeem/abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	body := `{"email":"a@x.com","amount":100.9,"description":"Purchase"}`
	rec := do(e, http.MethodPost, "/api/v1/ledger/points/credit", body, tokenFor(t, "a@x.com", "USER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := tokenFor(t, "admin@x.com", middleware.RoleAdmin)
	rec = do(e, http.MethodPost, "/api/v1/ledger/points/credit", body, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(100), ledgerSvc.credited["a@x.com"])

	rec = do(e, http.MethodPost, "/api/v1/ledger/points/debit", body, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransactionsPassesCategory(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodGet, "/api/v1/ledger/transactions?category=spent", "", tokenFor(t, "a@x.com", "USER"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CategorySpent, ledgerSvc.category)

	rec = do(e, http.MethodPost, "/api/v1/ledger/referral", `{"referral_code":"abc"}`, tokenFor(t, "a@x.com", "USER"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodGet, "/api/v1/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(rec.Body.String(), "error.code").String())
}

func TestMirrorEndpoint(t *testing.T) {
	users, ledgerSvc := fixtures()
	e := newTestServer(users, ledgerSvc)

	rec := do(e, http.MethodGet, "/api/v1/users/me/mirror", "", tokenFor(t, "a@x.com", "USER"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/users/me/mirror", "", tokenFor(t, "admin@x.com", middleware.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/users/me/mirror", "", tokenFor(t, "down@x.com", "USER"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
