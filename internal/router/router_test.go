package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"transfer-ledger/internal/config"
	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/services"
	"transfer-ledger/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	statuses   = config.StatusIDs{Pending: "pending", Completed: "completed", Rejected: "rejected"}
	categories = config.CategoryIDs{Transfer: "transfer", Deposit: "deposit"}
)

type testServer struct {
	router *mux.Router
	store  *store.MemoryStore
	users  *services.UserService
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	st := store.NewMemoryStore()

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector("test")
	require.NoError(t, collector.Register(registry))

	balances := services.NewBalanceService(st, logger, services.WithBalanceMetrics(collector))
	ts := &testServer{
		store: st,
		users: services.NewUserService(st, logger),
		auth:  services.NewAuthService("test-secret", logger),
	}
	ts.router = SetupRouter(Deps{
		Users:          ts.users,
		Auth:           ts.auth,
		Balances:       balances,
		Transfers:      services.NewTransferService(st, balances, statuses, categories, collector, logger),
		Deposits:       services.NewDepositService(st, balances, statuses, categories, logger),
		Gatherer:       registry,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, logger)
	return ts
}

// register creates a user through the API and returns it with its bearer token.
func (ts *testServer) register(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.User, resp.Token
}

func (ts *testServer) admin(t *testing.T) string {
	t.Helper()
	user, err := ts.store.CreateUser(context.Background(), &models.User{
		Username: "root",
		Email:    "root@example.com",
		Role:     string(models.RoleAdmin),
	})
	require.NoError(t, err)
	token, err := ts.auth.GenerateToken(user.ID, user.Email, user.Role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type transferResponse struct {
	Success    bool                  `json:"success"`
	TransferID string                `json:"transfer_id"`
	Error      *models.TransferError `json:"error"`
	Balance    *models.BalanceView   `json:"balance"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "alice")
	assert.NotEmpty(t, token)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.User](t, rec)
	assert.Equal(t, "alice", me.Username)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDepositAndTransfer(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.register(t, "alice")
	bob, bobToken := ts.register(t, "bob")
	adminToken := ts.admin(t)

	// deposits are admin only
	rec := ts.do(t, http.MethodPost, "/api/v1/transactions/deposit", aliceToken, map[string]interface{}{
		"user_id": alice.ID, "amount": 10000,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/transactions/deposit", adminToken, map[string]interface{}{
		"user_id": alice.ID, "display_amount": "€100.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/transfers", aliceToken, map[string]interface{}{
		"receiver_email": "bob@example.com",
		"display_amount": "25.00",
		"description":    "Dinner",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[transferResponse](t, rec)
	assert.True(t, created.Success)
	require.NotNil(t, created.Balance)
	assert.Equal(t, int64(7500), created.Balance.Balance)
	assert.Equal(t, "€75.00", created.Balance.Display)

	rec = ts.do(t, http.MethodGet, "/api/v1/balances/current", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2500), decode[models.BalanceView](t, rec).Balance)

	rec = ts.do(t, http.MethodGet, "/api/v1/transfers/"+created.TransferID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Transfer     models.Transfer      `json:"transfer"`
		Transactions []models.Transaction `json:"transactions"`
	}](t, rec)
	assert.Equal(t, statuses.Completed, detail.Transfer.StatusID)
	require.Len(t, detail.Transactions, 1)
	assert.Equal(t, bob.ID, detail.Transactions[0].UserID)

	_, carolToken := ts.register(t, "carol")
	rec = ts.do(t, http.MethodGet, "/api/v1/transfers/"+created.TransferID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/transactions/history?limit=10", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Transaction](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/v1/balances/verify", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"`+alice.ID+`","consistent":true}`, rec.Body.String())
}

func TestTransferErrorStatusCodes(t *testing.T) {
	ts := newTestServer(t)
	alice, aliceToken := ts.register(t, "alice")
	bob, _ := ts.register(t, "bob")

	rec := ts.do(t, http.MethodPost, "/api/v1/transactions/deposit", ts.admin(t), map[string]interface{}{
		"user_id": alice.ID, "amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []struct {
		name string
		body map[string]interface{}
		code int
		err  models.TransferErrorCode
	}{
		{"invalid amount", map[string]interface{}{"receiver_user_id": bob.ID, "amount": 0}, http.StatusBadRequest, models.ErrCodeInvalidAmount},
		{"self transfer", map[string]interface{}{"receiver_user_id": alice.ID, "amount": 100}, http.StatusBadRequest, models.ErrCodeSelfTransfer},
		{"insufficient funds", map[string]interface{}{"receiver_user_id": bob.ID, "amount": 5001}, http.StatusConflict, models.ErrCodeInsufficientFunds},
		{"unknown recipient", map[string]interface{}{"receiver_user_id": "nobody", "amount": 100}, http.StatusNotFound, models.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/transfers", aliceToken, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			resp := decode[transferResponse](t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.err, resp.Error.Code)
		})
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/transfers", aliceToken, map[string]interface{}{
		"receiver_email": "nobody@example.com", "amount": 100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/transfers", aliceToken, map[string]interface{}{
		"receiver_user_id": bob.ID, "display_amount": "1.005",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferRequiresJSON(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.register(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader("amount=1"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_store_circuit_state")
}
