package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adminapi "clinic-api/internal/api/admin"
	authapi "clinic-api/internal/api/auth"
	"clinic-api/internal/api/billing"
	"clinic-api/internal/api/health"
	stripewebhooks "clinic-api/internal/api/stripewebhook"
	usersapi "clinic-api/internal/api/users"
	"clinic-api/internal/apperr"
	"clinic-api/internal/domain/subscriptions"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/metrics"
	stripeinfra "clinic-api/internal/infra/stripe"
	"clinic-api/internal/infra/token"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*gin.Engine, *users.MemoryRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := users.NewMemoryRepository()
	issuer := token.NewIssuer("test-secret", time.Hour)
	gateway := stripeinfra.NullGateway{}
	m := metrics.New()
	log := zerolog.Nop()

	r := gin.New()
	RegisterRoutes(r, Dependencies{
		Users:   repo,
		Tokens:  issuer,
		Metrics: m,
		Auth:    authapi.NewHandler(repo, issuer, log),
		Profile: usersapi.NewHandler(repo),
		Admin:   adminapi.NewHandler(repo, log),
		Billing: billing.NewHandler(repo, gateway, "price_test", log),
		Webhook: stripewebhooks.NewHandler(gateway, subscriptions.NewSynchronizer(repo, gateway, log), nil, m, log),
		Health:  health.NewHandler("test", nil, gateway.Enabled()),
	})
	return r, repo
}

func call(t *testing.T, r http.Handler, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestAccountLifecycle(t *testing.T) {
	r, repo := newRouter(t)

	rec, env := call(t, r, http.MethodPost, "/api/users/register", "", gin.H{
		"name": "Ana", "email": "ana@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tok := env["data"].(map[string]any)["token"].(string)

	rec, env = call(t, r, http.MethodGet, "/api/users/profile", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env["status"])

	rec, _ = call(t, r, http.MethodPost, "/api/subscriptions/create", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	u, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, users.StatusInactive, u.SubscriptionStatus)
	assert.NotNil(t, u.SubscriptionID)
	assert.NotNil(t, u.CustomerID)

	rec, env = call(t, r, http.MethodGet, "/api/subscriptions/status", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive", env["data"].(map[string]any)["subscriptionStatus"])

	rec, _ = call(t, r, http.MethodPost, "/api/subscriptions/cancel", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, r, http.MethodGet, "/api/users", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicSurface(t *testing.T) {
	r, _ := newRouter(t)

	rec, env := call(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env["status"])

	rec, env = call(t, r, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "error", env["status"])
	assert.Equal(t, apperr.MsgNotAuthenticated, env["message"])

	rec, _ = call(t, r, http.MethodPost, "/api/subscriptions/webhook", "", gin.H{"id": "evt_1"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = call(t, r, http.MethodGet, "/api/users/auth/google", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = call(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_failures_total{reason="missing"} 1`)
}
