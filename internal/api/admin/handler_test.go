package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/token"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router     *gin.Engine
	repo       *users.MemoryRepository
	admin      *users.User
	user       *users.User
	adminToken string
	userToken  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := users.NewMemoryRepository()
	issuer := token.NewIssuer("test-secret", time.Hour)
	hash := "hash"

	admin := users.New("root@example.com", "Root", &hash)
	admin.Role = users.RoleAdmin
	require.NoError(t, repo.Create(ctx, admin))
	user := users.New("ana@example.com", "Ana", &hash)
	require.NoError(t, repo.Create(ctx, user))

	issue := func(u *users.User) string {
		tok, err := issuer.Issue(token.Claims{UserID: u.ID, Role: string(u.Role)})
		require.NoError(t, err)
		return tok
	}

	h := NewHandler(repo, zerolog.Nop())
	r := gin.New()
	protect := middleware.Protect(issuer, repo, nil)
	r.GET("/me", protect, func(c *gin.Context) { c.Status(http.StatusOK) })
	g := r.Group("/users", protect, middleware.RestrictTo(users.RoleAdmin))
	g.GET("", h.ListUsers)
	g.GET("/:id", h.GetUser)
	g.PATCH("/:id/active", h.SetActive)

	return &fixture{
		router: r, repo: repo, admin: admin, user: user,
		adminToken: issue(admin), userToken: issue(user),
	}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/users", f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data listResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data.Users, 2)
	assert.Equal(t, 2, env.Data.Stats.TotalUsers)
	assert.Equal(t, 2, env.Data.Stats.ActiveAccounts)
	assert.Equal(t, 2, env.Data.Stats.UsersPerStatus[users.StatusTrial])
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestAdminRoutes_ForbiddenForUsers(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/users", f.userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/users/"+f.admin.ID, f.userToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/users", "", nil).Code)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/users/"+f.user.ID, f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data AdminUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "ana@example.com", env.Data.Email)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/users/missing", f.adminToken, nil).Code)
}

func TestSetActive_DeactivationLocksOutNextRequest(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/me", f.userToken, nil).Code)

	rec := f.do(t, http.MethodPatch, "/users/"+f.user.ID+"/active", f.adminToken, gin.H{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.repo.FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/me", f.userToken, nil).Code)

	rec = f.do(t, http.MethodPatch, "/users/"+f.user.ID+"/active", f.adminToken, gin.H{"active": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/me", f.userToken, nil).Code)
}

func TestSetActive_Rejections(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/users/"+f.user.ID+"/active", f.adminToken, gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/users/"+f.admin.ID+"/active", f.adminToken, gin.H{"active": false}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, "/users/missing/active", f.adminToken, gin.H{"active": false}).Code)
}
