package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/token"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ExchangerMock struct {
	mock.Mock
}

func (m *ExchangerMock) AuthCodeURL(state string) string {
	return "https://accounts.example.test/auth?state=" + url.QueryEscape(state)
}

func (m *ExchangerMock) Exchange(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) VerifyIDToken(ctx context.Context, raw string) (*IDClaims, error) {
	args := m.Called(ctx, raw)
	claims, _ := args.Get(0).(*IDClaims)
	return claims, args.Error(1)
}

func newGoogle(t *testing.T, frontend string) (*gin.Engine, *GoogleHandler, *ExchangerMock, *VerifierMock, *users.MemoryRepository) {
	t.Helper()
	repo := users.NewMemoryRepository()
	h := NewGoogleHandler(GoogleConfig{ClientID: "cid", FrontendRedirect: frontend}, repo,
		token.NewIssuer("test-secret", time.Hour), zerolog.Nop())

	ex, ver := new(ExchangerMock), new(VerifierMock)
	h.oauth, h.verifier = ex, ver

	r := gin.New()
	r.GET("/auth/google", h.Start)
	r.GET("/auth/google/callback", h.Callback)
	return r, h, ex, ver, repo
}

func callback(r http.Handler, query, cookieState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGoogleStart_SetsStateCookie(t *testing.T) {
	r, _, _, _, _ := newGoogle(t, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestGoogleCallback_RejectsBadState(t *testing.T) {
	r, _, ex, _, _ := newGoogle(t, "")

	assert.Equal(t, http.StatusBadRequest, callback(r, "code=abc", "s1").Code)
	assert.Equal(t, http.StatusBadRequest, callback(r, "code=abc&state=s1", "").Code)
	assert.Equal(t, http.StatusBadRequest, callback(r, "code=abc&state=s1", "s2").Code)
	ex.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestGoogleCallback_CreatesUser(t *testing.T) {
	r, _, ex, ver, repo := newGoogle(t, "")
	ex.On("Exchange", mock.Anything, "abc").Return("raw-id-token", nil).Once()
	ver.On("VerifyIDToken", mock.Anything, "raw-id-token").
		Return(&IDClaims{Sub: "g-1", Email: "luz@example.com", EmailVerified: true, Name: "Luz"}, nil).Once()

	rec := callback(r, "code=abc&state=s1", "s1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.Token)
	assert.Equal(t, "Luz", env.Data.User.Name)

	u, err := repo.FindByEmail(context.Background(), "luz@example.com")
	require.NoError(t, err)
	assert.False(t, u.HasPassword())
	ex.AssertExpectations(t)
	ver.AssertExpectations(t)
}

func TestGoogleCallback_LinksExistingUserAndRedirects(t *testing.T) {
	r, _, ex, ver, repo := newGoogle(t, "https://app.example.test/login")
	hash := "hash"
	existing := users.New("luz@example.com", "Luz", &hash)
	require.NoError(t, repo.Create(context.Background(), existing))

	ex.On("Exchange", mock.Anything, "abc").Return("raw", nil)
	ver.On("VerifyIDToken", mock.Anything, "raw").
		Return(&IDClaims{Sub: "g-1", Email: "luz@example.com", EmailVerified: true}, nil)

	rec := callback(r, "code=abc&state=s1", "s1")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.test", loc.Host)
	assert.NotEmpty(t, loc.Query().Get("token"))

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGoogleCallback_Failures(t *testing.T) {
	t.Run("exchange fails", func(t *testing.T) {
		r, _, ex, _, _ := newGoogle(t, "")
		ex.On("Exchange", mock.Anything, "abc").Return("", errors.New("boom"))
		assert.Equal(t, http.StatusUnauthorized, callback(r, "code=abc&state=s1", "s1").Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		r, _, ex, ver, _ := newGoogle(t, "")
		ex.On("Exchange", mock.Anything, "abc").Return("raw", nil)
		ver.On("VerifyIDToken", mock.Anything, "raw").
			Return(&IDClaims{Sub: "g-1", Email: "luz@example.com", EmailVerified: false}, nil)
		assert.Equal(t, http.StatusUnauthorized, callback(r, "code=abc&state=s1", "s1").Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		r, _, ex, ver, repo := newGoogle(t, "")
		u := users.New("luz@example.com", "Luz", nil)
		require.NoError(t, repo.Create(context.Background(), u))
		require.NoError(t, repo.SetActive(context.Background(), u.ID, false))

		ex.On("Exchange", mock.Anything, "abc").Return("raw", nil)
		ver.On("VerifyIDToken", mock.Anything, "raw").
			Return(&IDClaims{Sub: "g-1", Email: "luz@example.com", EmailVerified: true}, nil)
		assert.Equal(t, http.StatusUnauthorized, callback(r, "code=abc&state=s1", "s1").Code)
	})
}
