package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/domain/users"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer     = "https://accounts.google.com"
	stateCookie      = "oauth_state"
	stateCookieTTL   = 300
	msgGoogleFailure = "No se pudo iniciar sesión con Google."
)

type GoogleConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	FrontendRedirect string // optional; token is returned as JSON when empty
	SecureCookie     bool
}

// IDClaims are the fields read from a verified Google ID token.
type IDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

// IDTokenVerifier checks a raw ID token and returns its claims.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*IDClaims, error)
}

// CodeExchanger trades an authorization code for the raw ID token.
type CodeExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type GoogleHandler struct {
	cfg      GoogleConfig
	oauth    CodeExchanger
	verifier IDTokenVerifier
	users    users.Repository
	tokens   TokenIssuer
	log      zerolog.Logger
}

func NewGoogleHandler(cfg GoogleConfig, repo users.Repository, tokens TokenIssuer, log zerolog.Logger) *GoogleHandler {
	return &GoogleHandler{
		cfg:      cfg,
		oauth:    newOAuthClient(cfg),
		verifier: &oidcVerifier{clientID: cfg.ClientID},
		users:    repo,
		tokens:   tokens,
		log:      log.With().Str("component", "google_auth").Logger(),
	}
}

// GET /api/users/auth/google
func (h *GoogleHandler) Start(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		response.Fail(c, apperr.Internal(msgGoogleFailure, err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieTTL, "/", "", h.cfg.SecureCookie, true)
	c.Redirect(http.StatusFound, h.oauth.AuthCodeURL(state))
}

// GET /api/users/auth/google/callback
func (h *GoogleHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		response.Fail(c, apperr.Validation("Faltan los parámetros code o state."))
		return
	}

	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		response.Fail(c, apperr.Validation("El parámetro state no es válido."))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", h.cfg.SecureCookie, true)

	ctx := c.Request.Context()
	rawIDToken, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		response.Fail(c, &apperr.Error{Kind: apperr.KindAuthentication, Message: msgGoogleFailure, Err: err})
		return
	}

	claims, err := h.verifier.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		response.Fail(c, &apperr.Error{Kind: apperr.KindAuthentication, Message: msgGoogleFailure, Err: err})
		return
	}
	if claims.Email == "" || !claims.EmailVerified {
		response.Fail(c, apperr.Unauthenticated("La cuenta de Google no tiene un correo verificado."))
		return
	}

	u, err := h.findOrCreate(ctx, claims)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	if !u.IsActive {
		response.Fail(c, apperr.Unauthenticated(msgAccountDisabled))
		return
	}

	tok, err := issueFor(h.tokens, u)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	if h.cfg.FrontendRedirect == "" {
		response.OK(c, sessionResponse{Token: tok, User: u})
		return
	}
	c.Redirect(http.StatusFound, h.cfg.FrontendRedirect+"?token="+url.QueryEscape(tok))
}

// findOrCreate links by email. Accounts created here have no password.
func (h *GoogleHandler) findOrCreate(ctx context.Context, gc *IDClaims) (*users.User, error) {
	u, err := h.users.FindByEmail(ctx, gc.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	u = users.New(gc.Email, firstNonEmpty(gc.Name, gc.GivenName, gc.Email), nil)
	if err := h.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent sign-in for the same address
		if errors.Is(err, users.ErrEmailTaken) {
			return h.users.FindByEmail(ctx, gc.Email)
		}
		return nil, err
	}
	h.log.Info().Str("user_id", u.ID).Msg("user created from google sign-in")
	return u, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

type oauthClient struct {
	cfg *oauth2.Config
}

func newOAuthClient(cfg GoogleConfig) *oauthClient {
	return &oauthClient{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

func (o *oauthClient) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (o *oauthClient) Exchange(ctx context.Context, code string) (string, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google: exchange code: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("google: response carried no id_token")
	}
	return raw, nil
}

// oidcVerifier discovers Google's keys on first use and keeps the verifier.
type oidcVerifier struct {
	clientID string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func (v *oidcVerifier) get(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.verifier != nil {
		return v.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google: discover provider: %w", err)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}

func (v *oidcVerifier) VerifyIDToken(ctx context.Context, raw string) (*IDClaims, error) {
	verifier, err := v.get(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("google: verify id_token: %w", err)
	}

	var claims IDClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google: decode claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, errors.New("google: id_token has no subject")
	}
	return &claims, nil
}
