package auth

import (
	"errors"
	"net/http"
	"unicode"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/token"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgEmailTaken         = "El usuario con este correo electrónico ya existe"
	msgWeakPassword       = "La contraseña debe tener al menos 8 caracteres e incluir letras y números."
	msgBadCredentials     = "Correo electrónico o contraseña incorrectos."
	msgExternalAccount    = "Esta cuenta usa el inicio de sesión con Google."
	msgAccountDisabled    = "Esta cuenta ha sido desactivada. Contacta con soporte."
	msgWrongPassword      = "La contraseña actual es incorrecta."
	msgNoPasswordToChange = "Esta cuenta no tiene contraseña. Inicia sesión con Google."
)

type TokenIssuer interface {
	Issue(c token.Claims) (string, error)
}

type Handler struct {
	users  users.Repository
	tokens TokenIssuer
	log    zerolog.Logger
	cost   int
}

func NewHandler(repo users.Repository, tokens TokenIssuer, log zerolog.Logger) *Handler {
	return &Handler{
		users:  repo,
		tokens: tokens,
		log:    log.With().Str("component", "auth").Logger(),
		cost:   bcrypt.DefaultCost,
	}
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func (h *Handler) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *Handler) issue(u *users.User) (string, error) {
	return issueFor(h.tokens, u)
}

func issueFor(tokens TokenIssuer, u *users.User) (string, error) {
	return tokens.Issue(token.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	})
}

// POST /api/users/register
func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,min=2,max=100"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, response.BindError(err))
		return
	}
	if !isPasswordStrong(input.Password) {
		response.Fail(c, apperr.Validation(msgWeakPassword))
		return
	}

	hashed, err := h.hash(input.Password)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	u := users.New(input.Email, input.Name, &hashed)
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			response.Fail(c, apperr.Validation(msgEmailTaken))
			return
		}
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	tok, err := h.issue(u)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	h.log.Info().Str("user_id", u.ID).Msg("user registered")
	response.Created(c, sessionResponse{Token: tok, User: u})
}

// POST /api/users/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, response.BindError(err))
		return
	}

	u, err := h.users.FindByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, users.ErrNotFound) {
		response.Fail(c, apperr.Unauthenticated(msgBadCredentials))
		return
	}
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	if !u.HasPassword() {
		response.Fail(c, apperr.Unauthenticated(msgExternalAccount))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(input.Password)); err != nil {
		response.Fail(c, apperr.Unauthenticated(msgBadCredentials))
		return
	}
	if !u.IsActive {
		response.Fail(c, apperr.Unauthenticated(msgAccountDisabled))
		return
	}

	tok, err := h.issue(u)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	response.OK(c, sessionResponse{Token: tok, User: u})
}

// PATCH /api/users/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}

	var input struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, response.BindError(err))
		return
	}

	if !u.HasPassword() {
		response.Fail(c, apperr.Validation(msgNoPasswordToChange))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(input.CurrentPassword)); err != nil {
		response.Fail(c, apperr.Unauthenticated(msgWrongPassword))
		return
	}
	if !isPasswordStrong(input.NewPassword) {
		response.Fail(c, apperr.Validation(msgWeakPassword))
		return
	}

	hashed, err := h.hash(input.NewPassword)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), u.ID, hashed); err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	u.Password = &hashed

	tok, err := h.issue(u)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	response.Message(c, http.StatusOK, "Contraseña actualizada correctamente.", sessionResponse{Token: tok, User: u})
}
