package middleware

import (
	"context"
	"errors"
	"strings"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/token"

	"github.com/gin-gonic/gin"
)

const (
	msgTokenExpired = "Tu sesión ha expirado. Por favor, inicia sesión de nuevo."
	msgTokenInvalid = "Token inválido. Por favor, inicia sesión de nuevo."
	msgAuthFailed   = "Error de autenticación."
	msgUserInactive = "Esta cuenta ha sido desactivada. Contacta con soporte."
	msgForbidden    = "No tienes permiso para realizar esta acción."
)

const currentUserKey = "currentUser"

type TokenVerifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

type UserLoader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// FailureRecorder counts rejected requests by reason. May be nil.
type FailureRecorder interface {
	AuthFailure(reason string)
}

// Protect authenticates the bearer token, reloads its user and attaches it
// to the context. A token is only as good as the account behind it: deleted
// or deactivated users are rejected even while the token is unexpired.
func Protect(tokens TokenVerifier, loader UserLoader, failures FailureRecorder) gin.HandlerFunc {
	reject := func(c *gin.Context, reason, msg string) {
		if failures != nil {
			failures.AuthFailure(reason)
		}
		response.Fail(c, apperr.Unauthenticated(msg))
	}

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, "missing", apperr.MsgNotAuthenticated)
			return
		}

		claims, err := tokens.Verify(raw)
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			reject(c, "expired", msgTokenExpired)
			return
		case errors.Is(err, token.ErrTokenInvalid):
			reject(c, "invalid", msgTokenInvalid)
			return
		case err != nil:
			reject(c, "error", msgAuthFailed)
			return
		}

		u, err := loader.FindByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, users.ErrNotFound) {
			reject(c, "user_gone", apperr.MsgUserGone)
			return
		}
		if err != nil {
			response.Fail(c, apperr.Internal("Error de autenticación.", err))
			return
		}
		if !u.IsActive {
			reject(c, "inactive", msgUserInactive)
			return
		}

		c.Set(currentUserKey, u)
		c.Next()
	}
}

// RestrictTo lets the request through only when the attached user holds one
// of roles. Must run after Protect.
func RestrictTo(roles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
			return
		}
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		response.Fail(c, apperr.Forbidden(msgForbidden))
	}
}

// CurrentUser returns the user attached by Protect.
func CurrentUser(c *gin.Context) (*users.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*users.User)
	return u, ok && u != nil
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
