package users

import (
	"errors"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users users.Repository
}

func NewHandler(repo users.Repository) *Handler {
	return &Handler{users: repo}
}

// GET /api/users/profile
func (h *Handler) GetProfile(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}
	response.OK(c, BuildMeResponse(u))
}

// PATCH /api/users/profile
//
// Only name and email are writable here. Passwords go through
// change-password; role, activity and subscription fields are never bound.
func (h *Handler) UpdateProfile(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}

	var input struct {
		Name     *string `json:"name" binding:"omitempty,min=2,max=100"`
		Email    *string `json:"email" binding:"omitempty,email"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, response.BindError(err))
		return
	}
	if input.Password != nil {
		response.Fail(c, apperr.Validation("Esta ruta no permite cambiar la contraseña. Usa /change-password."))
		return
	}
	if input.Name == nil && input.Email == nil {
		response.Fail(c, apperr.Validation("No hay cambios que aplicar."))
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), u.ID, users.ProfileChanges{
		Name:  input.Name,
		Email: input.Email,
	})
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		response.Fail(c, apperr.Validation("El usuario con este correo electrónico ya existe"))
		return
	case errors.Is(err, users.ErrNotFound):
		response.Fail(c, apperr.Unauthenticated(apperr.MsgUserGone))
		return
	case err != nil:
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	response.OK(c, BuildMeResponse(updated))
}
