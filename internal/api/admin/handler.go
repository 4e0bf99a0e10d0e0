package admin

import (
	"errors"
	"time"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AdminUser struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	Email              string                   `json:"email"`
	Role               users.Role               `json:"role"`
	IsActive           bool                     `json:"isActive"`
	SubscriptionStatus users.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionID     *string                  `json:"subscriptionId,omitempty"`
	CustomerID         *string                  `json:"customerId,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
}

type AdminStats struct {
	TotalUsers     int                              `json:"totalUsers"`
	ActiveAccounts int                              `json:"activeAccounts"`
	UsersPerStatus map[users.SubscriptionStatus]int `json:"usersPerStatus"`
}

type listResponse struct {
	Users []AdminUser `json:"users"`
	Stats AdminStats  `json:"stats"`
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Role:               u.Role,
		IsActive:           u.IsActive,
		SubscriptionStatus: u.SubscriptionStatus,
		SubscriptionID:     u.SubscriptionID,
		CustomerID:         u.CustomerID,
		CreatedAt:          u.CreatedAt,
	}
}

type Handler struct {
	users users.Repository
	log   zerolog.Logger
}

func NewHandler(repo users.Repository, log zerolog.Logger) *Handler {
	return &Handler{users: repo, log: log.With().Str("component", "admin").Logger()}
}

// GET /api/users
func (h *Handler) ListUsers(c *gin.Context) {
	all, err := h.users.List(c.Request.Context())
	if err != nil {
		response.Fail(c, apperr.Internal("No se pudieron cargar los usuarios.", err))
		return
	}

	out := listResponse{
		Users: make([]AdminUser, 0, len(all)),
		Stats: AdminStats{UsersPerStatus: map[users.SubscriptionStatus]int{}},
	}
	for _, u := range all {
		out.Users = append(out.Users, toAdminUser(u))
		out.Stats.TotalUsers++
		if u.IsActive {
			out.Stats.ActiveAccounts++
		}
		out.Stats.UsersPerStatus[u.SubscriptionStatus]++
	}

	response.OK(c, out)
}

// GET /api/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, users.ErrNotFound) {
		response.Fail(c, apperr.NotFound("Usuario no encontrado."))
		return
	}
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}
	response.OK(c, toAdminUser(*u))
}

// PATCH /api/users/:id/active
//
// Deactivation is the only way to remove an account. It takes effect on the
// user's next request since Protect reloads the record every time.
func (h *Handler) SetActive(c *gin.Context) {
	var input struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, response.BindError(err))
		return
	}

	id := c.Param("id")
	if me, ok := middleware.CurrentUser(c); ok && me.ID == id && !*input.Active {
		response.Fail(c, apperr.Validation("No puedes desactivar tu propia cuenta."))
		return
	}

	ctx := c.Request.Context()
	if err := h.users.SetActive(ctx, id, *input.Active); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			response.Fail(c, apperr.NotFound("Usuario no encontrado."))
			return
		}
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	u, err := h.users.FindByID(ctx, id)
	if err != nil {
		response.Fail(c, apperr.Internal(apperr.MsgGeneric, err))
		return
	}

	h.log.Info().Str("user_id", id).Bool("active", u.IsActive).Msg("account activity changed")
	response.OK(c, toAdminUser(*u))
}
