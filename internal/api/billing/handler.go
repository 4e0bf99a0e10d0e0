package billing

import (
	"errors"
	"net/http"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/access"
	"clinic-api/internal/domain/users"
	stripeinfra "clinic-api/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	msgAlreadySubscribed = "Ya tienes una suscripción activa."
	msgMissingPrice      = "No se ha indicado ningún plan de precios."
	msgNoSubscription    = "No tienes ninguna suscripción que cancelar."
	msgAlreadyCancelled  = "La suscripción ya está cancelada."
	msgProviderFailure   = "No se pudo completar la operación con el proveedor de pagos."
)

type Handler struct {
	users   users.Repository
	gateway stripeinfra.Gateway
	priceID string
	log     zerolog.Logger
}

func NewHandler(repo users.Repository, gateway stripeinfra.Gateway, defaultPriceID string, log zerolog.Logger) *Handler {
	return &Handler{
		users:   repo,
		gateway: gateway,
		priceID: defaultPriceID,
		log:     log.With().Str("component", "billing").Logger(),
	}
}

type createResponse struct {
	SubscriptionID     string                   `json:"subscriptionId"`
	SubscriptionStatus users.SubscriptionStatus `json:"subscriptionStatus"`
	ClientSecret       string                   `json:"clientSecret,omitempty"`
}

type statusResponse struct {
	SubscriptionStatus users.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionID     *string                  `json:"subscriptionId"`
	Access             access.Policy            `json:"access"`
	PaymentsEnabled    bool                     `json:"paymentsEnabled"`
}

// POST /api/subscriptions/create
//
// Links a provider customer on first use, then opens a subscription that
// stays inactive until the provider reports a payment through the webhook.
func (h *Handler) CreateSubscription(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}

	var input struct {
		PriceID string `json:"priceId"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.Fail(c, response.BindError(err))
			return
		}
	}
	priceID := input.PriceID
	if priceID == "" {
		priceID = h.priceID
	}
	if priceID == "" {
		response.Fail(c, apperr.Validation(msgMissingPrice))
		return
	}
	if holdsLiveSubscription(u) {
		response.Fail(c, apperr.Validation(msgAlreadySubscribed))
		return
	}

	ctx := c.Request.Context()
	logger := h.log.With().Str("user_id", u.ID).Logger()

	// an unpaid previous attempt is closed before a new one is opened
	if u.SubscriptionID != nil && *u.SubscriptionID != "" && u.SubscriptionStatus == users.StatusInactive {
		if err := h.gateway.CancelSubscription(ctx, *u.SubscriptionID); err != nil {
			response.Fail(c, apperr.Upstream(msgProviderFailure, err).WithStatus(http.StatusBadRequest))
			return
		}
		logger.Info().Str("subscription_id", *u.SubscriptionID).Msg("pending subscription replaced")
	}

	customerID := ""
	if u.CustomerID != nil {
		customerID = *u.CustomerID
	}
	if customerID == "" {
		created, err := h.gateway.CreateCustomer(ctx, stripeinfra.CustomerInput{
			UserID: u.ID,
			Email:  u.Email,
			Name:   u.Name,
		})
		if err != nil {
			response.Fail(c, apperr.Upstream(msgProviderFailure, err).WithStatus(http.StatusBadRequest))
			return
		}
		// a concurrent request may have linked a customer first; keep the stored one
		customerID, err = h.users.AssignCustomer(ctx, u.ID, created)
		if err != nil {
			response.Fail(c, storeError(err))
			return
		}
		logger.Info().Str("customer_id", customerID).Msg("payment customer linked")
	}

	sub, err := h.gateway.CreateSubscription(ctx, stripeinfra.SubscriptionInput{
		UserID:     u.ID,
		CustomerID: customerID,
		PriceID:    priceID,
	})
	if err != nil {
		response.Fail(c, apperr.Upstream(msgProviderFailure, err).WithStatus(http.StatusBadRequest))
		return
	}

	if err := h.users.SetSubscription(ctx, u.ID, sub.ID, users.StatusInactive); err != nil {
		response.Fail(c, storeError(err))
		return
	}

	logger.Info().Str("subscription_id", sub.ID).Msg("subscription created, awaiting payment")
	response.Created(c, createResponse{
		SubscriptionID:     sub.ID,
		SubscriptionStatus: users.StatusInactive,
		ClientSecret:       sub.ClientSecret,
	})
}

// POST /api/subscriptions/cancel
//
// The subscription id is kept on the record; only the status changes.
func (h *Handler) CancelSubscription(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}
	if u.SubscriptionID == nil || *u.SubscriptionID == "" {
		response.Fail(c, apperr.Validation(msgNoSubscription))
		return
	}
	if u.SubscriptionStatus == users.StatusCancelled {
		response.Fail(c, apperr.Validation(msgAlreadyCancelled))
		return
	}

	ctx := c.Request.Context()
	if err := h.gateway.CancelSubscription(ctx, *u.SubscriptionID); err != nil {
		response.Fail(c, apperr.Upstream(msgProviderFailure, err).WithStatus(http.StatusBadRequest))
		return
	}
	if err := h.users.SetSubscriptionStatus(ctx, u.ID, users.StatusCancelled); err != nil {
		response.Fail(c, storeError(err))
		return
	}

	h.log.Info().Str("user_id", u.ID).Str("subscription_id", *u.SubscriptionID).Msg("subscription cancelled")
	response.Message(c, http.StatusOK, "Suscripción cancelada correctamente.", gin.H{
		"subscriptionId":     *u.SubscriptionID,
		"subscriptionStatus": users.StatusCancelled,
	})
}

// GET /api/subscriptions/status
func (h *Handler) Status(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, apperr.Unauthenticated(apperr.MsgNotAuthenticated))
		return
	}
	response.OK(c, statusResponse{
		SubscriptionStatus: u.SubscriptionStatus,
		SubscriptionID:     u.SubscriptionID,
		Access:             access.ComputePolicy(*u),
		PaymentsEnabled:    h.gateway.Enabled(),
	})
}

// holdsLiveSubscription reports whether the provider may still bill the user
// for the stored subscription.
func holdsLiveSubscription(u *users.User) bool {
	switch u.SubscriptionStatus {
	case users.StatusActive:
		return true
	case users.StatusTrial, users.StatusPastDue:
		return u.SubscriptionID != nil && *u.SubscriptionID != ""
	default:
		return false
	}
}

func storeError(err error) error {
	if errors.Is(err, users.ErrNotFound) {
		return apperr.Unauthenticated(apperr.MsgUserGone)
	}
	return apperr.Internal(apperr.MsgGeneric, err)
}
