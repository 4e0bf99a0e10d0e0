package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"clinic-api/internal/api/response"
	"clinic-api/internal/apperr"
	"clinic-api/internal/domain/subscriptions"
	stripeinfra "clinic-api/internal/infra/stripe"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MaxBodyBytes caps the webhook payload, matching what Stripe documents.
const MaxBodyBytes = 65536

type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (subscriptions.Event, error)
}

type Applier interface {
	Apply(ctx context.Context, ev subscriptions.Event) (subscriptions.Outcome, error)
}

// Recorder counts deliveries. May be nil.
type Recorder interface {
	WebhookEvent(eventType, outcome string)
}

type Handler struct {
	verifier EventVerifier
	sync     Applier
	ledger   subscriptions.Ledger
	metrics  Recorder
	log      zerolog.Logger
}

func NewHandler(verifier EventVerifier, sync Applier, ledger subscriptions.Ledger, metrics Recorder, log zerolog.Logger) *Handler {
	if ledger == nil {
		ledger = subscriptions.NopLedger{}
	}
	return &Handler{
		verifier: verifier,
		sync:     sync,
		ledger:   ledger,
		metrics:  metrics,
		log:      log.With().Str("component", "stripe_webhook").Logger(),
	}
}

func (h *Handler) count(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.WebhookEvent(eventType, outcome)
	}
}

// POST /api/subscriptions/webhook
//
// Answers 2xx once the event is applied or deliberately skipped, and 5xx when
// the store or provider failed so Stripe redelivers.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, MaxBodyBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, apperr.Validation("El cuerpo de la petición es demasiado grande.").WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		response.Fail(c, apperr.Validation("No se pudo leer el cuerpo de la petición."))
		return
	}

	ev, err := h.verifier.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, stripeinfra.ErrGatewayDisabled):
		h.count("unknown", "disabled")
		response.Fail(c, apperr.Internal("Los pagos no están configurados.", err).WithStatus(http.StatusServiceUnavailable))
		return
	case errors.Is(err, stripeinfra.ErrInvalidSignature):
		h.log.Warn().Err(err).Msg("stripe signature verification failed")
		h.count("unknown", "bad_signature")
		response.Fail(c, &apperr.Error{Kind: apperr.KindValidation, Message: "La verificación de la firma del webhook ha fallado.", Err: err})
		return
	case err != nil:
		h.log.Warn().Err(err).Msg("stripe event could not be decoded")
		h.count("unknown", "malformed")
		response.Fail(c, &apperr.Error{Kind: apperr.KindValidation, Message: "No se pudo interpretar el evento.", Err: err})
		return
	}

	ctx := c.Request.Context()
	eventType := string(ev.EventType())
	logger := h.log.With().Str("event_id", ev.EventID()).Str("event_type", eventType).Logger()

	seen, err := h.ledger.Seen(ctx, ev.EventID())
	if err != nil {
		// applying twice is harmless, so a ledger outage only costs a write
		logger.Warn().Err(err).Msg("event ledger unavailable")
	}
	if seen {
		logger.Debug().Msg("duplicate delivery acknowledged")
		h.count(eventType, "duplicate")
		response.OK(c, gin.H{"received": true, "duplicate": true})
		return
	}

	outcome, err := h.sync.Apply(ctx, ev)
	if err != nil {
		logger.Error().Err(err).Msg("stripe event not applied")
		h.count(eventType, "failed")
		response.Fail(c, apperr.Internal("No se pudo procesar el evento.", err))
		return
	}

	if err := h.ledger.Mark(ctx, ev.EventID()); err != nil {
		logger.Warn().Err(err).Msg("could not record processed event")
	}

	h.count(eventType, string(outcome))
	response.OK(c, gin.H{"received": true, "outcome": outcome})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
