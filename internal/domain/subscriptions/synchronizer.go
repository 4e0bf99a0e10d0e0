// Package subscriptions keeps the subscription fields of a user record in step
// with the payment provider's webhook notifications.
package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"clinic-api/internal/domain/users"

	"github.com/rs/zerolog"
)

// Store is the slice of the user repository the synchronizer reads and writes through.
type Store interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
	SetSubscription(ctx context.Context, userID, subscriptionID string, status users.SubscriptionStatus) error
	SetSubscriptionStatus(ctx context.Context, userID string, status users.SubscriptionStatus) error
}

// OwnerResolver finds the local user id recorded on a provider subscription.
type OwnerResolver interface {
	SubscriptionOwner(ctx context.Context, subscriptionID string) (string, error)
}

// Outcome tells the caller what Apply did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeIgnored Outcome = "ignored"
)

type Synchronizer struct {
	store  Store
	owners OwnerResolver
	log    zerolog.Logger
}

func NewSynchronizer(store Store, owners OwnerResolver, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		owners: owners,
		log:    log.With().Str("component", "subscription_sync").Logger(),
	}
}

// Apply maps one event onto the owning user's record. Store and provider
// failures are returned wrapped so the webhook caller can ask for a redelivery.
func (s *Synchronizer) Apply(ctx context.Context, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case SubscriptionEvent:
		return s.applySubscription(ctx, e)
	case InvoiceEvent:
		return s.applyInvoice(ctx, e)
	default:
		s.log.Debug().
			Str("event_id", ev.EventID()).
			Str("event_type", string(ev.EventType())).
			Msg("unhandled event type")
		return OutcomeIgnored, nil
	}
}

func (s *Synchronizer) applySubscription(ctx context.Context, e SubscriptionEvent) (Outcome, error) {
	logger := s.log.With().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("subscription_id", e.SubscriptionID).
		Logger()

	if e.UserID == "" {
		logger.Warn().Msg("subscription event without userId metadata, nothing to update")
		return OutcomeSkipped, nil
	}

	stale, err := s.isStale(ctx, logger, e.UserID, e.SubscriptionID, e.Type == TypeSubscriptionCreated)
	if err != nil || stale {
		return s.skipStale(logger, e.UserID, stale, err)
	}

	var status users.SubscriptionStatus
	switch e.Type {
	case TypeSubscriptionCreated:
		status = e.Status
		err = s.store.SetSubscription(ctx, e.UserID, e.SubscriptionID, status)
	case TypeSubscriptionUpdated:
		status = e.Status
		err = s.store.SetSubscriptionStatus(ctx, e.UserID, status)
	case TypeSubscriptionDeleted:
		status = users.StatusCancelled
		err = s.store.SetSubscriptionStatus(ctx, e.UserID, status)
	default:
		logger.Debug().Msg("unhandled subscription event type")
		return OutcomeIgnored, nil
	}

	return s.finish(logger, e.UserID, status, err)
}

func (s *Synchronizer) applyInvoice(ctx context.Context, e InvoiceEvent) (Outcome, error) {
	logger := s.log.With().
		Str("event_id", e.ID).
		Str("event_type", string(e.Type)).
		Str("subscription_id", e.SubscriptionID).
		Logger()

	var status users.SubscriptionStatus
	switch e.Type {
	case TypeInvoicePaymentSuccess:
		status = users.StatusActive
	case TypeInvoicePaymentFailed:
		status = users.StatusPastDue
	default:
		logger.Debug().Msg("unhandled invoice event type")
		return OutcomeIgnored, nil
	}

	// one-off invoices carry no subscription
	if e.SubscriptionID == "" {
		logger.Debug().Msg("invoice without subscription, nothing to update")
		return OutcomeSkipped, nil
	}

	userID, err := s.owners.SubscriptionOwner(ctx, e.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("subscriptions: resolve owner of %s: %w", e.SubscriptionID, err)
	}
	if userID == "" {
		logger.Warn().Msg("subscription without userId metadata, nothing to update")
		return OutcomeSkipped, nil
	}

	stale, err := s.isStale(ctx, logger, userID, e.SubscriptionID, false)
	if err != nil || stale {
		return s.skipStale(logger, userID, stale, err)
	}

	err = s.store.SetSubscriptionStatus(ctx, userID, status)
	return s.finish(logger, userID, status, err)
}

// isStale reports whether the event is about a subscription other than the
// one stored on the user. Only a created event may replace a stored id, and
// only once the stored subscription is cancelled.
func (s *Synchronizer) isStale(ctx context.Context, logger zerolog.Logger, userID, subscriptionID string, created bool) (bool, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if subscriptionID == "" || u.SubscriptionID == nil || *u.SubscriptionID == "" {
		return false, nil
	}
	current := *u.SubscriptionID
	if current == subscriptionID {
		return false, nil
	}
	if created && u.SubscriptionStatus == users.StatusCancelled {
		return false, nil
	}
	logger.Warn().
		Str("user_id", userID).
		Str("current_subscription_id", current).
		Msg("event for a subscription the user no longer holds, nothing to update")
	return true, nil
}

func (s *Synchronizer) skipStale(logger zerolog.Logger, userID string, stale bool, err error) (Outcome, error) {
	switch {
	case stale:
		return OutcomeSkipped, nil
	case errors.Is(err, users.ErrNotFound):
		logger.Warn().Str("user_id", userID).Msg("event references an unknown user, nothing to update")
		return OutcomeSkipped, nil
	default:
		return "", fmt.Errorf("subscriptions: load user %s: %w", userID, err)
	}
}

func (s *Synchronizer) finish(logger zerolog.Logger, userID string, status users.SubscriptionStatus, err error) (Outcome, error) {
	if errors.Is(err, users.ErrNotFound) {
		logger.Warn().Str("user_id", userID).Msg("event references an unknown user, nothing to update")
		return OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("subscriptions: update user %s to %s: %w", userID, status, err)
	}

	logger.Info().Str("user_id", userID).Str("status", string(status)).Msg("subscription status synchronized")
	return OutcomeApplied, nil
}
