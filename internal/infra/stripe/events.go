package stripe

import (
	"encoding/json"
	"fmt"

	"clinic-api/internal/domain/subscriptions"

	stripego "github.com/stripe/stripe-go/v75"
)

// MetadataUserID is the subscription metadata key holding the local user id.
const MetadataUserID = "userId"

// DecodeEvent turns a verified Stripe event into the closed set of events
// the synchronizer understands.
func DecodeEvent(ev stripego.Event) (subscriptions.Event, error) {
	typ := subscriptions.EventType(ev.Type)

	switch typ {
	case subscriptions.TypeSubscriptionCreated,
		subscriptions.TypeSubscriptionUpdated,
		subscriptions.TypeSubscriptionDeleted:
		var sub stripego.Subscription
		if err := unmarshalData(ev, &sub); err != nil {
			return nil, err
		}
		return subscriptions.SubscriptionEvent{
			ID:             ev.ID,
			Type:           typ,
			SubscriptionID: sub.ID,
			UserID:         userIDFromMetadata(sub.Metadata),
			Status:         NormalizeStripeStatus(string(sub.Status)),
		}, nil

	case subscriptions.TypeInvoicePaymentSuccess,
		subscriptions.TypeInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := unmarshalData(ev, &inv); err != nil {
			return nil, err
		}
		subscriptionID := ""
		if inv.Subscription != nil {
			subscriptionID = inv.Subscription.ID
		}
		return subscriptions.InvoiceEvent{
			ID:             ev.ID,
			Type:           typ,
			SubscriptionID: subscriptionID,
		}, nil

	default:
		return subscriptions.UnknownEvent{ID: ev.ID, Type: typ}, nil
	}
}

func unmarshalData(ev stripego.Event, into any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("stripe: event %s (%s) has no data object", ev.ID, ev.Type)
	}
	if err := json.Unmarshal(ev.Data.Raw, into); err != nil {
		return fmt.Errorf("stripe: decode %s payload: %w", ev.Type, err)
	}
	return nil
}

// userIDFromMetadata also accepts the snake_case key used by older checkouts.
func userIDFromMetadata(md map[string]string) string {
	if md == nil {
		return ""
	}
	if v := md[MetadataUserID]; v != "" {
		return v
	}
	return md["user_id"]
}
