package stripe

import (
	"encoding/json"
	"testing"

	"clinic-api/internal/domain/subscriptions"
	"clinic-api/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v75"
)

func event(id, typ, object string) stripego.Event {
	return stripego.Event{
		ID:   id,
		Type: stripego.EventType(typ),
		Data: &stripego.EventData{Raw: json.RawMessage(object)},
	}
}

func TestDecodeEvent_Subscription(t *testing.T) {
	got, err := DecodeEvent(event("evt_1", "customer.subscription.updated", `{
		"id": "sub_1",
		"object": "subscription",
		"status": "past_due",
		"metadata": {"userId": "u-1"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, subscriptions.SubscriptionEvent{
		ID:             "evt_1",
		Type:           subscriptions.TypeSubscriptionUpdated,
		SubscriptionID: "sub_1",
		UserID:         "u-1",
		Status:         users.StatusPastDue,
	}, got)
}

func TestDecodeEvent_SubscriptionSnakeCaseMetadata(t *testing.T) {
	got, err := DecodeEvent(event("evt_2", "customer.subscription.created", `{
		"id": "sub_2",
		"object": "subscription",
		"status": "incomplete",
		"metadata": {"user_id": "u-2"}
	}`))
	require.NoError(t, err)

	sub, ok := got.(subscriptions.SubscriptionEvent)
	require.True(t, ok)
	assert.Equal(t, "u-2", sub.UserID)
	assert.Equal(t, users.StatusInactive, sub.Status)
}

func TestDecodeEvent_SubscriptionWithoutMetadata(t *testing.T) {
	got, err := DecodeEvent(event("evt_3", "customer.subscription.deleted", `{
		"id": "sub_3",
		"object": "subscription",
		"status": "canceled"
	}`))
	require.NoError(t, err)

	sub, ok := got.(subscriptions.SubscriptionEvent)
	require.True(t, ok)
	assert.Empty(t, sub.UserID)
}

func TestDecodeEvent_Invoice(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		object string
		want   subscriptions.InvoiceEvent
	}{
		{
			name:   "succeeded",
			typ:    "invoice.payment_succeeded",
			object: `{"id": "in_1", "object": "invoice", "subscription": "sub_1"}`,
			want: subscriptions.InvoiceEvent{
				ID: "evt_inv", Type: subscriptions.TypeInvoicePaymentSuccess, SubscriptionID: "sub_1",
			},
		},
		{
			name:   "failed",
			typ:    "invoice.payment_failed",
			object: `{"id": "in_2", "object": "invoice", "subscription": "sub_2"}`,
			want: subscriptions.InvoiceEvent{
				ID: "evt_inv", Type: subscriptions.TypeInvoicePaymentFailed, SubscriptionID: "sub_2",
			},
		},
		{
			name:   "one-off invoice",
			typ:    "invoice.payment_succeeded",
			object: `{"id": "in_3", "object": "invoice", "subscription": null}`,
			want: subscriptions.InvoiceEvent{
				ID: "evt_inv", Type: subscriptions.TypeInvoicePaymentSuccess,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeEvent(event("evt_inv", tt.typ, tt.object))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEvent_Unknown(t *testing.T) {
	got, err := DecodeEvent(event("evt_9", "charge.refunded", `{"id": "ch_1"}`))
	require.NoError(t, err)
	assert.Equal(t, subscriptions.UnknownEvent{ID: "evt_9", Type: "charge.refunded"}, got)
}

func TestDecodeEvent_MissingData(t *testing.T) {
	_, err := DecodeEvent(stripego.Event{ID: "evt_x", Type: "customer.subscription.created"})
	require.Error(t, err)
}

func TestDecodeEvent_MalformedData(t *testing.T) {
	_, err := DecodeEvent(event("evt_x", "customer.subscription.created", `{"id": 42`))
	require.Error(t, err)
}
