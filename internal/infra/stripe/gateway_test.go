package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"clinic-api/internal/domain/subscriptions"
	"clinic-api/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func subscriptionPayload() []byte {
	return []byte(`{
		"id": "evt_sig",
		"object": "event",
		"api_version": "2019-01-01",
		"type": "customer.subscription.created",
		"data": {"object": {
			"id": "sub_1",
			"object": "subscription",
			"status": "trialing",
			"metadata": {"userId": "u-1"}
		}}
	}`)
}

func TestNew_SelectsGateway(t *testing.T) {
	assert.IsType(t, NullGateway{}, New("", "", "development"))
	assert.IsType(t, NullGateway{}, New("sk_test", "", "development"))
	assert.IsType(t, &StripeGateway{}, New("sk_test", testWebhookSecret, "development"))
}

func TestStripeGateway_ConstructEvent(t *testing.T) {
	g := NewStripeGateway("sk_test", testWebhookSecret, "test")
	payload := subscriptionPayload()

	ev, err := g.ConstructEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, subscriptions.SubscriptionEvent{
		ID:             "evt_sig",
		Type:           subscriptions.TypeSubscriptionCreated,
		SubscriptionID: "sub_1",
		UserID:         "u-1",
		Status:         users.StatusTrial,
	}, ev)
}

func TestStripeGateway_ConstructEventRejectsBadSignatures(t *testing.T) {
	g := NewStripeGateway("sk_test", testWebhookSecret, "test")
	payload := subscriptionPayload()

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{name: "missing header", payload: payload, signature: ""},
		{name: "wrong secret", payload: payload, signature: sign(payload, "whsec_other", time.Now())},
		{name: "tampered body", payload: []byte(strings.Replace(string(payload), "u-1", "u-2", 1)), signature: sign(payload, testWebhookSecret, time.Now())},
		{name: "stale timestamp", payload: payload, signature: sign(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.ConstructEvent(tt.payload, tt.signature)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestNullGateway(t *testing.T) {
	var g Gateway = NullGateway{}
	ctx := context.Background()

	assert.False(t, g.Enabled())

	cus, err := g.CreateCustomer(ctx, CustomerInput{UserID: "u-1", Email: "a@b.c"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cus, "cus_mock_"))

	sub, err := g.CreateSubscription(ctx, SubscriptionInput{UserID: "u-1", CustomerID: cus, PriceID: "price_1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sub.ID, "sub_mock_"))
	assert.Equal(t, users.StatusInactive, sub.Status)
	assert.Empty(t, sub.ClientSecret)

	require.NoError(t, g.CancelSubscription(ctx, sub.ID))

	_, err = g.SubscriptionOwner(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrGatewayDisabled)

	_, err = g.ConstructEvent([]byte(`{}`), "t=1,v1=00")
	assert.ErrorIs(t, err, ErrGatewayDisabled)
}
