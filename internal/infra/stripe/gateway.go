package stripe

import (
	"context"
	"errors"
	"fmt"

	"clinic-api/internal/domain/subscriptions"
	"clinic-api/internal/domain/users"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"
)

var (
	ErrGatewayDisabled  = errors.New("payment provider not configured")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

type CustomerInput struct {
	UserID string
	Email  string
	Name   string
}

type SubscriptionInput struct {
	UserID     string
	CustomerID string
	PriceID    string
}

type Subscription struct {
	ID           string
	Status       users.SubscriptionStatus
	ClientSecret string // empty when no payment is pending
}

// Gateway is everything this service asks of the payment provider.
type Gateway interface {
	Enabled() bool
	CreateCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	SubscriptionOwner(ctx context.Context, subscriptionID string) (string, error)
	ConstructEvent(payload []byte, signature string) (subscriptions.Event, error)
}

// New selects the Stripe gateway when both keys are present and the null
// gateway otherwise.
func New(secretKey, webhookSecret, appEnv string) Gateway {
	if secretKey == "" || webhookSecret == "" {
		return NullGateway{}
	}
	return NewStripeGateway(secretKey, webhookSecret, appEnv)
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	appEnv        string
}

func NewStripeGateway(secretKey, webhookSecret, appEnv string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		appEnv:        appEnv,
	}
}

func (g *StripeGateway) Enabled() bool { return true }

func (g *StripeGateway) CreateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	params := &stripego.CustomerParams{
		Email: stripego.String(in.Email),
		Name:  stripego.String(in.Name),
		Metadata: map[string]string{
			MetadataUserID: in.UserID,
			"app_env":      g.appEnv,
		},
	}
	params.Context = ctx

	cus, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return cus.ID, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error) {
	params := &stripego.SubscriptionParams{
		Customer: stripego.String(in.CustomerID),
		Items: []*stripego.SubscriptionItemsParams{
			{Price: stripego.String(in.PriceID)},
		},
		PaymentBehavior: stripego.String("default_incomplete"),
	}
	params.AddMetadata(MetadataUserID, in.UserID)
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create subscription: %w", err)
	}

	out := &Subscription{
		ID:     sub.ID,
		Status: NormalizeStripeStatus(string(sub.Status)),
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripego.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := g.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe: cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (g *StripeGateway) SubscriptionOwner(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: get subscription %s: %w", subscriptionID, err)
	}
	return userIDFromMetadata(sub.Metadata), nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (subscriptions.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return DecodeEvent(ev)
}

// NullGateway stands in for Stripe when no keys are configured. Customers and
// subscriptions get mock ids so the account flow can be exercised locally;
// webhooks are refused because nothing can sign them.
type NullGateway struct{}

func (NullGateway) Enabled() bool { return false }

func (NullGateway) CreateCustomer(context.Context, CustomerInput) (string, error) {
	return "cus_mock_" + uuid.NewString(), nil
}

func (NullGateway) CreateSubscription(context.Context, SubscriptionInput) (*Subscription, error) {
	return &Subscription{
		ID:     "sub_mock_" + uuid.NewString(),
		Status: users.StatusInactive,
	}, nil
}

func (NullGateway) CancelSubscription(context.Context, string) error { return nil }

func (NullGateway) SubscriptionOwner(context.Context, string) (string, error) {
	return "", ErrGatewayDisabled
}

func (NullGateway) ConstructEvent([]byte, string) (subscriptions.Event, error) {
	return nil, ErrGatewayDisabled
}
